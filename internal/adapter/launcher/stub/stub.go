// Package stub provides a no-op broker.LauncherPort for local development
// and tests, where capacity is provisioned by hand (or not at all) instead
// of through a real cloud API.
package stub

import (
	"context"
	"log/slog"

	"github.com/routerfleet/regional-broker/internal/domain"
)

// Launcher logs every EnsureCapacity request and always succeeds.
type Launcher struct{}

// New returns a stub launcher.
func New() *Launcher { return &Launcher{} }

// EnsureCapacity logs the request and returns nil.
func (l *Launcher) EnsureCapacity(_ context.Context, cat domain.WorkerCategory, desiredCount int) error {
	slog.Info("stub launcher: capacity request received",
		slog.String("category", cat.String()), slog.Int("desired_count", desiredCount))
	return nil
}
