package observability

import (
	"log/slog"
	"os"

	"github.com/routerfleet/regional-broker/internal/config"
)

// SetupLogger configures a JSON slog logger carrying the fields every
// broker log line should have: service name, environment, and whether the
// broker is running offline (since that changes dispatch and provisioning
// behavior enough to matter for anyone reading the logs).
func SetupLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{}
	// In dev, show debug level; in prod, default to info
	if cfg.IsDev() {
		opts.Level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(h).With(
		slog.String("service", cfg.OTELServiceName),
		slog.String("env", cfg.AppEnv),
		slog.Bool("work_offline", cfg.WorkOffline),
	)
}
