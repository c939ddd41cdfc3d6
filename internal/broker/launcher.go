package broker

import (
	"context"

	"github.com/routerfleet/regional-broker/internal/domain"
)

// LauncherPort abstracts "ensure at least one worker of category cat is
// being started". Implementations are free to perform any provider-specific
// call (compute API, container scheduler, ...); the broker only needs to
// know whether the request was made, not whether the worker has started.
// The broker calls EnsureCapacity outside its mutex and waits for it to
// return; an error is logged and never fails the enqueue.
type LauncherPort interface {
	EnsureCapacity(ctx context.Context, cat domain.WorkerCategory, desiredCount int) error
}
