package controllers

import (
	"context"
	"net/http"

	"github.com/sarpraslab/peminjaman-backend/api/middleware"
	"github.com/sarpraslab/peminjaman-backend/api/responses"
	"github.com/sarpraslab/peminjaman-backend/pkg/auth"
	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
	"github.com/sarpraslab/peminjaman-backend/pkg/events"
	"github.com/sarpraslab/peminjaman-backend/pkg/logger"
	"github.com/sarpraslab/peminjaman-backend/pkg/metrics"
)

// EventDispatcher delivers the side effects of a committed operation.
type EventDispatcher interface {
	Dispatch(ctx context.Context, list events.List) error
}

// Hooks is what mutating handlers need once the service call returns.
type Hooks struct {
	Dispatcher EventDispatcher
	Metrics    *metrics.LendingMetrics
}

// done records the outcome of operation and, on success, dispatches list.
// Dispatch failures are logged by the dispatcher and never reach the client.
func (h Hooks) done(ctx context.Context, operation string, err error, list events.List) {
	outcome := "ok"
	if err != nil {
		outcome = string(pkgerrors.As(err).Code())
	}
	h.Metrics.ObserveTransition(operation, outcome)
	if err != nil || h.Dispatcher == nil {
		return
	}
	_ = h.Dispatcher.Dispatch(ctx, list)
}

// failed records a rejected operation. Nothing is dispatched.
func (h Hooks) failed(ctx context.Context, operation string, err error) {
	h.done(ctx, operation, err, events.List{})
}

func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (auth.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return auth.Actor{}, false
	}
	return actor, true
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}
