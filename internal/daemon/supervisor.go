// Package daemon provides the restart-on-panic supervisor tree that the
// long-lived workers (Discovery, the Animator's logic and write loops, and
// the other daemon services) run under, and the health-check ticker that
// watches the Layout Engine's invariants.
package daemon

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/thejerf/suture/v4"
)

// NewSupervisor returns a root supervisor logging every lifecycle event
// through logger, grounded on the pack's sutureext.NewSimple/EventHook
// shape.
func NewSupervisor(logger *slog.Logger) *suture.Supervisor {
	return suture.New("tilewm", suture.Spec{
		EventHook: eventHook(logger),
	})
}

func eventHook(logger *slog.Logger) suture.EventHook {
	return func(ei suture.Event) {
		switch e := ei.(type) {
		case suture.EventStopTimeout:
			logger.Warn("service failed to terminate in a timely manner",
				"supervisor", e.SupervisorName, "service", e.ServiceName)
		case suture.EventServicePanic:
			logger.Error("caught a service panic", "stacktrace", e.Stacktrace, "panic", e.PanicMsg)
		case suture.EventServiceTerminate:
			logger.Error("service failed", "error", e.Err,
				"supervisor", e.SupervisorName, "service", e.ServiceName)
		case suture.EventBackoff:
			logger.Debug("entering backoff state", "supervisor", e.SupervisorName)
		case suture.EventResume:
			logger.Debug("exiting backoff state", "supervisor", e.SupervisorName)
		default:
			b, _ := json.Marshal(e)
			logger.Warn("unknown suture event", "type", int(e.Type()), "payload", string(b))
		}
	}
}

// Service is a named suture.Service.
type Service interface {
	String() string
	suture.Service
}

// ServiceFunc adapts a plain function into a named Service.
type ServiceFunc struct {
	name string
	fn   func(ctx context.Context) error
}

// NewServiceFunc wraps fn as a suture.Service named name.
func NewServiceFunc(name string, fn func(ctx context.Context) error) ServiceFunc {
	return ServiceFunc{name: name, fn: fn}
}

func (s ServiceFunc) String() string { return s.name }

func (s ServiceFunc) Serve(ctx context.Context) error {
	return s.fn(ctx)
}
