package lifecycle

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const DefaultStopTimeout = 15 * time.Second

type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type named struct {
	name      string
	component Component
}

// Runtime starts components in registration order and stops them in reverse.
type Runtime struct {
	components  []named
	started     []named
	stopTimeout time.Duration
}

func NewRuntime(stopTimeout time.Duration) *Runtime {
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &Runtime{stopTimeout: stopTimeout}
}

func (r *Runtime) Register(name string, component Component) {
	if component == nil {
		return
	}
	r.components = append(r.components, named{name: name, component: component})
}

// Start brings components up one by one. When one fails, the ones already
// running are stopped before the error is returned.
func (r *Runtime) Start(ctx context.Context) error {
	r.started = r.started[:0]
	for _, c := range r.components {
		r.getLogEntry().WithField("component", c.name).Debug("starting")
		if err := c.component.Start(ctx); err != nil {
			_ = stopAll(ctx, r.started)
			r.started = nil
			return errors.Wrapf(err, "start %s", c.name)
		}
		r.started = append(r.started, c)
	}
	r.getLogEntry().WithField("components", len(r.started)).Info("runtime started")
	return nil
}

func (r *Runtime) Stop(ctx context.Context) error {
	err := stopAll(ctx, r.started)
	r.started = nil
	return err
}

// Run starts the runtime, blocks until ctx is done, then stops everything
// within the stop timeout.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	r.getLogEntry().Info("shutting down")

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.stopTimeout)
	defer cancel()
	return r.Stop(stopCtx)
}

func stopAll(ctx context.Context, components []named) error {
	var stopErr error
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		if err := c.component.Stop(ctx); err != nil {
			log.WithFields(log.Fields{
				"object":    "Runtime",
				"component": c.name,
				"error":     err.Error(),
			}).Warn("stop failed")
			stopErr = stderrors.Join(stopErr, errors.Wrapf(err, "stop %s", c.name))
		}
	}
	return stopErr
}

func (r *Runtime) getLogEntry() *log.Entry {
	return log.WithField("object", "Runtime")
}
