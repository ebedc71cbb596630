package bot

import (
	"context"
	"sync"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/iamwavecut/swearbot/internal/infra"
	"github.com/iamwavecut/swearbot/internal/observability"
)

const DefaultMaxConcurrency = 64

// UpdateProcessor fans inbound messages out to one task each and runs the
// enabled handler chain inside that task.
type UpdateProcessor struct {
	handlers       []Handler
	maxConcurrency int

	mu          sync.RWMutex
	running     bool
	tasks       *pool.Pool
	dispatching sync.WaitGroup
	runtimeCtx  context.Context
	cancel      context.CancelFunc
}

// NewUpdateProcessor picks the enabled handlers from registered, in the order
// they are enabled. Unknown names are logged and skipped.
func NewUpdateProcessor(registered map[string]Handler, enabled []string, maxConcurrency int) *UpdateProcessor {
	handlers := make([]Handler, 0, len(enabled))
	for _, name := range enabled {
		handler, ok := registered[name]
		if !ok || handler == nil {
			log.Warnf("no registered handler: %s", name)
			continue
		}
		handlers = append(handlers, handler)
	}
	if maxConcurrency < 1 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &UpdateProcessor{
		handlers:       handlers,
		maxConcurrency: maxConcurrency,
	}
}

func (up *UpdateProcessor) Start(ctx context.Context) error {
	up.mu.Lock()
	defer up.mu.Unlock()
	if up.running {
		return nil
	}
	up.runtimeCtx, up.cancel = context.WithCancel(context.WithoutCancel(ctx))
	up.tasks = pool.New().WithMaxGoroutines(up.maxConcurrency)
	up.running = true
	return nil
}

// Stop refuses new messages and waits for in-flight ones, including
// dispatches still waiting for a free slot. When ctx expires first the
// remaining tasks are cancelled and ctx's error is returned.
func (up *UpdateProcessor) Stop(ctx context.Context) error {
	up.mu.Lock()
	if !up.running {
		up.mu.Unlock()
		return nil
	}
	up.running = false
	tasks, cancel := up.tasks, up.cancel
	up.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// the pool must not be waited on while a dispatch can still call Go
		up.dispatching.Wait()
		tasks.Wait()
	}()

	select {
	case <-done:
		cancel()
		return nil
	case <-ctx.Done():
		cancel()
		up.getLogEntry().Warn("stop deadline reached, cancelled in-flight messages")
		return ctx.Err()
	}
}

// Dispatch schedules msg for processing. It blocks while all task slots are
// busy and returns false once the processor is stopped.
func (up *UpdateProcessor) Dispatch(msg *Message) bool {
	up.mu.RLock()
	if !up.running {
		up.mu.RUnlock()
		up.getLogEntry().Warn("processor is not running, dropping message")
		return false
	}
	ctx, tasks := up.runtimeCtx, up.tasks
	up.dispatching.Add(1)
	up.mu.RUnlock()
	defer up.dispatching.Done()

	tasks.Go(func() {
		handlingID := uuid.New()
		entry := up.getLogEntry().WithField("handling_id", handlingID)
		if msg != nil {
			entry = entry.WithFields(log.Fields{
				"message_id": msg.ID.String(),
				"user_id":    msg.AuthorID.String(),
			})
		}
		defer infra.Recover(entry, "process_message")

		done := observability.StartMessageProcessing()
		if err := up.Process(WithHandlingID(ctx, handlingID), msg); err != nil {
			entry.WithField("error", err.Error()).Error("cant process message")
			done("error")
			return
		}
		done("ok")
	})
	return true
}

// Process runs the handler chain for msg synchronously.
func (up *UpdateProcessor) Process(ctx context.Context, msg *Message) error {
	if msg == nil {
		return errors.New("message is nil")
	}
	if msg.AuthorBot {
		log.Trace("skipping bot message")
		return nil
	}

	for _, handler := range up.handlers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		proceed, err := handler.Handle(ctx, msg)
		if err != nil {
			return errors.WithMessage(err, "handling error")
		}
		if !proceed {
			log.Trace("not proceeding")
			return nil
		}
	}
	return nil
}

func (up *UpdateProcessor) getLogEntry() *log.Entry {
	return log.WithField("object", "UpdateProcessor")
}
