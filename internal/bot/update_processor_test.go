package bot

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

type recordingHandler struct {
	name    string
	proceed bool
	err     error
	events  *[]string
	mu      *sync.Mutex
	ids     chan string
}

func (h *recordingHandler) Handle(ctx context.Context, _ *Message) (bool, error) {
	if h.mu != nil {
		h.mu.Lock()
		*h.events = append(*h.events, h.name)
		h.mu.Unlock()
	}
	if h.ids != nil {
		h.ids <- HandlingID(ctx)
	}
	return h.proceed, h.err
}

func newRecorder(name string, proceed bool, err error, events *[]string, mu *sync.Mutex) *recordingHandler {
	return &recordingHandler{name: name, proceed: proceed, err: err, events: events, mu: mu}
}

func TestProcessRunsEnabledHandlersInOrder(t *testing.T) {
	t.Parallel()

	var (
		events []string
		mu     sync.Mutex
	)
	registered := map[string]Handler{
		"first":  newRecorder("first", true, nil, &events, &mu),
		"second": newRecorder("second", true, nil, &events, &mu),
		"unused": newRecorder("unused", true, nil, &events, &mu),
	}
	up := NewUpdateProcessor(registered, []string{"second", "missing", "first"}, 1)

	if err := up.Process(context.Background(), &Message{ID: 1, Content: "hi"}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if want := []string{"second", "first"}; !reflect.DeepEqual(events, want) {
		t.Fatalf("unexpected handler order: got %v want %v", events, want)
	}
}

func TestProcessStopsWhenHandlerDoesNotProceed(t *testing.T) {
	t.Parallel()

	var (
		events []string
		mu     sync.Mutex
	)
	registered := map[string]Handler{
		"stop": newRecorder("stop", false, nil, &events, &mu),
		"next": newRecorder("next", true, nil, &events, &mu),
	}
	up := NewUpdateProcessor(registered, []string{"stop", "next"}, 1)

	if err := up.Process(context.Background(), &Message{ID: 1}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if want := []string{"stop"}; !reflect.DeepEqual(events, want) {
		t.Fatalf("unexpected handler calls: got %v want %v", events, want)
	}
}

func TestProcessWrapsHandlerError(t *testing.T) {
	t.Parallel()

	handlerErr := errors.New("boom")
	up := NewUpdateProcessor(map[string]Handler{
		"failing": &recordingHandler{err: handlerErr, proceed: true},
	}, []string{"failing"}, 1)

	err := up.Process(context.Background(), &Message{ID: 1})
	if !errors.Is(err, handlerErr) {
		t.Fatalf("expected wrapped handler error, got %v", err)
	}
}

func TestProcessSkipsBotsAndNil(t *testing.T) {
	t.Parallel()

	var (
		events []string
		mu     sync.Mutex
	)
	up := NewUpdateProcessor(map[string]Handler{
		"h": newRecorder("h", true, nil, &events, &mu),
	}, []string{"h"}, 1)

	if err := up.Process(context.Background(), &Message{ID: 1, AuthorBot: true}); err != nil {
		t.Fatalf("process bot message: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("bot message must not reach handlers, got %v", events)
	}
	if err := up.Process(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil message")
	}
}

func TestDispatchRunsConcurrentlyWithHandlingID(t *testing.T) {
	t.Parallel()

	ids := make(chan string, 4)
	up := NewUpdateProcessor(map[string]Handler{
		"h": &recordingHandler{proceed: true, ids: ids},
	}, []string{"h"}, 2)

	ctx := context.Background()
	if err := up.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 1; i <= 4; i++ {
		if !up.Dispatch(&Message{ID: snowflake.ID(i)}) {
			t.Fatalf("dispatch %d rejected", i)
		}
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := up.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	close(ids)

	seen := map[string]struct{}{}
	for id := range ids {
		if id == "" {
			t.Fatalf("expected handling id in context")
		}
		seen[id] = struct{}{}
	}
	if len(seen) != 4 {
		t.Fatalf("expected 4 distinct handling ids, got %d", len(seen))
	}
}

func TestDispatchAfterStopIsRejected(t *testing.T) {
	t.Parallel()

	up := NewUpdateProcessor(nil, nil, 1)
	if up.Dispatch(&Message{ID: 1}) {
		t.Fatalf("dispatch before start must be rejected")
	}
	if err := up.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := up.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if up.Dispatch(&Message{ID: 1}) {
		t.Fatalf("dispatch after stop must be rejected")
	}
}

type panickingHandler struct{}

func (panickingHandler) Handle(context.Context, *Message) (bool, error) {
	panic("handler exploded")
}

func TestDispatchRecoversPanics(t *testing.T) {
	t.Parallel()

	up := NewUpdateProcessor(map[string]Handler{"p": panickingHandler{}}, []string{"p"}, 1)
	if err := up.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	up.Dispatch(&Message{ID: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := up.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestMessageInGuild(t *testing.T) {
	t.Parallel()

	guild := snowflake.ID(10)
	msg := &Message{GuildID: &guild}
	if !msg.InGuild(10) || msg.InGuild(11) {
		t.Fatalf("unexpected InGuild result")
	}
	if (&Message{}).InGuild(10) {
		t.Fatalf("direct message must not be in a guild")
	}
}

type blockingHandler struct {
	started  chan struct{}
	finished chan struct{}
}

func (h *blockingHandler) Handle(ctx context.Context, _ *Message) (bool, error) {
	h.started <- struct{}{}
	<-ctx.Done()
	h.finished <- struct{}{}
	return true, nil
}

func TestStopHonoursDeadlineWithParkedDispatch(t *testing.T) {
	t.Parallel()

	handler := &blockingHandler{
		started:  make(chan struct{}, 2),
		finished: make(chan struct{}, 2),
	}
	up := NewUpdateProcessor(map[string]Handler{"block": handler}, []string{"block"}, 1)
	if err := up.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if !up.Dispatch(&Message{ID: 1}) {
		t.Fatalf("first dispatch rejected")
	}
	select {
	case <-handler.started:
	case <-time.After(time.Second):
		t.Fatalf("first message was not picked up")
	}

	parked := make(chan bool, 1)
	go func() {
		parked <- up.Dispatch(&Message{ID: 2})
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	stopped := make(chan error, 1)
	go func() {
		stopped <- up.Stop(ctx)
	}()

	select {
	case err := <-stopped:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("stop ignored its deadline")
	}

	select {
	case <-handler.finished:
	case <-time.After(time.Second):
		t.Fatalf("in-flight message was not cancelled")
	}
	select {
	case ok := <-parked:
		if !ok {
			t.Fatalf("parked dispatch should have been accepted")
		}
	case <-time.After(time.Second):
		t.Fatalf("parked dispatch never returned")
	}
}

func TestStopWaitsForInFlightMessages(t *testing.T) {
	t.Parallel()

	var (
		events []string
		mu     sync.Mutex
	)
	registered := map[string]Handler{"rec": newRecorder("rec", true, nil, &events, &mu)}
	up := NewUpdateProcessor(registered, []string{"rec"}, 2)
	if err := up.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 10; i++ {
		if !up.Dispatch(&Message{ID: 1}) {
			t.Fatalf("dispatch %d rejected", i)
		}
	}
	if err := up.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 10 {
		t.Fatalf("expected all 10 messages handled before stop returned, got %d", len(events))
	}
}
