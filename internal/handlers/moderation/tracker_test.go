package moderation

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/disgoorg/snowflake/v2"
)

func TestTrackerDecisionsArePeriodic(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(DefaultStrikes)
	user := snowflake.ID(1001)

	expected := []Decision{
		DecisionContinue, DecisionContinue, DecisionEscalate,
		DecisionContinue, DecisionContinue, DecisionEscalate,
		DecisionContinue,
	}
	for i, want := range expected {
		if got := tracker.RecordViolation(user); got != want {
			t.Fatalf("call %d: got %s want %s", i+1, got, want)
		}
	}
}

func TestTrackerResetsAfterEscalation(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(DefaultStrikes)
	user := snowflake.ID(7)

	tracker.RecordViolation(user)
	tracker.RecordViolation(user)
	if got := tracker.Count(user); got != 2 {
		t.Fatalf("expected counter 2 before escalation, got %d", got)
	}
	if got := tracker.RecordViolation(user); got != DecisionEscalate {
		t.Fatalf("expected escalation, got %s", got)
	}
	if got := tracker.Count(user); got != 0 {
		t.Fatalf("expected counter reset to 0, got %d", got)
	}
	if tracker.Tracked() != 0 {
		t.Fatalf("expected no tracked users after reset, got %d", tracker.Tracked())
	}
	if got := tracker.RecordViolation(user); got != DecisionContinue {
		t.Fatalf("expected cycle to restart with continue, got %s", got)
	}
}

func TestTrackerUsersAreIndependent(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(DefaultStrikes)
	u1, u2 := snowflake.ID(1), snowflake.ID(2)

	got := []Decision{
		tracker.RecordViolation(u1),
		tracker.RecordViolation(u2),
		tracker.RecordViolation(u1),
		tracker.RecordViolation(u2),
		tracker.RecordViolation(u1),
		tracker.RecordViolation(u2),
	}
	want := []Decision{
		DecisionContinue, DecisionContinue,
		DecisionContinue, DecisionContinue,
		DecisionEscalate, DecisionEscalate,
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d: got %s want %s", i+1, got[i], want[i])
		}
	}
}

func TestTrackerCounterNeverExceedsStrikes(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(DefaultStrikes)
	user := snowflake.ID(3)
	for range 100 {
		tracker.RecordViolation(user)
		if got := tracker.Count(user); got > DefaultStrikes-1 {
			t.Fatalf("counter exceeded limit: %d", got)
		}
	}
}

func TestTrackerInvalidStrikesFallBackToDefault(t *testing.T) {
	t.Parallel()

	for _, strikes := range []int{0, -1, 1000} {
		if got := NewTracker(strikes).strikes; got != DefaultStrikes {
			t.Fatalf("NewTracker(%d) strikes = %d, want %d", strikes, got, DefaultStrikes)
		}
	}
}

func TestTrackerSingleStrikeAlwaysEscalates(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(1)
	for range 3 {
		if got := tracker.RecordViolation(9); got != DecisionEscalate {
			t.Fatalf("expected escalation, got %s", got)
		}
	}
}

func TestTrackerConcurrentSameUser(t *testing.T) {
	t.Parallel()

	const (
		workers = 12
		perWork = 300
	)
	tracker := NewTracker(DefaultStrikes)
	user := snowflake.ID(42)

	var escalations atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWork; i++ {
				if tracker.RecordViolation(user) == DecisionEscalate {
					escalations.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	total := workers * perWork
	if got := escalations.Load(); got != int64(total/DefaultStrikes) {
		t.Fatalf("expected %d escalations, got %d", total/DefaultStrikes, got)
	}
	if got := tracker.Count(user); got != uint8(total%DefaultStrikes) {
		t.Fatalf("unexpected residual counter: %d", got)
	}
}
