package moderation

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/puzpuzpuz/xsync/v3"
)

const DefaultStrikes = 3

// Decision is the tracker's verdict for a recorded violation.
type Decision int

const (
	DecisionContinue Decision = iota
	DecisionEscalate
)

func (d Decision) String() string {
	switch d {
	case DecisionContinue:
		return "continue"
	case DecisionEscalate:
		return "escalate"
	default:
		return "unknown"
	}
}

// Tracker counts consecutive violations per user. Every strikes-th violation
// escalates and resets the user's counter. There is no decay: violations any
// time apart count towards the same cycle.
type Tracker struct {
	strikes  uint8
	counters *xsync.MapOf[snowflake.ID, uint8]
}

func NewTracker(strikes int) *Tracker {
	if strikes < 1 || strikes > 255 {
		strikes = DefaultStrikes
	}
	return &Tracker{
		strikes:  uint8(strikes),
		counters: xsync.NewMapOf[snowflake.ID, uint8](),
	}
}

// RecordViolation registers one violation for userID. The read, the
// escalation decision and the write happen atomically under the entry's lock.
func (t *Tracker) RecordViolation(userID snowflake.ID) Decision {
	decision := DecisionContinue
	t.counters.Compute(userID, func(current uint8, _ bool) (uint8, bool) {
		if current+1 >= t.strikes {
			decision = DecisionEscalate
			return 0, true
		}
		return current + 1, false
	})
	return decision
}

// Count returns the user's current position in the escalation cycle.
func (t *Tracker) Count(userID snowflake.ID) uint8 {
	count, _ := t.counters.Load(userID)
	return count
}

// Tracked returns the number of users with a non-zero counter.
func (t *Tracker) Tracked() int {
	return t.counters.Size()
}
