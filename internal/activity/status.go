package activity

import "time"

// Status is the liveness of an agent/user pair.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusOffline  Status = "offline"
)

const (
	// InputWindow is how recent the last input must be to count as active.
	InputWindow = 60 * time.Second
	// SnapshotWindow is how recent the last open-windows snapshot must be
	// for the agent to count as reachable.
	SnapshotWindow = 5 * time.Minute
)

// Classify derives the status at now. Offline takes priority: without a
// snapshot inside SnapshotWindow input recency is irrelevant.
func Classify(now time.Time, lastInput, lastSnapshot *time.Time) Status {
	if lastSnapshot == nil || now.Sub(*lastSnapshot) >= SnapshotWindow {
		return StatusOffline
	}
	if lastInput != nil && now.Sub(*lastInput) < InputWindow {
		return StatusActive
	}
	return StatusInactive
}

// SecondsSince returns whole seconds elapsed from t to now, or nil when t is nil.
func SecondsSince(now time.Time, t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	s := int64(now.Sub(*t) / time.Second)
	return &s
}
