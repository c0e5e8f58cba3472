package sla

import "time"

// State is the read-only SLA condition of one deadline.
type State string

const (
	StateOK       State = "ok"
	StateWarning  State = "warning"
	StateBreached State = "breached"
)

// StatusAt classifies a deadline at a given instant: breached once now has
// reached the deadline, warning inside the warning window before it, ok
// otherwise. Pure function, shared by the tracker and read-only queries.
func StatusAt(deadline time.Time, warning time.Duration, now time.Time) State {
	if !now.Before(deadline) {
		return StateBreached
	}
	if !now.Before(deadline.Add(-warning)) {
		return StateWarning
	}
	return StateOK
}
