package bond

import "time"

// Phase identifies where the current instant falls in the epoch lifecycle.
type Phase uint8

const (
	// PhaseIdle covers the time before the first epoch and the gap between
	// the end of a cooldown and the next epoch start.
	PhaseIdle Phase = iota
	// PhaseInEpoch covers [epochStart, epochEnd).
	PhaseInEpoch
	// PhaseInCooldown covers [epochEnd, epochEnd+cooldown).
	PhaseInCooldown
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseInEpoch:
		return "in_epoch"
	case PhaseInCooldown:
		return "in_cooldown"
	default:
		return "idle"
	}
}

// EpochState holds the committed bounds of the most recent epoch. Both fields
// are zero until the first epoch starts and are overwritten on every
// successful epoch start.
type EpochState struct {
	Start time.Time
	End   time.Time
}

// Started reports whether any epoch has ever been committed.
func (s EpochState) Started() bool {
	return !s.Start.IsZero()
}

// phaseAt derives the lifecycle phase for the given instant. It is a pure
// function of its inputs and is recomputed at every engine entry point so a
// stale phase can never be observed.
func phaseAt(now time.Time, state EpochState, cooldown time.Duration) Phase {
	if !state.Started() || now.Before(state.Start) {
		return PhaseIdle
	}
	if now.Before(state.End) {
		return PhaseInEpoch
	}
	if now.Before(state.End.Add(cooldown)) {
		return PhaseInCooldown
	}
	return PhaseIdle
}
