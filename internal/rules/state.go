package rules

import "stride/internal/domain"

// transitions is the whole lifecycle, written out rather than computed so
// adding a state is a reviewable change. rolled-over is terminal: a completed
// recurring action moves there once a fresh instance has been spawned, and the
// completed record stays untouched for history.
var transitions = map[string][]string{
	domain.StatusPlanned:    {domain.StatusInProgress, domain.StatusDeferred},
	domain.StatusInProgress: {domain.StatusCompleted, domain.StatusDeferred, domain.StatusPlanned},
	domain.StatusCompleted:  {domain.StatusRolledOver},
	domain.StatusDeferred:   {domain.StatusPlanned},
	domain.StatusRolledOver: {},
}

// IsValidStatus reports whether s names a known lifecycle state.
func IsValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// IsValidTransition is a pure table lookup.
func IsValidTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RequireTransition returns a StateTransitionError when from -> to is not an
// edge of the table.
func RequireTransition(from, to string) error {
	if IsValidTransition(from, to) {
		return nil
	}
	return &StateTransitionError{From: from, To: to, Valid: ValidNextStates(from)}
}

// ValidNextStates returns the table row for from, for UI and validation reuse.
func ValidNextStates(from string) []string {
	row := transitions[from]
	out := make([]string, len(row))
	copy(out, row)
	return out
}

// IsTerminal is true only for rolled-over.
func IsTerminal(state string) bool {
	row, ok := transitions[state]
	return ok && len(row) == 0
}
