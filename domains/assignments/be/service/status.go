package service

import "fmt"

// Status is the closed lifecycle enumeration for an audit assignment. Values
// match the persisted representation.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCanceled   Status = "canceled"
)

// ParseStatus validates a stored or user-supplied status string. Unknown values
// are rejected rather than defaulted; a silent fallback here would corrupt the
// lifecycle table.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCanceled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
	}
}

// Terminal reports whether the status ends the lifecycle. Terminal assignments
// never re-enter a non-terminal state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// legalTransitions is the explicit lifecycle table. Anything not listed is illegal.
var legalTransitions = map[Status][]Status{
	StatusScheduled:  {StatusInProgress, StatusCanceled},
	StatusInProgress: {StatusCompleted, StatusCanceled},
}

func canTransition(from, to Status) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
