package analyses

import "fmt"

var transitions = map[string][]string{
	StatusQueued:     {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether an analysis may move from one status to another.
// Completed and failed are terminal; a failed analysis is retried by creating a
// new one.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to string) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func staleStatusError(actual, expected string) error {
	return fmt.Errorf("%w: status is %s, expected %s", ErrInvalidTransition, actual, expected)
}
