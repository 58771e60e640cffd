package api

import "fmt"

// ValidateResponseTransition checks whether a response status transition is
// valid. An empty "from" status is the state before the response exists.
// completed is terminal.
func ValidateResponseTransition(from, to ResponseStatus) error {
	switch {
	case from == "" && to == ResponseStatusInProgress:
		return nil
	case from == ResponseStatusInProgress && to == ResponseStatusCompleted:
		return nil
	}
	return fmt.Errorf("invalid response transition from %q to %q", from, to)
}

// ValidateItemTransition checks whether an output item status transition is
// valid. An empty "from" status is the state before the item was added.
// completed is terminal.
func ValidateItemTransition(from, to ItemStatus) error {
	switch {
	case from == "" && to == ItemStatusInProgress:
		return nil
	case from == ItemStatusInProgress && to == ItemStatusCompleted:
		return nil
	}
	return fmt.Errorf("invalid item transition from %q to %q", from, to)
}
