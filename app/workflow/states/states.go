package states

import "fmt"

// Token states.
var (
	// ACTIVE Token waits for its unit of work: a task, a catch event or the
	// remaining branches of a join.
	ACTIVE = "ACTIVE"

	// COMPLETED Token finished its work (a task was completed or an action ran).
	COMPLETED = "COMPLETED"

	// CLOSED Token was superseded: its event was caught, its join fired, or the
	// request was canceled or terminated.
	CLOSED = "CLOSED"

	// FAILING Token's automated work failed and the request is in error.
	FAILING = "FAILING"

	TokenStates = []string{ACTIVE, COMPLETED, CLOSED, FAILING}

	TokenCompleteStates = []string{COMPLETED, CLOSED}
)

// Request states.
var (
	// REQUEST_ACTIVE Request has at least one ACTIVE token.
	REQUEST_ACTIVE = "ACTIVE"

	// REQUEST_COMPLETED Every branch reached an end event.
	REQUEST_COMPLETED = "COMPLETED"

	// REQUEST_ERROR An automated task failed.
	REQUEST_ERROR = "ERROR"

	// REQUEST_CANCELED Request was canceled by an administrator.
	REQUEST_CANCELED = "CANCELED"

	RequestStates = []string{REQUEST_ACTIVE, REQUEST_COMPLETED, REQUEST_ERROR, REQUEST_CANCELED}
)

var tokenTransitions = map[string][]string{
	ACTIVE:  {COMPLETED, CLOSED, FAILING},
	FAILING: {CLOSED},
}

var requestTransitions = map[string][]string{
	REQUEST_ACTIVE: {REQUEST_COMPLETED, REQUEST_ERROR, REQUEST_CANCELED},
	REQUEST_ERROR:  {REQUEST_CANCELED},
}

func contains(list []string, state string) bool {
	for _, s := range list {
		if s == state {
			return true
		}
	}
	return false
}

func IsValidTokenState(state string) bool {
	return contains(TokenStates, state)
}

func IsValidRequestState(state string) bool {
	return contains(RequestStates, state)
}

func IsActive(state string) bool {
	return state == ACTIVE
}

func IsFailing(state string) bool {
	return state == FAILING
}

// IsTerminated reports whether a token can never change again.
func IsTerminated(state string) bool {
	return contains(TokenCompleteStates, state)
}

func IsRequestActive(state string) bool {
	return state == REQUEST_ACTIVE
}

func IsRequestFinished(state string) bool {
	return state == REQUEST_COMPLETED || state == REQUEST_CANCELED
}

// IsCancelable reports whether a request in state may still be canceled.
func IsCancelable(state string) bool {
	return contains(requestTransitions[state], REQUEST_CANCELED)
}

func ValidateTokenTransition(curState, state string) error {
	if contains(tokenTransitions[curState], state) {
		return nil
	}
	return fmt.Errorf("token can't move from %s to %s", curState, state)
}

func ValidateRequestTransition(curState, state string) error {
	if contains(requestTransitions[curState], state) {
		return nil
	}
	return fmt.Errorf("request can't move from %s to %s", curState, state)
}
