package query

import "errors"

var (
	// ErrVariableNotFound reports a selected variable the plan does
	// not declare. Raised at query setup, before any storage access.
	ErrVariableNotFound = errors.New("selected variable not found in query")

	// ErrUnboundVariable reports a selected slot left unbound by the
	// pipeline. A well-formed plan never produces this; it indicates
	// an internal inconsistency, not a user error.
	ErrUnboundVariable = errors.New("variable not found in result set")
)
