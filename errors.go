package ledger

import "fmt"

// Typed failure taxonomy. Every operation returns one of these explicitly;
// absence is always a NotFoundError, never a nil or zero sentinel.

// ValidationError invalid input: non-positive amount, unknown currency code,
// missing required field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NotFoundError a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	Key    any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %v", e.Entity, e.Key)
}

// AuthorizationError unauthenticated, not-owner, insufficient role, or a
// blocked identity.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization: %s", e.Reason)
}

// StateConflictError the operation is valid in form but conflicts with
// current state: insufficient funds, removing an account holding funds,
// duplicate registration.
type StateConflictError struct {
	Reason string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Reason)
}

// RateUnavailableError no rate is recorded for a currency required in a
// conversion.
type RateUnavailableError struct {
	Currency Currency
}

func (e *RateUnavailableError) Error() string {
	return fmt.Sprintf("no rate available for %s", e.Currency)
}
