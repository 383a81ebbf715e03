package ledger

import "errors"

// Missing-identity and policy denials never reach this package: the former
// stops at the auth middleware, the latter flows through policy.Decision.
var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrDuplicateMembership = errors.New("user already has a role in this account")
)
