package types

import "errors"

// Sentinel errors for boundary validation. Using sentinels allows callers to
// match with errors.Is for reliable error handling.
var (
	// ErrUnknownRole is returned when a role name matches no known role.
	ErrUnknownRole = errors.New("unknown role")

	// ErrUnknownPermission is returned when a decision value is not allow, ask or deny.
	ErrUnknownPermission = errors.New("unknown permission decision")
)
