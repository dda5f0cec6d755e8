package contract

import "github.com/pkg/errors"

// Failure classes surfaced by every operation. Callers (the relay, tests)
// distinguish a wrong-role caller from a wrong stage number from a missing
// lot, so each failure wraps exactly one of these sentinels.
var (
	// ErrPermissionDenied covers unauthorized callers and wrong-role callers.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound covers unknown lot ids and unregistered participants.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition covers stage skips, repeats, backward moves and
	// attempts to advance past the terminal stage.
	ErrInvalidTransition = errors.New("invalid stage transition")

	// ErrValidation covers malformed input: empty required fields,
	// non-positive quantities, out-of-range role ordinals.
	ErrValidation = errors.New("validation failed")
)
