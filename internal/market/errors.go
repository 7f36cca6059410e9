package market

import (
	"errors"
	"fmt"
)

// Sentinel errors for the trade lifecycle. Handlers map these to transport
// status codes; the engine itself never logs or retries on their behalf.
var (
	// ErrTradeNotFound is returned when a trade id does not resolve in the
	// ledger. Distinct from ErrInvalidTransition so callers can tell
	// "doesn't exist" from "exists but wrong state".
	ErrTradeNotFound = errors.New("trade not found")

	// ErrInvalidTransition is returned when execute or cancel is attempted
	// on a trade that is no longer Pending.
	ErrInvalidTransition = errors.New("trade is not pending")
)

// ValidationError reports a missing or malformed request field. It is
// raised before the snapshot is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
