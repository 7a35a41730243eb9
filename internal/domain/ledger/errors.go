package ledger

import "fmt"

// ValidationError rejects a transaction before any state is mutated.
// The caller may retry with corrected data.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("transaction validation failed: %s", e.Reason)
}

// NewValidationError creates a ValidationError with a formatted reason
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// AccountingError signals a post-hoc accounting-equation violation. It is
// fatal: the owning simulation must halt, because it indicates a bug in the
// bookkeeping translation layer, not a recoverable business event.
type AccountingError struct {
	Detail            string
	Assets            int64 // minor units
	LiabilitiesEquity int64 // minor units
}

func (e *AccountingError) Error() string {
	return fmt.Sprintf("accounting equation violated: %s (assets=%d, liabilities+equity=%d, diff=%d)",
		e.Detail, e.Assets, e.LiabilitiesEquity, e.Assets-e.LiabilitiesEquity)
}
