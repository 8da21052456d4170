package valuation

// Error codes. Every engine failure is an input or logic error; the engine
// touches no network or disk, so nothing here is transient and retrying the
// same input always reproduces the same failure.
const (
	CodeInvalidInput            = "INVALID_INPUT"
	CodeInsufficientComparables = "INSUFFICIENT_COMPARABLES"
	CodeInternal                = "INTERNAL"
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func invalidInput(msg string) *Error {
	return &Error{Code: CodeInvalidInput, Message: msg}
}
