package core

// Status is the wire-level outcome of a command.
type Status string

// Status values
const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// IsSuccess returns true if the status indicates success
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// ErrorCategory classifies the type of error for logging and HTTP mapping
type ErrorCategory int

const (
	ErrCategoryNone       ErrorCategory = iota // No error
	ErrCategoryRequest                         // Missing or invalid request parameters
	ErrCategoryResolution                      // Element, container or item could not be found
	ErrCategoryBounds                          // Target exists but is not in view
	ErrCategoryTimeout                         // Operation timed out
	ErrCategoryConfig                          // Invalid configuration or layout
	ErrCategoryInternal                        // Unexpected failure inside the server
	ErrCategoryAssertion                       // A command file expectation did not hold
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryRequest:
		return "request"
	case ErrCategoryResolution:
		return "resolution"
	case ErrCategoryBounds:
		return "bounds"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryConfig:
		return "config"
	case ErrCategoryInternal:
		return "internal"
	case ErrCategoryAssertion:
		return "assertion"
	default:
		return "unknown"
	}
}
