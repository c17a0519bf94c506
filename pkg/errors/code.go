package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Admission errors (request rejected before any execution)
// 12000-12999: Sandbox & Scheduler internal errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	ServiceUnavailable  ErrorCode = 10004
	Timeout             ErrorCode = 10005

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	RequiredFieldEmpty ErrorCode = 10301

	// ========== Admission Errors (11000-11999) ==========

	UnsupportedLanguage ErrorCode = 11000
	RequestTooLarge     ErrorCode = 11001
	Overloaded          ErrorCode = 11002
	QuotaExceeded       ErrorCode = 11003

	// ========== Sandbox & Scheduler Errors (12000-12999) ==========

	SandboxProvisionFailed ErrorCode = 12000
	SandboxStartFailed     ErrorCode = 12001
	SandboxTeardownFailed  ErrorCode = 12002
	SchedulerStopped       ErrorCode = 12100
	JobCancelled           ErrorCode = 12101
)

// errorMessages maps error codes to their default messages
var errorMessages = map[ErrorCode]string{
	Success: "Success",

	// Generic
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	ServiceUnavailable:  "Service unavailable",
	Timeout:             "Operation timed out",

	// Validation
	ValidationFailed:   "Validation failed",
	RequiredFieldEmpty: "Required field is empty",

	// Admission
	UnsupportedLanguage: "Programming language not supported",
	RequestTooLarge:     "Request payload is too large",
	Overloaded:          "Execution queue is full, please try again later",
	QuotaExceeded:       "Too many concurrent executions for this caller",

	// Sandbox & Scheduler
	SandboxProvisionFailed: "Failed to provision execution environment",
	SandboxStartFailed:     "Failed to start sandboxed process",
	SandboxTeardownFailed:  "Failed to tear down execution environment",
	SchedulerStopped:       "Scheduler is not accepting new jobs",
	JobCancelled:           "Job was cancelled before execution",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case Success:
		return 200
	case InvalidParams, ValidationFailed, RequiredFieldEmpty, UnsupportedLanguage:
		return 400
	case NotFound:
		return 404
	case RequestTooLarge:
		return 413
	case QuotaExceeded:
		return 429
	case Overloaded, ServiceUnavailable, SchedulerStopped:
		return 503
	case Timeout:
		return 504
	default:
		return 500
	}
}
