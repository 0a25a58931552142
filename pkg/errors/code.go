package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Auth & token errors
// 12000-12999: Task module errors
// 13000-13999: Team module errors
// 14000-14999: Supervisor module errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Database errors (10100-10199)
	DatabaseError       ErrorCode = 10100
	RecordNotFound      ErrorCode = 10101
	RecordAlreadyExists ErrorCode = 10102
	TransactionFailed   ErrorCode = 10103

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Auth Errors (11000-11999) ==========

	InvalidCredentials    ErrorCode = 11000
	TokenExpired          ErrorCode = 11003
	TokenInvalid          ErrorCode = 11004
	TokenGenerationFailed ErrorCode = 11005

	// ========== Task Module Errors (12000-12999) ==========

	// Task basic (12000-12099)
	TaskNotFound       ErrorCode = 12000
	DuplicateTaskTitle ErrorCode = 12001

	// Task lifecycle (12100-12199)
	TaskAlreadyOpened ErrorCode = 12100
	TaskClosed        ErrorCode = 12101
	TaskNotOpened     ErrorCode = 12102
	TaskAlreadyClosed ErrorCode = 12103

	// Submissions (12200-12299)
	TaskNotSubmittable ErrorCode = 12200
	TaskAlreadySolved  ErrorCode = 12201
	SubmitTooFrequent  ErrorCode = 12202

	// ========== Team Module Errors (13000-13999) ==========

	TeamNotFound     ErrorCode = 13000
	TeamDisqualified ErrorCode = 13001

	// ========== Supervisor Module Errors (14000-14999) ==========

	SupervisorNotFound      ErrorCode = 14000
	SupervisorAlreadyExists ErrorCode = 14001
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	Forbidden:           "Access forbidden",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Database
	DatabaseError:       "Database operation failed",
	RecordNotFound:      "Record not found in database",
	RecordAlreadyExists: "Record already exists",
	TransactionFailed:   "Database transaction failed",

	// Cache
	CacheError: "Cache operation failed",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// Auth
	InvalidCredentials:    "Invalid username or password",
	TokenExpired:          "Token has expired",
	TokenInvalid:          "Invalid token",
	TokenGenerationFailed: "Failed to generate token",

	// Task
	TaskNotFound:       "Task not found",
	DuplicateTaskTitle: "Task with this title already exists",
	TaskAlreadyOpened:  "Task has already been opened",
	TaskClosed:         "Task is closed",
	TaskNotOpened:      "Task has not been opened yet",
	TaskAlreadyClosed:  "Task has already been closed",
	TaskNotSubmittable: "Task does not accept answers at the moment",
	TaskAlreadySolved:  "Task has already been solved by this team",
	SubmitTooFrequent:  "Submitting too frequently, please slow down",

	// Team
	TeamNotFound:     "Team not found",
	TeamDisqualified: "Team has been disqualified",

	// Supervisor
	SupervisorNotFound:      "Supervisor not found",
	SupervisorAlreadyExists: "Supervisor with this username already exists",
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
	switch {
	case c == Success:
		return 200
	case c == InvalidCredentials, c == Unauthorized, c == TokenExpired, c == TokenInvalid:
		return 401
	case c == Forbidden, c == TeamDisqualified:
		return 403
	case c == NotFound, c == RecordNotFound, c == TaskNotFound, c == TeamNotFound, c == SupervisorNotFound:
		return 404
	case c == DuplicateTaskTitle, c == SupervisorAlreadyExists, c == RecordAlreadyExists:
		return 409
	case c == TooManyRequests, c == SubmitTooFrequent:
		return 429
	case c >= 12100 && c < 12300: // Task lifecycle and submission conflicts
		return 409
	case c == ServiceUnavailable:
		return 503
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams:
		return 400
	default:
		return 500
	}
}
