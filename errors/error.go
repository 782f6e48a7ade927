package errors

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error is a structured error whose Code follows the gRPC status code space
// used by the managed Pub/Sub service (6 = ALREADY_EXISTS, 5 = NOT_FOUND).
type Error struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
	Cause   error  // the underlying error
	Details any    `json:"details,omitempty"`
}

func NewError(code int64, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewStatusError builds an Error whose message is prefixed with the
// canonical condition name, e.g. "ALREADY_EXISTS: Topic already exists".
func NewStatusError(code codes.Code, text string) *Error {
	return NewError(int64(code), fmt.Sprintf("%s: %s", conditionName(code), text), nil)
}

func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) GetCode() int64 {
	return e.Code
}

func (e *Error) GetMessage() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) GetDetails() any {
	return e.Details
}

// Is reports whether target is an *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// GRPCStatus lets status.Code and status.FromError inspect the error the same
// way they inspect errors returned by the real client library.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(codes.Code(e.Code), e.Message)
}

func conditionName(code codes.Code) string {
	switch code {
	case codes.AlreadyExists:
		return "ALREADY_EXISTS"
	case codes.NotFound:
		return "NOT_FOUND"
	case codes.InvalidArgument:
		return "INVALID_ARGUMENT"
	case codes.FailedPrecondition:
		return "FAILED_PRECONDITION"
	default:
		return code.String()
	}
}
