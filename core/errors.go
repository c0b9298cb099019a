package core

import "fmt"

// ErrorCode categorises catalog and compilation failures.
type ErrorCode int

const (
	CodeParse ErrorCode = iota + 1
	CodeSchemaReference
	CodeColumnCountMismatch
	CodeCyclicReference
	CodeNotFound
	CodeAlreadyExists
	CodeDependentObjects
	CodeNotATable
	CodeUnsupported
)

func (code ErrorCode) String() string {
	switch code {
	case CodeParse:
		return "parse error"
	case CodeSchemaReference:
		return "invalid schema reference"
	case CodeColumnCountMismatch:
		return "column count mismatch"
	case CodeCyclicReference:
		return "cyclic view reference"
	case CodeNotFound:
		return "object not found"
	case CodeAlreadyExists:
		return "object already exists"
	case CodeDependentObjects:
		return "dependent objects exist"
	case CodeNotATable:
		return "not a table"
	case CodeUnsupported:
		return "unsupported operation"
	default:
		return fmt.Sprintf("error code %d", int(code))
	}
}

// Error is a coded error. errors.Is matches any *Error with the same code, so
// callers test categories against the sentinels below.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

var (
	ErrParse               = &Error{Code: CodeParse}
	ErrSchemaReference     = &Error{Code: CodeSchemaReference}
	ErrColumnCountMismatch = &Error{Code: CodeColumnCountMismatch}
	ErrCyclicReference     = &Error{Code: CodeCyclicReference}
	ErrNotFound            = &Error{Code: CodeNotFound}
	ErrAlreadyExists       = &Error{Code: CodeAlreadyExists}
	ErrDependentObjects    = &Error{Code: CodeDependentObjects}
	ErrNotATable           = &Error{Code: CodeNotATable}
	ErrUnsupported         = &Error{Code: CodeUnsupported}
)

func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a code to an underlying error.
func WrapError(code ErrorCode, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Err == nil:
		return e.Code.String()
	case e.Err == nil:
		return e.Code.String() + ": " + e.Message
	case e.Message == "":
		return e.Code.String() + ": " + e.Err.Error()
	default:
		return e.Code.String() + ": " + e.Message + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}
