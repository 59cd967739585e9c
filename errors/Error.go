package errors

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Error is a coded error. Errors compare equal under Is when their codes match, anywhere along the
// wrapped chain.
type Error struct {
	code       ERR
	message    string
	wrappedErr error
	data       ErrDataI
}

func (e *Error) Error() string {
	// Error() can be called on wrapped errors, which can be nil, for example predefined errors
	if e == nil {
		return "<nil>"
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "Error: %s (error code: %d), Message: %v", e.code, e.code, e.message)

	if e.wrappedErr != nil {
		fmt.Fprintf(&sb, ", Wrapped err: %v", e.wrappedErr)
	}

	if e.data != nil {
		if dataMsg := e.data.Error(); dataMsg != "" {
			fmt.Fprintf(&sb, ", Data: %s", dataMsg)
		}
	}

	return sb.String()
}

// Is reports whether target carries the same code as e or any error e wraps. Targets that are not
// coded errors are matched against the wrapped chain with the standard errors.Is.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}

	targetError, ok := target.(*Error)
	if !ok {
		return e.wrappedErr != nil && errors.Is(e.wrappedErr, target)
	}

	for current := e; current != nil; {
		if current.code == targetError.code {
			return true
		}

		next, ok := current.wrappedErr.(*Error)
		if !ok {
			return false
		}

		current = next
	}

	return false
}

func (e *Error) As(target interface{}) bool {
	if e == nil {
		return false
	}

	if targetErr, ok := target.(**Error); ok {
		*targetErr = e
		return true
	}

	if e.wrappedErr == nil {
		return false
	}

	// a typed nil pointer wrapped as an error would panic inside errors.As
	if v := reflect.ValueOf(e.wrappedErr); v.Kind() == reflect.Ptr && v.IsNil() {
		return false
	}

	return errors.As(e.wrappedErr, target)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.wrappedErr
}

func (e *Error) Code() ERR {
	if e == nil {
		return ERR_UNKNOWN
	}

	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}

	return e.message
}

func (e *Error) WrappedErr() error {
	if e == nil {
		return nil
	}

	return e.wrappedErr
}

func (e *Error) Data() ErrDataI {
	if e == nil {
		return nil
	}

	return e.data
}

func (e *Error) SetData(key string, value interface{}) {
	if e.data == nil {
		e.data = &ErrData{}
	}

	e.data.SetData(key, value)
}

func (e *Error) GetData(key string) interface{} {
	if e.data == nil {
		return nil
	}

	return e.data.GetData(key)
}

// WithData sets key to value and returns the same error, for use in return statements.
func (e *Error) WithData(key string, value interface{}) *Error {
	e.SetData(key, value)
	return e
}

// New formats message with params. A trailing error param is not formatted but wrapped.
func New(code ERR, message string, params ...interface{}) *Error {
	var wErr error

	if len(params) > 0 {
		if err, ok := params[len(params)-1].(error); ok {
			wErr = err
			params = params[:len(params)-1]
		}
	}

	if len(params) > 0 {
		message = fmt.Sprintf(message, params...)
	}

	if _, ok := ERR_name[int32(code)]; !ok {
		return &Error{
			code:       code,
			message:    "invalid error code",
			wrappedErr: wErr,
		}
	}

	return &Error{
		code:       code,
		message:    message,
		wrappedErr: wErr,
	}
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As walks the coded chain first, then falls back to the standard errors.As.
func As(err error, target any) bool {
	if castedErr, ok := err.(*Error); ok {
		return castedErr.As(target)
	}

	return errors.As(err, target)
}
