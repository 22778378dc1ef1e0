package errors

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// ErrorType classifies failures by how the mining run must react to them.
// Everything except FATAL is caught at the item boundary and converted into
// "skip and continue"; FATAL stops the run.
type ErrorType string

const (
	// ErrTypeTransient covers network timeouts, unreachable hosts and other
	// failures that are retried or silently treated as "no data".
	ErrTypeTransient ErrorType = "TRANSIENT"
	// ErrTypeExtraction marks a structural extraction failure: unparsable
	// JSON or missing required fields. The item is rejected, not the run.
	ErrTypeExtraction ErrorType = "EXTRACTION"
	// ErrTypeDuplicate is a unique-key violation on insert. The item is
	// already covered by another path; it is abandoned.
	ErrTypeDuplicate ErrorType = "DUPLICATE"
	// ErrTypeRateLimit signals a quota-exceeded reply from the extraction
	// service (429 / "quota" / "too many requests").
	ErrTypeRateLimit ErrorType = "RATE_LIMIT"
	// ErrTypeNotFound means a page or record is definitively gone.
	ErrTypeNotFound ErrorType = "NOT_FOUND"
	// ErrTypeFatal stops the run: store unreachable, empty first listing.
	ErrTypeFatal ErrorType = "FATAL"
)

type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Stack   []byte
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func (e *DomainError) StackTrace() []byte {
	return e.Stack
}

func New(errType ErrorType, message string, err error) *DomainError {
	var stack []byte
	if err != nil {
		if stackErr, ok := err.(*goerrors.Error); ok {
			stack = stackErr.Stack()
		} else {
			stack = goerrors.Wrap(err, 2).Stack()
		}
	} else {
		stack = goerrors.New(message).Stack()
	}

	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Stack:   stack,
	}
}

func Transient(message string, err error) *DomainError {
	return New(ErrTypeTransient, message, err)
}

func Extraction(message string, err error) *DomainError {
	return New(ErrTypeExtraction, message, err)
}

func Duplicate(message string, err error) *DomainError {
	return New(ErrTypeDuplicate, message, err)
}

func RateLimit(message string, err error) *DomainError {
	return New(ErrTypeRateLimit, message, err)
}

func NotFound(message string, err error) *DomainError {
	return New(ErrTypeNotFound, message, err)
}

func Fatal(message string, err error) *DomainError {
	return New(ErrTypeFatal, message, err)
}

// IsType reports whether err (or anything it wraps) is a DomainError of the
// given type.
func IsType(err error, errType ErrorType) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type == errType
	}
	return false
}

func IsDuplicate(err error) bool { return IsType(err, ErrTypeDuplicate) }
func IsFatal(err error) bool     { return IsType(err, ErrTypeFatal) }
func IsNotFound(err error) bool  { return IsType(err, ErrTypeNotFound) }
func IsRateLimit(err error) bool { return IsType(err, ErrTypeRateLimit) }
