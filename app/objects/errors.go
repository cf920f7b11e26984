package objects

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type ErrorKind string

const (
	DefinitionNotFound    ErrorKind = "DefinitionNotFound"
	StartEventNotFound    ErrorKind = "StartEventNotFound"
	RequestNotFound       ErrorKind = "RequestNotFound"
	TokenNotFound         ErrorKind = "TokenNotFound"
	InvalidTokenState     ErrorKind = "InvalidTokenState"
	InvalidRequestState   ErrorKind = "InvalidRequestState"
	TokenNotWaiting       ErrorKind = "TokenNotWaiting"
	ConcurrentNodeReentry ErrorKind = "ConcurrentNodeReentry"
	InvalidDefinition     ErrorKind = "InvalidDefinition"
	AdvancementFailed     ErrorKind = "AdvancementFailed"
	InvalidInput          ErrorKind = "InvalidInput"
	Forbidden             ErrorKind = "Forbidden"
	Internal              ErrorKind = "Internal"
)

// Error is a failure the caller can act on. Kind is machine readable.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// KindOf returns the kind of a wrapped *Error, or Internal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
