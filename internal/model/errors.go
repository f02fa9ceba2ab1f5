package model

import (
	"errors"
	"fmt"
)

// DomainError is a business-rule rejection documented by the API.
type DomainError int

const (
	ErrIncorrectRequest DomainError = iota + 1
	ErrInvalidToken
	ErrReceiverHasNoCurrencyOrInsufficientFunds
	ErrPhoneNumberAlreadyTaken
	ErrLoginDetailsWrong
)

func (e DomainError) Error() string {
	switch e {
	case ErrIncorrectRequest:
		return "Incorrect request!"
	case ErrInvalidToken:
		return "Invalid token!"
	case ErrReceiverHasNoCurrencyOrInsufficientFunds:
		return "Receiver has no such currency or you lack funds!"
	case ErrPhoneNumberAlreadyTaken:
		return "Phone number already taken!"
	case ErrLoginDetailsWrong:
		return "Login details are wrong!"
	}
	return fmt.Sprintf("domain error %d", int(e))
}

// ErrNoActiveSession is returned when a query needs the cached account id and
// there is not exactly one.
var ErrNoActiveSession = errors.New("no active session")

// TransportError wraps a network-level failure: the call never produced an HTTP status.
type TransportError struct {
	Op  Kind
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolViolationError means the server answered outside the documented contract:
// an unlisted status code or a 200 whose body does not decode.
type ProtocolViolationError struct {
	Op         Kind
	StatusCode int
	Err        error
}

func (e *ProtocolViolationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: protocol violation (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: protocol violation: unexpected status %d", e.Op, e.StatusCode)
}

func (e *ProtocolViolationError) Unwrap() error { return e.Err }
