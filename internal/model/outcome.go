package model

import "errors"

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeDomainError
	OutcomeTransportFailure
	OutcomeProtocolViolation
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeDomainError:
		return "domain_error"
	case OutcomeTransportFailure:
		return "transport_failure"
	case OutcomeProtocolViolation:
		return "protocol_violation"
	}
	return "unknown"
}

// Outcome is the single result delivered for one dispatched request.
// Err is nil only for OutcomeSuccess.
type Outcome[T any] struct {
	Kind  OutcomeKind
	Value T
	Err   error
}

// Receiver gets exactly one Outcome per dispatch.
type Receiver[T any] func(Outcome[T])

func Success[T any](v T) Outcome[T] {
	return Outcome[T]{Kind: OutcomeSuccess, Value: v}
}

// Failure classifies err into the matching outcome kind.
func Failure[T any](err error) Outcome[T] {
	var (
		domain    DomainError
		transport *TransportError
	)
	switch {
	case errors.As(err, &domain):
		return Outcome[T]{Kind: OutcomeDomainError, Err: domain}
	case errors.As(err, &transport):
		return Outcome[T]{Kind: OutcomeTransportFailure, Err: err}
	default:
		return Outcome[T]{Kind: OutcomeProtocolViolation, Err: err}
	}
}

func (o Outcome[T]) Unwrap() (T, error) {
	return o.Value, o.Err
}

// DomainError reports the business error carried by the outcome, if any.
func (o Outcome[T]) DomainError() (DomainError, bool) {
	if o.Kind != OutcomeDomainError {
		return 0, false
	}
	var d DomainError
	ok := errors.As(o.Err, &d)
	return d, ok
}
