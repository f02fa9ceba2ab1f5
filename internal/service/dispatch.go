package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"bankclient/internal/model"
	"bankclient/internal/repo"

	"go.uber.org/zap"
)

type Transport interface {
	Do(ctx context.Context, op model.Operation) (*repo.Response, error)
}

// AuthObserver sees every successful Login and UpdateUser response. ctx is the one the
// call was made with; observers drop the response once it is cancelled.
type AuthObserver interface {
	ObserveAuth(ctx context.Context, op model.Operation, resp model.UserAuthenticationResponse)
}

type TransactionSink interface {
	InsertTransactions(ctx context.Context, txs []model.TransactionInfo) ([]model.TransactionInfo, error)
}

// statusErrors lists the only non-200 codes each operation is documented to return.
var statusErrors = map[model.Kind]map[int]model.DomainError{
	model.KindUpdateBalance: {
		http.StatusBadRequest: model.ErrIncorrectRequest,
	},
	model.KindGetTransactions: {
		http.StatusBadRequest: model.ErrIncorrectRequest,
	},
	model.KindMakeTransaction: {
		http.StatusBadRequest: model.ErrIncorrectRequest,
		http.StatusConflict:   model.ErrReceiverHasNoCurrencyOrInsufficientFunds,
	},
	model.KindUpdateUser: {
		http.StatusBadRequest: model.ErrIncorrectRequest,
	},
	model.KindDeleteUser: {
		http.StatusBadRequest:   model.ErrIncorrectRequest,
		http.StatusUnauthorized: model.ErrInvalidToken,
	},
	model.KindRegister: {
		http.StatusBadRequest: model.ErrIncorrectRequest,
		http.StatusConflict:   model.ErrPhoneNumberAlreadyTaken,
	},
	model.KindLogin: {
		http.StatusBadRequest:   model.ErrIncorrectRequest,
		http.StatusUnauthorized: model.ErrLoginDetailsWrong,
	},
}

type skipWriteThroughKey struct{}

// WithoutWriteThrough marks ctx so that calls made with it leave the cache untouched.
func WithoutWriteThrough(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipWriteThroughKey{}, true)
}

func writeThroughSkipped(ctx context.Context) bool {
	skip, _ := ctx.Value(skipWriteThroughKey{}).(bool)
	return skip
}

func DomainErrorFor(kind model.Kind, status int) (model.DomainError, bool) {
	err, ok := statusErrors[kind][status]
	return err, ok
}

type Dispatcher struct {
	transport Transport
	sink      TransactionSink
	logger    *zap.Logger

	mu        sync.RWMutex
	observers []AuthObserver
}

func NewDispatcher(transport Transport, sink TransactionSink, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		sink:      sink,
		logger:    logger.With(zap.String("component", "dispatcher")),
	}
}

func (d *Dispatcher) Observe(o AuthObserver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, o)
}

// Dispatch runs req in its own goroutine and hands exactly one outcome to recv.
func Dispatch[T any](ctx context.Context, d *Dispatcher, req model.Request[T], recv model.Receiver[T]) {
	go func() {
		recv(Call(ctx, d, req))
	}()
}

// Call is the synchronous form of Dispatch. Side effects of a success (cache write-through,
// auth observers) complete before it returns.
func Call[T any](ctx context.Context, d *Dispatcher, req model.Request[T]) model.Outcome[T] {
	start := time.Now()
	out := execute(ctx, d, req)
	if out.Kind == model.OutcomeSuccess {
		d.afterSuccess(ctx, req, out.Value)
	}

	kind := req.Kind().String()
	dispatchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	dispatchOutcomes.WithLabelValues(kind, out.Kind.String()).Inc()

	fields := []zap.Field{
		zap.String("operation", kind),
		zap.String("outcome", out.Kind.String()),
		zap.Duration("elapsed", time.Since(start)),
	}
	switch out.Kind {
	case model.OutcomeSuccess:
		d.logger.Debug("dispatch completed", fields...)
	case model.OutcomeDomainError:
		d.logger.Info("dispatch rejected", append(fields, zap.Error(out.Err))...)
	default:
		d.logger.Warn("dispatch failed", append(fields, zap.Error(out.Err))...)
	}
	return out
}

func execute[T any](ctx context.Context, d *Dispatcher, req model.Request[T]) model.Outcome[T] {
	resp, err := d.transport.Do(ctx, req)
	if err != nil {
		return model.Failure[T](&model.TransportError{Op: req.Kind(), Err: err})
	}

	if resp.StatusCode == http.StatusOK {
		v, err := req.Decode(resp.Body)
		if err != nil {
			return model.Failure[T](&model.ProtocolViolationError{Op: req.Kind(), StatusCode: resp.StatusCode, Err: err})
		}
		return model.Success(v)
	}

	if derr, ok := DomainErrorFor(req.Kind(), resp.StatusCode); ok {
		return model.Failure[T](derr)
	}
	return model.Failure[T](&model.ProtocolViolationError{Op: req.Kind(), StatusCode: resp.StatusCode})
}

func (d *Dispatcher) afterSuccess(ctx context.Context, op model.Operation, value any) {
	switch v := value.(type) {
	case []model.TransactionInfo:
		d.writeThrough(ctx, op, v)
	case *model.TransactionInfo:
		if v != nil {
			d.writeThrough(ctx, op, []model.TransactionInfo{*v})
		}
	case model.UserAuthenticationResponse:
		if ctx.Err() != nil {
			d.logger.Info("auth response arrived after cancellation, dropping",
				zap.String("operation", op.Kind().String()))
			return
		}
		d.mu.RLock()
		observers := append([]AuthObserver(nil), d.observers...)
		d.mu.RUnlock()
		for _, o := range observers {
			o.ObserveAuth(ctx, op, v)
		}
	}
}

func (d *Dispatcher) writeThrough(ctx context.Context, op model.Operation, txs []model.TransactionInfo) {
	if d.sink == nil || len(txs) == 0 || writeThroughSkipped(ctx) {
		return
	}
	if _, err := d.sink.InsertTransactions(ctx, txs); err != nil {
		d.logger.Error("cache write-through failed",
			zap.String("operation", op.Kind().String()),
			zap.Int("records", len(txs)),
			zap.Error(err))
	}
}
