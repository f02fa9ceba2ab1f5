package service

import (
	"context"
	"sync"
	"time"

	"bankclient/config"
	"bankclient/internal/model"
	"bankclient/internal/utils"

	"go.uber.org/zap"
)

type SchedulerState int

const (
	StateIdle SchedulerState = iota
	StateArmed
)

func (s SchedulerState) String() string {
	if s == StateArmed {
		return "armed"
	}
	return "idle"
}

// TokenScheduler keeps the access token fresh by re-sending the retained Login shortly
// before the token expires. At most one renewal is pending at any time.
type TokenScheduler struct {
	clock         Clock
	dispatcher    *Dispatcher
	margin        time.Duration
	retryInterval time.Duration
	logger        *zap.Logger

	mu          sync.Mutex
	state       SchedulerState
	token       string
	validUntil  int64
	creds       *model.Login
	timer       Timer
	nextRenewal time.Time
	gen         uint64
	ctx         context.Context
	cancel      context.CancelFunc
}

func NewTokenScheduler(config *config.Config, dispatcher *Dispatcher, clock Clock, logger *zap.Logger) *TokenScheduler {
	s := &TokenScheduler{
		clock:         clock,
		dispatcher:    dispatcher,
		margin:        config.Renewal.Margin,
		retryInterval: config.Renewal.RetryInterval,
		logger:        logger.With(zap.String("component", "token_scheduler")),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	dispatcher.Observe(s)
	return s
}

// RenewalDelay is how long to wait before renewing a token valid until validUntil
// (epoch milliseconds). It is never negative.
func RenewalDelay(now time.Time, validUntil int64, margin time.Duration) time.Duration {
	d := time.UnixMilli(validUntil).Sub(now) - margin
	if d < 0 {
		return 0
	}
	return d
}

// SetCredentials retains the Login used for every later renewal.
func (s *TokenScheduler) SetCredentials(login model.Login) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = &login
}

// ObserveAuth re-arms with the new token unless ctx was cancelled, which a renewal's
// ctx is once Dismiss has run.
func (s *TokenScheduler) ObserveAuth(ctx context.Context, _ model.Operation, resp model.UserAuthenticationResponse) {
	validUntil := tokenValidUntil(resp.AccessToken, resp.ValidUntil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		s.logger.Info("ignoring token from cancelled call")
		return
	}
	s.armLocked(resp.AccessToken, validUntil)
}

// Arm stores a fresh token and replaces any pending renewal. A zero validUntil is
// taken from the token's exp claim when it carries one.
func (s *TokenScheduler) Arm(token string, validUntil int64) {
	validUntil = tokenValidUntil(token, validUntil)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.armLocked(token, validUntil)
}

func (s *TokenScheduler) armLocked(token string, validUntil int64) {
	s.token = token
	s.validUntil = validUntil
	s.state = StateArmed
	delay := RenewalDelay(s.clock.Now(), validUntil, s.margin)
	s.scheduleLocked(delay)
	s.logger.Info("token armed",
		zap.Int64("valid_until", validUntil),
		zap.Duration("renew_in", delay))
}

func tokenValidUntil(token string, validUntil int64) int64 {
	if validUntil != 0 {
		return validUntil
	}
	if exp, ok := utils.TokenExpiry(token); ok {
		return exp.UnixMilli()
	}
	return 0
}

// Dismiss forgets the token and the renewal credentials, and cancels both the pending
// renewal and any renewal in flight.
func (s *TokenScheduler) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.token = ""
	s.validUntil = 0
	s.creds = nil
	s.nextRenewal = time.Time{}
	s.state = StateIdle
	s.logger.Info("token dismissed")
}

func (s *TokenScheduler) CurrentToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *TokenScheduler) ValidUntil() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validUntil
}

func (s *TokenScheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// NextRenewal is zero while no renewal is pending.
func (s *TokenScheduler) NextRenewal() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRenewal
}

func (s *TokenScheduler) scheduleLocked(delay time.Duration) {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
	}
	gen := s.gen
	s.nextRenewal = s.clock.Now().Add(delay)
	s.timer = s.clock.AfterFunc(delay, func() { s.renew(gen) })
}

func (s *TokenScheduler) renew(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.nextRenewal = time.Time{}
	creds, ctx := s.creds, s.ctx
	s.mu.Unlock()

	if creds == nil {
		tokenRenewals.WithLabelValues("skipped").Inc()
		s.logger.Warn("renewal due but no credentials retained, keeping current token")
		return
	}

	s.logger.Info("renewing token")
	out := Call[model.UserAuthenticationResponse](ctx, s.dispatcher, *creds)
	switch out.Kind {
	case model.OutcomeSuccess:
		// The dispatcher already re-armed us through ObserveAuth.
		tokenRenewals.WithLabelValues("success").Inc()
	case model.OutcomeDomainError:
		tokenRenewals.WithLabelValues("rejected").Inc()
		s.logger.Warn("renewal rejected, retrying now", zap.Error(out.Err))
		s.retry(gen, 0)
	default:
		tokenRenewals.WithLabelValues("failed").Inc()
		s.logger.Warn("renewal failed", zap.Error(out.Err), zap.Duration("retry_in", s.retryInterval))
		s.retry(gen, s.retryInterval)
	}
}

// retry reschedules unless the scheduler was armed or dismissed since gen fired.
func (s *TokenScheduler) retry(gen uint64, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.state != StateArmed {
		return
	}
	s.scheduleLocked(delay)
}
