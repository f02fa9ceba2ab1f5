package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bankclient/internal/model"
	"bankclient/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SessionStore interface {
	Save(ctx context.Context, state model.SessionState, ttl time.Duration) error
	Load(ctx context.Context) (*model.SessionState, error)
	Delete(ctx context.Context) error
}

// Session is the device's single logged-in context. It owns the current account view
// and persists the token between runs.
type Session struct {
	dispatcher *Dispatcher
	scheduler  *TokenScheduler
	cache      *Cache
	store      SessionStore
	clock      Clock
	logger     *zap.Logger

	mu      sync.RWMutex
	userID  int32
	account *model.AccountInfo

	// persistMu orders session saves against Logout's delete.
	persistMu sync.Mutex
}

func NewSession(dispatcher *Dispatcher, scheduler *TokenScheduler, cache *Cache, store SessionStore, clock Clock, logger *zap.Logger) *Session {
	s := &Session{
		dispatcher: dispatcher,
		scheduler:  scheduler,
		cache:      cache,
		store:      store,
		clock:      clock,
		logger:     logger.With(zap.String("component", "session")),
	}
	dispatcher.Observe(s)
	return s
}

// ObserveAuth replaces the account view and persists the session until the token
// expires. Responses to cancelled calls are dropped so they cannot revive a logout.
func (s *Session) ObserveAuth(ctx context.Context, _ model.Operation, resp model.UserAuthenticationResponse) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	s.userID = resp.UserID
	account := resp.AccountInfo
	s.account = &account
	s.mu.Unlock()

	state := model.NewSessionState(resp)
	state.ValidUntil = tokenValidUntil(resp.AccessToken, resp.ValidUntil)
	ttl := time.UnixMilli(state.ValidUntil).Sub(s.clock.Now())
	if err := s.store.Save(context.Background(), state, ttl); err != nil {
		s.logger.Error("failed to persist session", zap.Int32("user_id", resp.UserID), zap.Error(err))
	}
}

// Restore resumes a persisted session. It reports false when there is none.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	state, err := s.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load session: %w", err)
	}
	if state == nil {
		return false, nil
	}

	s.mu.Lock()
	s.userID = state.UserID
	account := state.AccountInfo
	s.account = &account
	s.mu.Unlock()

	s.scheduler.Arm(state.AccessToken, state.ValidUntil)
	s.logger.Info("session restored", zap.Int32("user_id", state.UserID))
	return true, nil
}

// Login authenticates, resets the cache to the new account and pulls its history.
// A failed history sync does not fail the login.
func (s *Session) Login(ctx context.Context, phone, password string) (model.UserAuthenticationResponse, error) {
	if err := utils.ValidatePhone(phone); err != nil {
		return model.UserAuthenticationResponse{}, err
	}
	if err := utils.ValidatePassword(password); err != nil {
		return model.UserAuthenticationResponse{}, err
	}

	login := model.Login{PhoneNumber: phone, Password: password}
	s.scheduler.SetCredentials(login)
	resp, err := Call[model.UserAuthenticationResponse](ctx, s.dispatcher, login).Unwrap()
	if err != nil {
		return resp, err
	}

	if err := s.cache.ClearAll(ctx); err != nil {
		return resp, fmt.Errorf("failed to reset cache: %w", err)
	}
	if err := s.cache.InsertAccountID(ctx, resp.AccountInfo.ID); err != nil {
		return resp, fmt.Errorf("failed to store account id: %w", err)
	}
	if _, err := s.fetchTransactions(ctx, resp.AccountInfo.ID); err != nil {
		s.logger.Warn("initial transaction sync failed", zap.Error(err))
	}
	s.logger.Info("logged in", zap.Int32("user_id", resp.UserID), zap.Int32("account_id", resp.AccountInfo.ID))
	return resp, nil
}

func (s *Session) Register(ctx context.Context, phone, password, currency string) (model.UserRegisterResponse, error) {
	if err := utils.ValidatePhone(phone); err != nil {
		return model.UserRegisterResponse{}, err
	}
	if err := utils.ValidatePassword(password); err != nil {
		return model.UserRegisterResponse{}, err
	}
	if err := utils.ValidateCurrency(currency); err != nil {
		return model.UserRegisterResponse{}, err
	}
	return Call[model.UserRegisterResponse](ctx, s.dispatcher, model.Register{
		PhoneNumber: phone,
		Password:    password,
		Currency:    currency,
	}).Unwrap()
}

func (s *Session) Deposit(ctx context.Context, amount decimal.Decimal) (model.AccountInfo, error) {
	if err := utils.ValidateAmount(amount); err != nil {
		return model.AccountInfo{}, err
	}
	account, err := s.Account()
	if err != nil {
		return model.AccountInfo{}, err
	}
	if err := utils.ValidateAccountID(account.ID); err != nil {
		return model.AccountInfo{}, err
	}

	updated, err := Call[model.AccountInfo](ctx, s.dispatcher, model.UpdateBalance{
		AccountID:   account.ID,
		AmountToAdd: amount,
	}).Unwrap()
	if err != nil {
		return updated, err
	}

	s.mu.Lock()
	s.account = &updated
	s.mu.Unlock()
	return updated, nil
}

// SendMoney transfers from the active account. A nil record means the server accepted
// the transfer without echoing it.
func (s *Session) SendMoney(ctx context.Context, receiverPhone string, amount decimal.Decimal, comment string) (*model.TransactionInfo, error) {
	if err := utils.ValidatePhone(receiverPhone); err != nil {
		return nil, err
	}
	if err := utils.ValidateAmount(amount); err != nil {
		return nil, err
	}
	account, err := s.Account()
	if err != nil {
		return nil, err
	}

	return Call[*model.TransactionInfo](ctx, s.dispatcher, model.MakeTransaction{
		Request: model.TransactionRequest{
			SenderPhoneNumber:   account.OwnerPhoneNumber,
			Token:               s.scheduler.CurrentToken(),
			ReceiverPhoneNumber: receiverPhone,
			SenderAccountID:     account.ID,
			Amount:              amount,
			Comment:             comment,
		},
	}).Unwrap()
}

// SyncTransactions replaces the cached history with the server's. The cache is only
// touched once the server has answered, so a failed sync keeps the old history.
func (s *Session) SyncTransactions(ctx context.Context) ([]model.TransactionInfo, error) {
	accountID, err := s.cache.FetchAccountID(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := s.fetchTransactions(WithoutWriteThrough(ctx), accountID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.ClearAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset cache: %w", err)
	}
	if err := s.cache.InsertAccountID(ctx, accountID); err != nil {
		return nil, fmt.Errorf("failed to store account id: %w", err)
	}
	if len(txs) == 0 {
		return txs, nil
	}
	if _, err := s.cache.InsertTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("failed to cache transactions: %w", err)
	}
	return txs, nil
}

func (s *Session) fetchTransactions(ctx context.Context, accountID int32) ([]model.TransactionInfo, error) {
	if err := utils.ValidateAccountID(accountID); err != nil {
		return nil, err
	}
	return Call[[]model.TransactionInfo](ctx, s.dispatcher, model.GetTransactions{AccountID: accountID}).Unwrap()
}

// UpdateUser changes phone and password; later renewals use the new credentials.
func (s *Session) UpdateUser(ctx context.Context, newPhone, newPassword string) (model.UserAuthenticationResponse, error) {
	if err := utils.ValidatePhone(newPhone); err != nil {
		return model.UserAuthenticationResponse{}, err
	}
	if err := utils.ValidatePassword(newPassword); err != nil {
		return model.UserAuthenticationResponse{}, err
	}
	account, err := s.Account()
	if err != nil {
		return model.UserAuthenticationResponse{}, err
	}

	resp, err := Call[model.UserAuthenticationResponse](ctx, s.dispatcher, model.UpdateUser{
		CurrentPhoneNumber: account.OwnerPhoneNumber,
		NewPhoneNumber:     newPhone,
		NewPassword:        newPassword,
		Token:              s.scheduler.CurrentToken(),
	}).Unwrap()
	if err != nil {
		return resp, err
	}
	s.scheduler.SetCredentials(model.Login{PhoneNumber: newPhone, Password: newPassword})
	return resp, nil
}

// DeleteUser removes the account on the server and ends the session.
func (s *Session) DeleteUser(ctx context.Context) error {
	account, err := s.Account()
	if err != nil {
		return err
	}
	if _, err := Call[struct{}](ctx, s.dispatcher, model.DeleteUser{
		UserPhoneNumber: account.OwnerPhoneNumber,
		Token:           s.scheduler.CurrentToken(),
	}).Unwrap(); err != nil {
		return err
	}
	if err := s.cache.ClearAll(ctx); err != nil {
		s.logger.Warn("failed to clear cache after account deletion", zap.Error(err))
	}
	return s.Logout(ctx)
}

func (s *Session) Users(ctx context.Context) ([]model.UserInfo, error) {
	return Call[[]model.UserInfo](ctx, s.dispatcher, model.GetAllUsers{}).Unwrap()
}

// Logout stops renewals and forgets the persisted token. Cached history is kept
// until the next login.
func (s *Session) Logout(ctx context.Context) error {
	s.scheduler.Dismiss()

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.userID = 0
	s.account = nil
	s.mu.Unlock()

	if err := s.store.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.logger.Info("logged out")
	return nil
}

func (s *Session) Account() (model.AccountInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return model.AccountInfo{}, model.ErrNoActiveSession
	}
	return *s.account, nil
}

// History returns cached transactions matching filter, newest first.
func (s *Session) History(ctx context.Context, filter model.Filter) ([]model.TransactionInfo, error) {
	txs, err := s.cache.FetchFiltered(ctx, filter)
	if err != nil {
		return nil, err
	}
	return model.SortByTimeDesc(txs), nil
}
