package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"bankclient/config"
	"bankclient/internal/model"
	"bankclient/internal/repo"
	"bankclient/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func loggedIn(t *testing.T, s *testStack) {
	t.Helper()
	s.transport.queue(
		reply{status: 200, body: authBody(epoch.UnixMilli()+60_000, "tok")},
		reply{status: 200, body: historyBody},
	)
	_, err := s.session.Login(context.Background(), "60000000", "pw")
	require.NoError(t, err)
}

func TestSession_Login(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	seedCache(t, s.cache, 99)

	loggedIn(t, s)

	ops := s.transport.recorded()
	require.Len(t, ops, 2)
	require.Equal(t, model.Login{PhoneNumber: "60000000", Password: "pw"}, ops[0])
	require.Equal(t, model.GetTransactions{AccountID: 11}, ops[1])

	id, err := s.cache.FetchAccountID(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(11), id)

	all, err := s.cache.FetchAllTransactions(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"rent", "salary"}, comments(all))

	account, err := s.session.Account()
	require.NoError(t, err)
	require.Equal(t, "60000000", account.OwnerPhoneNumber)
	require.True(t, decimal.RequireFromString("100.5").Equal(account.Balance))

	require.Equal(t, StateArmed, s.scheduler.State())
	require.Equal(t, epoch.Add(50*time.Second), s.scheduler.NextRenewal())

	persisted, err := s.sessions.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, persisted)
	require.Equal(t, "tok", persisted.AccessToken)
}

func TestSession_LoginRejected(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	seedCache(t, s.cache, 99)
	s.transport.queue(reply{status: http.StatusUnauthorized})

	_, err := s.session.Login(ctx, "60000000", "bad")
	require.ErrorIs(t, err, model.ErrLoginDetailsWrong)

	id, err := s.cache.FetchAccountID(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(99), id)
	require.Equal(t, StateIdle, s.scheduler.State())
}

func TestSession_LoginSurvivesHistoryFailure(t *testing.T) {
	s := newTestStack(t)
	s.transport.queue(
		reply{status: 200, body: authBody(epoch.UnixMilli()+60_000, "tok")},
		reply{status: http.StatusBadRequest},
	)

	resp, err := s.session.Login(context.Background(), "60000000", "pw")
	require.NoError(t, err)
	require.Equal(t, "tok", resp.AccessToken)
}

func TestSession_RejectsMalformedInput(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)

	_, err := s.session.Login(ctx, "", "pw")
	require.ErrorIs(t, err, utils.ErrInvalidInput)
	_, err = s.session.Register(ctx, "60000000", "pw", "euro")
	require.ErrorIs(t, err, utils.ErrInvalidInput)

	loggedIn(t, s)
	before := len(s.transport.recorded())
	_, err = s.session.Deposit(ctx, decimal.NewFromInt(-1))
	require.ErrorIs(t, err, utils.ErrInvalidInput)
	_, err = s.session.SendMoney(ctx, "62222222", decimal.Zero, "")
	require.ErrorIs(t, err, utils.ErrInvalidInput)
	require.Len(t, s.transport.recorded(), before)
}

func TestSession_RequiresLogin(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)

	_, err := s.session.Deposit(ctx, decimal.NewFromInt(5))
	require.ErrorIs(t, err, model.ErrNoActiveSession)
	_, err = s.session.SendMoney(ctx, "62222222", decimal.NewFromInt(5), "")
	require.ErrorIs(t, err, model.ErrNoActiveSession)
	_, err = s.session.SyncTransactions(ctx)
	require.ErrorIs(t, err, model.ErrNoActiveSession)
	require.ErrorIs(t, s.session.DeleteUser(ctx), model.ErrNoActiveSession)
	require.Empty(t, s.transport.recorded())
}

func TestSession_Deposit(t *testing.T) {
	s := newTestStack(t)
	loggedIn(t, s)
	s.transport.queue(reply{status: 200, body: `{"id":11,"currency":"EUR","balance":150.5,"ownerPhoneNumber":"60000000"}`})

	account, err := s.session.Deposit(context.Background(), decimal.NewFromInt(50))
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("150.5").Equal(account.Balance))

	ops := s.transport.recorded()
	require.Equal(t, model.UpdateBalance{AccountID: 11, AmountToAdd: decimal.NewFromInt(50)}, ops[len(ops)-1])

	current, err := s.session.Account()
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("150.5").Equal(current.Balance))
}

func TestSession_SendMoney(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	loggedIn(t, s)
	s.transport.queue(reply{status: 200, body: `{"senderPhoneNumber":"60000000","receiverPhoneNumber":"62222222","sendingAccountId":11,"receivingAccountId":12,"transactionTime":3000,"amount":7,"comment":"lunch"}`})

	tx, err := s.session.SendMoney(ctx, "62222222", decimal.NewFromInt(7), "lunch")
	require.NoError(t, err)
	require.NotNil(t, tx)

	ops := s.transport.recorded()
	sent := ops[len(ops)-1].(model.MakeTransaction)
	require.Equal(t, "tok", sent.Request.Token)
	require.Equal(t, "60000000", sent.Request.SenderPhoneNumber)
	require.Equal(t, int32(11), sent.Request.SenderAccountID)

	out, err := s.session.History(ctx, model.Outgoing{})
	require.NoError(t, err)
	require.Equal(t, []string{"lunch", "rent"}, comments(out))
}

func TestSession_SyncReplacesHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	loggedIn(t, s)
	s.transport.queue(reply{status: 200, body: historyBody})

	_, err := s.session.SyncTransactions(ctx)
	require.NoError(t, err)
	_, err = s.session.SyncTransactions(ctx)
	require.NoError(t, err)

	all, err := s.cache.FetchAllTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	incoming, err := s.session.History(ctx, model.Incoming{})
	require.NoError(t, err)
	require.Equal(t, []string{"salary"}, comments(incoming))
}

func TestSession_UpdateUserChangesRenewalCredentials(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	loggedIn(t, s)
	s.transport.queue(reply{status: 200, body: authBody(epoch.UnixMilli()+60_000, "tok-2")})

	_, err := s.session.UpdateUser(ctx, "61111111", "pw2")
	require.NoError(t, err)

	ops := s.transport.recorded()
	require.Equal(t, model.UpdateUser{
		CurrentPhoneNumber: "60000000", NewPhoneNumber: "61111111", NewPassword: "pw2", Token: "tok",
	}, ops[len(ops)-1])
	require.Equal(t, "tok-2", s.scheduler.CurrentToken())

	s.clock.Advance(50 * time.Second)
	logins := loginCalls(s.transport.recorded())
	require.Equal(t, model.Login{PhoneNumber: "61111111", Password: "pw2"}, logins[len(logins)-1])
}

func TestSession_Logout(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	loggedIn(t, s)

	require.NoError(t, s.session.Logout(ctx))

	require.Equal(t, StateIdle, s.scheduler.State())
	_, err := s.session.Account()
	require.ErrorIs(t, err, model.ErrNoActiveSession)

	persisted, err := s.sessions.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, persisted)

	all, err := s.cache.FetchAllTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestSession_DeleteUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	loggedIn(t, s)
	s.transport.queue(reply{status: 200})

	require.NoError(t, s.session.DeleteUser(ctx))

	ops := s.transport.recorded()
	require.Equal(t, model.DeleteUser{UserPhoneNumber: "60000000", Token: "tok"}, ops[len(ops)-1])
	require.Equal(t, StateIdle, s.scheduler.State())
	all, err := s.cache.FetchAllTransactions(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestSession_Restore(t *testing.T) {
	ctx := context.Background()
	first := newTestStack(t)
	loggedIn(t, first)

	second := newTestStack(t)
	second.session.store = first.sessions

	ok, err := second.session.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok", second.scheduler.CurrentToken())
	require.Equal(t, StateArmed, second.scheduler.State())
	account, err := second.session.Account()
	require.NoError(t, err)
	require.Equal(t, int32(11), account.ID)

	empty := newTestStack(t)
	ok, err = empty.session.Restore(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSession_Users(t *testing.T) {
	s := newTestStack(t)
	s.transport.queue(reply{status: 200, body: `[{"id":1,"phoneNumber":"60000000"}]`})

	users, err := s.session.Users(context.Background())
	require.NoError(t, err)
	require.Equal(t, []model.UserInfo{{ID: 1, PhoneNumber: "60000000"}}, users)
}

// bankServer is a minimal stand-in for the remote API.
type bankServer struct {
	mu     sync.Mutex
	clock  *fakeClock
	logins []map[string]string
}

func (b *bankServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/User/login":
		var body map[string]string
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		b.mu.Lock()
		b.logins = append(b.logins, body)
		n := len(b.logins)
		b.mu.Unlock()
		_, _ = fmt.Fprint(w, authBody(b.clock.Now().UnixMilli()+60_000, fmt.Sprintf("tok-%d", n)))
	case r.Method == http.MethodGet && r.URL.Path == "/api/Transactions":
		_, _ = fmt.Fprint(w, historyBody)
	case r.Method == http.MethodPost && r.URL.Path == "/api/Transactions":
		w.WriteHeader(http.StatusConflict)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *bankServer) login(i int) map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logins[i]
}

func (b *bankServer) loginCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.logins)
}

func TestSession_EndToEnd(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	bank := &bankServer{clock: clock}
	srv := httptest.NewServer(bank)
	t.Cleanup(srv.Close)

	cfg := testConfig()
	cfg.API = config.APIConfig{BaseURL: srv.URL + "/api", Timeout: 5 * time.Second}

	logger := zap.NewNop()
	events := &recordingPublisher{}
	store := repo.NewMemoryStore()
	cache := NewCache(store, events, clock, logger)
	t.Cleanup(cache.Close)
	dispatcher := NewDispatcher(repo.NewAPIClient(cfg, nil), cache, logger)
	scheduler := NewTokenScheduler(cfg, dispatcher, clock, logger)
	session := NewSession(dispatcher, scheduler, cache, repo.NewMemorySessionStore(), clock, logger)

	resp, err := session.Login(ctx, "60000000", "pw")
	require.NoError(t, err)
	require.Equal(t, "tok-1", resp.AccessToken)
	require.Equal(t, clock.Now().Add(50*time.Second), scheduler.NextRenewal())

	clock.Advance(59 * time.Second)
	require.Equal(t, 2, bank.loginCount())
	require.Equal(t, map[string]string{"phoneNumber": "60000000", "password": "pw"}, bank.login(1))
	require.Equal(t, "tok-2", scheduler.CurrentToken())
	require.Equal(t, clock.Now().Add(50*time.Second), scheduler.NextRenewal())

	before, err := cache.FetchAllTransactions(ctx)
	require.NoError(t, err)

	_, err = session.SendMoney(ctx, "62222222", decimal.NewFromInt(1_000_000), "too much")
	require.ErrorIs(t, err, model.ErrReceiverHasNoCurrencyOrInsufficientFunds)

	after, err := cache.FetchAllTransactions(ctx)
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.Len(t, after, 2)
}

func TestSession_FailedSyncKeepsHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	loggedIn(t, s)

	failures := map[string]reply{
		"transport":  {err: errors.New("offline")},
		"rejected":   {status: http.StatusBadRequest},
		"bad_answer": {status: 200, body: `{"not":"a list"}`},
	}
	for name, r := range failures {
		t.Run(name, func(t *testing.T) {
			s.transport.queue(r)

			_, err := s.session.SyncTransactions(ctx)
			require.Error(t, err)

			all, err := s.cache.FetchAllTransactions(ctx)
			require.NoError(t, err)
			require.Equal(t, []string{"rent", "salary"}, comments(all))

			id, err := s.cache.FetchAccountID(ctx)
			require.NoError(t, err)
			require.Equal(t, int32(11), id)
		})
	}
}

func TestSession_SyncRejectsInvalidAccountID(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	require.NoError(t, s.cache.InsertAccountID(ctx, 0))

	_, err := s.session.SyncTransactions(ctx)
	require.ErrorIs(t, err, utils.ErrInvalidInput)
	require.Empty(t, s.transport.recorded())
}

func TestSession_LogoutDuringRenewalStaysLoggedOut(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	loggedIn(t, s)
	s.transport.queue(reply{status: 200, body: authBody(epoch.UnixMilli()+200_000, "tok-renewed")})
	entered, release := s.transport.hold()

	renewed := make(chan struct{})
	go func() {
		defer close(renewed)
		s.clock.Advance(50 * time.Second)
	}()
	<-entered

	require.NoError(t, s.session.Logout(ctx))
	release()
	<-renewed

	require.Equal(t, StateIdle, s.scheduler.State())
	require.Empty(t, s.scheduler.CurrentToken())
	require.Zero(t, s.clock.pending())

	_, err := s.session.Account()
	require.ErrorIs(t, err, model.ErrNoActiveSession)

	persisted, err := s.sessions.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, persisted)
}
