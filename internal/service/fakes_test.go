package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"bankclient/config"
	"bankclient/internal/model"
	"bankclient/internal/repo"

	"go.uber.org/zap"
)

var epoch = time.UnixMilli(1_700_000_000_000)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward and runs, in deadline order, the timers that were due
// when it was called. Timers created by those callbacks wait for the next Advance.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fakeTransport struct {
	mu      sync.Mutex
	calls   []model.Operation
	replies []reply
	// served is set once the last reply has been handed out and is repeating.
	served bool
	// When gate is set, Do signals entered and then waits on gate before replying.
	gate    chan struct{}
	entered chan struct{}
}

// hold makes the next calls block until the returned release func is called.
func (f *fakeTransport) hold() (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.entered = make(chan struct{}, 1)
	gate := f.gate
	return f.entered, func() { close(gate) }
}

type reply struct {
	status int
	body   string
	err    error
}

// queue adds replies served in order; the last one repeats until more are queued.
func (f *fakeTransport) queue(r ...reply) *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.served {
		f.replies = nil
		f.served = false
	}
	f.replies = append(f.replies, r...)
	return f
}

func (f *fakeTransport) Do(_ context.Context, op model.Operation) (*repo.Response, error) {
	r, gate, entered, err := f.next(op)
	if err != nil {
		return nil, err
	}
	if gate != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-gate
	}
	if r.err != nil {
		return nil, r.err
	}
	return &repo.Response{StatusCode: r.status, Body: []byte(r.body)}, nil
}

func (f *fakeTransport) next(op model.Operation) (reply, chan struct{}, chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	if len(f.replies) == 0 {
		return reply{}, nil, nil, fmt.Errorf("no reply queued for %s", op.Kind())
	}
	r := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	} else {
		f.served = true
	}
	return r, f.gate, f.entered, nil
}

func (f *fakeTransport) recorded() []model.Operation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Operation(nil), f.calls...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []model.ActivityEvent
}

func (p *recordingPublisher) Publish(_ context.Context, key, value string) error {
	var ev model.ActivityEvent
	if err := json.Unmarshal([]byte(value), &ev); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.events = append(p.events, ev)
	return nil
}

type testStack struct {
	clock      *fakeClock
	transport  *fakeTransport
	store      *repo.MemoryStore
	events     *recordingPublisher
	cache      *Cache
	dispatcher *Dispatcher
	scheduler  *TokenScheduler
	sessions   *repo.MemorySessionStore
	session    *Session
}

func testConfig() *config.Config {
	return &config.Config{
		Renewal: config.RenewalConfig{Margin: 10 * time.Second, RetryInterval: 5 * time.Second},
	}
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	logger := zap.NewNop()
	s := &testStack{
		clock:     newFakeClock(),
		transport: &fakeTransport{},
		store:     repo.NewMemoryStore(),
		events:    &recordingPublisher{},
		sessions:  repo.NewMemorySessionStore(),
	}
	s.cache = NewCache(s.store, s.events, s.clock, logger)
	t.Cleanup(s.cache.Close)
	s.dispatcher = NewDispatcher(s.transport, s.cache, logger)
	s.scheduler = NewTokenScheduler(testConfig(), s.dispatcher, s.clock, logger)
	s.session = NewSession(s.dispatcher, s.scheduler, s.cache, s.sessions, s.clock, logger)
	return s
}

func authBody(validUntil int64, token string) string {
	return fmt.Sprintf(`{"userId":7,"validUntil":%d,"accessToken":%q,"accountInfo":{"id":11,"currency":"EUR","balance":100.5,"ownerPhoneNumber":"60000000"}}`,
		validUntil, token)
}

const historyBody = `[
	{"senderPhoneNumber":"60000000","receiverPhoneNumber":"62222222","sendingAccountId":11,"receivingAccountId":12,"transactionTime":1000,"amount":10,"comment":"rent"},
	{"senderPhoneNumber":"62222222","receiverPhoneNumber":"60000000","sendingAccountId":12,"receivingAccountId":11,"transactionTime":2000,"amount":25.5,"comment":"salary"}
]`
