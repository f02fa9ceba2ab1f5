package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"bankclient/internal/model"
	"bankclient/internal/repo"

	"go.uber.org/zap"
)

var ErrCacheClosed = errors.New("cache closed")

// Cache serialises every access to the store through one goroutine.
type Cache struct {
	store  repo.CacheStore
	events repo.Kafka
	clock  Clock
	logger *zap.Logger

	reqs      chan func()
	done      chan struct{}
	closeOnce sync.Once
}

func NewCache(store repo.CacheStore, events repo.Kafka, clock Clock, logger *zap.Logger) *Cache {
	c := &Cache{
		store:  store,
		events: events,
		clock:  clock,
		logger: logger.With(zap.String("component", "cache")),
		reqs:   make(chan func()),
		done:   make(chan struct{}),
	}
	go c.loop()
	return c
}

func (c *Cache) loop() {
	for {
		select {
		case f := <-c.reqs:
			f()
		case <-c.done:
			return
		}
	}
}

// Close stops the owner goroutine. Later calls fail with ErrCacheClosed.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func submit[T any](ctx context.Context, c *Cache, f func() (T, error)) (T, error) {
	var (
		res T
		err error
	)
	finished := make(chan struct{})
	job := func() {
		defer close(finished)
		res, err = f()
	}
	select {
	case c.reqs <- job:
	case <-c.done:
		return res, ErrCacheClosed
	case <-ctx.Done():
		return res, ctx.Err()
	}
	<-finished
	return res, err
}

func (c *Cache) InsertAccountID(ctx context.Context, id int32) error {
	_, err := submit(ctx, c, func() (struct{}, error) {
		return struct{}{}, c.store.InsertAccountID(ctx, id)
	})
	return err
}

// InsertTransactions appends txs in order and returns the records as stored.
func (c *Cache) InsertTransactions(ctx context.Context, txs []model.TransactionInfo) ([]model.TransactionInfo, error) {
	stored, err := submit(ctx, c, func() ([]model.TransactionInfo, error) {
		return c.store.InsertTransactions(ctx, txs)
	})
	if err != nil {
		return nil, err
	}
	cachedTransactions.Add(float64(len(stored)))
	c.publish(ctx, stored)
	return stored, nil
}

func (c *Cache) FetchAllTransactions(ctx context.Context) ([]model.TransactionInfo, error) {
	return submit(ctx, c, func() ([]model.TransactionInfo, error) {
		return c.store.Transactions(ctx, model.Criteria{})
	})
}

// FetchAccountID returns the account id of the active session.
func (c *Cache) FetchAccountID(ctx context.Context) (int32, error) {
	return submit(ctx, c, func() (int32, error) {
		return c.activeAccountID(ctx)
	})
}

func (c *Cache) FetchFiltered(ctx context.Context, filter model.Filter) ([]model.TransactionInfo, error) {
	return submit(ctx, c, func() ([]model.TransactionInfo, error) {
		var accountID int32
		if filter.NeedsAccount() {
			id, err := c.activeAccountID(ctx)
			if err != nil {
				return nil, err
			}
			accountID = id
		}
		return c.store.Transactions(ctx, filter.Criteria(accountID))
	})
}

func (c *Cache) ClearAll(ctx context.Context) error {
	_, err := submit(ctx, c, func() (struct{}, error) {
		return struct{}{}, c.store.Clear(ctx)
	})
	return err
}

// activeAccountID must run on the owner goroutine.
func (c *Cache) activeAccountID(ctx context.Context) (int32, error) {
	ids, err := c.store.AccountIDs(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) != 1 {
		return 0, fmt.Errorf("%w: %d cached account ids", model.ErrNoActiveSession, len(ids))
	}
	return ids[0], nil
}

func (c *Cache) publish(ctx context.Context, txs []model.TransactionInfo) {
	if c.events == nil {
		return
	}
	now := c.clock.Now().UnixMilli()
	for _, tx := range txs {
		payload, err := json.Marshal(model.ActivityEvent{
			Type:        model.ActivityTransactionCached,
			Transaction: tx,
			CachedAt:    now,
		})
		if err != nil {
			c.logger.Error("failed to encode activity event", zap.Error(err))
			continue
		}
		key := strconv.Itoa(int(tx.SendingAccountID))
		if err := c.events.Publish(ctx, key, string(payload)); err != nil {
			c.logger.Warn("failed to publish activity event", zap.String("key", key), zap.Error(err))
		}
	}
}
