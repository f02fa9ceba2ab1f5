package repo

import (
	"context"
	"sync"

	"bankclient/internal/model"
)

// CacheStore persists the device-local replica of transactions and the active account id.
// Fetches return records in insertion order.
type CacheStore interface {
	InsertAccountID(ctx context.Context, id int32) error
	AccountIDs(ctx context.Context) ([]int32, error)
	InsertTransactions(ctx context.Context, txs []model.TransactionInfo) ([]model.TransactionInfo, error)
	Transactions(ctx context.Context, c model.Criteria) ([]model.TransactionInfo, error)
	Clear(ctx context.Context) error
}

type MemoryStore struct {
	mu         sync.RWMutex
	accountIDs []int32
	txs        []model.TransactionInfo
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) InsertAccountID(_ context.Context, id int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accountIDs = append(m.accountIDs, id)
	return nil
}

func (m *MemoryStore) AccountIDs(context.Context) ([]int32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int32, len(m.accountIDs))
	copy(out, m.accountIDs)
	return out, nil
}

func (m *MemoryStore) InsertTransactions(_ context.Context, txs []model.TransactionInfo) ([]model.TransactionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]model.TransactionInfo, len(txs))
	copy(stored, txs)
	m.txs = append(m.txs, stored...)
	return stored, nil
}

func (m *MemoryStore) Transactions(_ context.Context, c model.Criteria) ([]model.TransactionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.TransactionInfo, 0, len(m.txs))
	for _, tx := range m.txs {
		if c.Match(tx) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accountIDs = nil
	m.txs = nil
	return nil
}
