package repo

import (
	"context"
	"testing"

	"bankclient/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func sampleTransactions() []model.TransactionInfo {
	return []model.TransactionInfo{
		{
			SenderPhoneNumber: "60000000", ReceiverPhoneNumber: "62222222",
			SendingAccountID: 1, ReceivingAccountID: 2,
			TransactionTime: 1000, Amount: decimal.NewFromInt(10), Comment: "rent",
		},
		{
			SenderPhoneNumber: "62222222", ReceiverPhoneNumber: "60000000",
			SendingAccountID: 2, ReceivingAccountID: 1,
			TransactionTime: 2000, Amount: decimal.RequireFromString("25.5"), Comment: "salary",
		},
		{
			SenderPhoneNumber: "60000000", ReceiverPhoneNumber: "63333333",
			SendingAccountID: 1, ReceivingAccountID: 3,
			TransactionTime: 3000, Amount: decimal.NewFromInt(99), Comment: "rent",
		},
	}
}

// exerciseStore runs the shared CacheStore contract against any implementation.
func exerciseStore(t *testing.T, store CacheStore) {
	ctx := context.Background()
	require.NoError(t, store.Clear(ctx))

	txs := sampleTransactions()
	stored, err := store.InsertTransactions(ctx, txs)
	require.NoError(t, err)
	require.Len(t, stored, len(txs))

	all, err := store.Transactions(ctx, model.Criteria{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := range txs {
		require.Equal(t, txs[i].TransactionTime, all[i].TransactionTime)
		require.True(t, txs[i].Amount.Equal(all[i].Amount))
	}

	rent, err := store.Transactions(ctx, model.CommentEquals{Text: "rent"}.Criteria(0))
	require.NoError(t, err)
	require.Len(t, rent, 2)
	require.Equal(t, int64(1000), rent[0].TransactionTime)
	require.Equal(t, int64(3000), rent[1].TransactionTime)

	outgoing, err := store.Transactions(ctx, model.Outgoing{}.Criteria(1))
	require.NoError(t, err)
	require.Len(t, outgoing, 2)

	between, err := store.Transactions(ctx, model.AmountBetween{Lo: decimal.NewFromInt(10), Hi: decimal.RequireFromString("25.5")}.Criteria(0))
	require.NoError(t, err)
	require.Len(t, between, 2)

	window, err := store.Transactions(ctx, model.TimeBetween{Lo: 1500, Hi: 3000}.Criteria(0))
	require.NoError(t, err)
	require.Len(t, window, 2)

	require.NoError(t, store.InsertAccountID(ctx, 1))
	ids, err := store.AccountIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []int32{1}, ids)

	require.NoError(t, store.Clear(ctx))
	all, err = store.Transactions(ctx, model.Criteria{})
	require.NoError(t, err)
	require.Empty(t, all)
	ids, err = store.AccountIDs(ctx)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_InsertCopiesInput(t *testing.T) {
	store := NewMemoryStore()
	txs := sampleTransactions()
	_, err := store.InsertTransactions(context.Background(), txs)
	require.NoError(t, err)

	txs[0].Comment = "mutated"
	all, err := store.Transactions(context.Background(), model.Criteria{})
	require.NoError(t, err)
	require.Equal(t, "rent", all[0].Comment)
}
