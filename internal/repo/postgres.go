package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bankclient/config"
	"bankclient/internal/model"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS cached_transactions (
    seq                   BIGSERIAL PRIMARY KEY,
    sender_phone_number   TEXT    NOT NULL,
    receiver_phone_number TEXT    NOT NULL,
    sending_account_id    INTEGER NOT NULL,
    receiving_account_id  INTEGER NOT NULL,
    transaction_time      BIGINT  NOT NULL,
    amount                NUMERIC NOT NULL,
    comment               TEXT    NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS cached_account_ids (
    seq        BIGSERIAL PRIMARY KEY,
    account_id INTEGER NOT NULL
);`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresDB(config *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", config.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (r *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create cache schema: %w", err)
	}
	return nil
}

func (r *PostgresStore) InsertAccountID(ctx context.Context, id int32) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO cached_account_ids (account_id) VALUES ($1)`, id)
	if err != nil {
		return fmt.Errorf("failed to insert account id: %w", err)
	}
	return nil
}

func (r *PostgresStore) AccountIDs(ctx context.Context) ([]int32, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT account_id FROM cached_account_ids ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query account ids: %w", err)
	}
	defer rows.Close()

	var ids []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PostgresStore) InsertTransactions(ctx context.Context, txs []model.TransactionInfo) (stored []model.TransactionInfo, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cached_transactions
		    (sender_phone_number, receiver_phone_number, sending_account_id,
		     receiving_account_id, transaction_time, amount, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for _, t := range txs {
		if _, err = stmt.ExecContext(ctx,
			t.SenderPhoneNumber, t.ReceiverPhoneNumber, t.SendingAccountID,
			t.ReceivingAccountID, t.TransactionTime, t.Amount, t.Comment,
		); err != nil {
			return nil, fmt.Errorf("failed to insert transaction: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	stored = make([]model.TransactionInfo, len(txs))
	copy(stored, txs)
	return stored, nil
}

func (r *PostgresStore) Transactions(ctx context.Context, c model.Criteria) ([]model.TransactionInfo, error) {
	where, args := whereClause(c)
	rows, err := r.db.QueryContext(ctx, `
		SELECT sender_phone_number, receiver_phone_number, sending_account_id,
		       receiving_account_id, transaction_time, amount, comment
		FROM cached_transactions`+where+`
		ORDER BY seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	txs := []model.TransactionInfo{}
	for rows.Next() {
		var t model.TransactionInfo
		if err := rows.Scan(
			&t.SenderPhoneNumber, &t.ReceiverPhoneNumber, &t.SendingAccountID,
			&t.ReceivingAccountID, &t.TransactionTime, &t.Amount, &t.Comment,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *PostgresStore) Clear(ctx context.Context) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM cached_transactions`); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM cached_account_ids`); err != nil {
		return err
	}
	return tx.Commit()
}

// whereClause compiles criteria into the same predicate Criteria.Match evaluates in memory.
func whereClause(c model.Criteria) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(expr string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}
	if c.SendingAccountID != nil {
		add("sending_account_id = $%d", *c.SendingAccountID)
	}
	if c.ReceivingAccountID != nil {
		add("receiving_account_id = $%d", *c.ReceivingAccountID)
	}
	if c.Comment != nil {
		add("comment = $%d", *c.Comment)
	}
	if c.ReceiverPhoneNumber != nil {
		add("receiver_phone_number = $%d", *c.ReceiverPhoneNumber)
	}
	if c.MinAmount != nil {
		add("amount >= $%d", *c.MinAmount)
	}
	if c.MaxAmount != nil {
		add("amount <= $%d", *c.MaxAmount)
	}
	if c.FromTime != nil {
		add("transaction_time >= $%d", *c.FromTime)
	}
	if c.ToTime != nil {
		add("transaction_time <= $%d", *c.ToTime)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(conds, " AND "), args
}
