package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/walletsync/internal/database"
	"github.com/MrJamesThe3rd/walletsync/internal/transaction"
)

type Store struct {
	db database.Pool
}

func New(db database.Pool) *Store {
	return &Store{db: db}
}

const selectTransactionColumns = `
	id, user_id, wallet_id, amount::text, type, status, category_id, description, notes, date,
	is_recurring, recurrence, recurrence_end_date, parent_transaction_id,
	attachments, tags, location, metadata,
	created_at, updated_at, deleted_at
`

const insertTransaction = `
	INSERT INTO transactions (id, user_id, wallet_id, amount, type, status, category_id, description, notes, date,
		is_recurring, recurrence, recurrence_end_date, parent_transaction_id,
		attachments, tags, location, metadata,
		created_at, updated_at, deleted_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var (
		tx                                        transaction.Transaction
		amountStr, typeStr, statusStr, recurrence string
		attachments, tags, location, metadata     []byte
	)

	if err := row.Scan(
		&tx.ID, &tx.UserID, &tx.WalletID, &amountStr, &typeStr, &statusStr, &tx.CategoryID, &tx.Description, &tx.Notes, &tx.Date,
		&tx.IsRecurring, &recurrence, &tx.RecurrenceEndDate, &tx.ParentTransactionID,
		&attachments, &tags, &location, &metadata,
		&tx.CreatedAt, &tx.UpdatedAt, &tx.DeletedAt,
	); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parsing amount: %w", err)
	}

	tx.Amount = amount
	tx.Type = transaction.Type(typeStr)
	tx.Status = transaction.Status(statusStr)
	tx.Recurrence = transaction.Recurrence(recurrence)

	for _, f := range []struct {
		raw  []byte
		dst  any
		name string
	}{
		{attachments, &tx.Attachments, "attachments"},
		{tags, &tx.Tags, "tags"},
		{location, &tx.Location, "location"},
		{metadata, &tx.Metadata, "metadata"},
	} {
		if len(f.raw) == 0 {
			continue
		}

		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", f.name, err)
		}
	}

	return &tx, nil
}

func transactionArgs(tx *transaction.Transaction) ([]any, error) {
	attachments := tx.Attachments
	if attachments == nil {
		attachments = []transaction.Attachment{}
	}

	tags := tx.Tags
	if tags == nil {
		tags = []string{}
	}

	metadata := tx.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	encAttachments, err := json.Marshal(attachments)
	if err != nil {
		return nil, fmt.Errorf("encoding attachments: %w", err)
	}

	encTags, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encoding tags: %w", err)
	}

	encMetadata, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}

	var encLocation []byte

	if tx.Location != nil {
		if encLocation, err = json.Marshal(tx.Location); err != nil {
			return nil, fmt.Errorf("encoding location: %w", err)
		}
	}

	return []any{
		tx.ID, tx.UserID, tx.WalletID, tx.Amount.String(), string(tx.Type), string(tx.Status),
		tx.CategoryID, tx.Description, tx.Notes, tx.Date,
		tx.IsRecurring, string(tx.Recurrence), tx.RecurrenceEndDate, tx.ParentTransactionID,
		encAttachments, encTags, encLocation, encMetadata,
		tx.CreatedAt, tx.UpdatedAt, tx.DeletedAt,
	}, nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	args, err := transactionArgs(tx)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, insertTransaction, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return transaction.ErrAlreadyExists
		}

		return fmt.Errorf("creating transaction: %w", err)
	}

	return nil
}

func (s *Store) GetTransaction(ctx context.Context, walletID, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE wallet_id = $1 AND id = $2 AND deleted_at IS NULL`

	tx, err := scanTransaction(s.db.QueryRow(ctx, query, walletID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET user_id = $2, amount = $4, type = $5, status = $6, category_id = $7, description = $8, notes = $9,
			date = $10, is_recurring = $11, recurrence = $12, recurrence_end_date = $13, parent_transaction_id = $14,
			attachments = $15, tags = $16, location = $17, metadata = $18, updated_at = $19
		WHERE id = $1 AND wallet_id = $3 AND deleted_at IS NULL
	`

	all, err := transactionArgs(tx)
	if err != nil {
		return err
	}

	// created_at and deleted_at are not touched by an update
	args := append(all[:18:18], all[19])

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating transaction: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return transaction.ErrNotFound
	}

	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, walletID, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE transactions
		SET deleted_at = $3, updated_at = $3
		WHERE wallet_id = $1 AND id = $2 AND deleted_at IS NULL
	`

	tag, err := s.db.Exec(ctx, query, walletID, id, at)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return transaction.ErrNotFound
	}

	return nil
}

func (s *Store) ListTransactions(
	ctx context.Context, walletID uuid.UUID, filter transaction.ListFilter, limit, offset int,
) ([]*transaction.Transaction, int, error) {
	where := ` FROM transactions WHERE wallet_id = $1 AND deleted_at IS NULL`
	args := []any{walletID}
	argIdx := 2

	if filter.Type != nil {
		where += fmt.Sprintf(" AND type = $%d", argIdx)

		args = append(args, string(*filter.Type))
		argIdx++
	}

	if filter.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argIdx)

		args = append(args, string(*filter.Status))
		argIdx++
	}

	if filter.CategoryID != nil {
		where += fmt.Sprintf(" AND category_id = $%d", argIdx)

		args = append(args, *filter.CategoryID)
		argIdx++
	}

	if filter.StartDate != nil {
		where += fmt.Sprintf(" AND date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		where += fmt.Sprintf(" AND date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting transactions: %w", err)
	}

	query := `SELECT ` + selectTransactionColumns + where + ` ORDER BY date DESC, id`

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)

		args = append(args, limit, offset)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing transactions: %w", err)
	}

	txs, err := collectTransactions(rows)
	if err != nil {
		return nil, 0, err
	}

	return txs, total, nil
}

// upsertTransaction keeps the stored row when it is strictly newer than the incoming
// one or belongs to another wallet. RETURNING yields no row in that case.
const upsertTransaction = insertTransaction + `
	ON CONFLICT (id) DO UPDATE SET
		user_id = EXCLUDED.user_id, amount = EXCLUDED.amount, type = EXCLUDED.type, status = EXCLUDED.status,
		category_id = EXCLUDED.category_id, description = EXCLUDED.description, notes = EXCLUDED.notes,
		date = EXCLUDED.date, is_recurring = EXCLUDED.is_recurring, recurrence = EXCLUDED.recurrence,
		recurrence_end_date = EXCLUDED.recurrence_end_date, parent_transaction_id = EXCLUDED.parent_transaction_id,
		attachments = EXCLUDED.attachments, tags = EXCLUDED.tags, location = EXCLUDED.location,
		metadata = EXCLUDED.metadata, updated_at = EXCLUDED.updated_at, deleted_at = EXCLUDED.deleted_at
	WHERE transactions.wallet_id = EXCLUDED.wallet_id AND transactions.updated_at <= EXCLUDED.updated_at
	RETURNING id`

func (s *Store) UpsertTransactions(ctx context.Context, walletID uuid.UUID, txs []*transaction.Transaction) (ids []uuid.UUID, err error) {
	dbTx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = dbTx.Rollback(ctx)
			return
		}

		if cerr := dbTx.Commit(ctx); cerr != nil {
			ids = nil
			err = fmt.Errorf("committing transaction: %w", cerr)
		}
	}()

	ids = make([]uuid.UUID, 0, len(txs))

	for _, tx := range txs {
		if tx.WalletID != walletID {
			continue
		}

		args, aerr := transactionArgs(tx)
		if aerr != nil {
			return nil, aerr
		}

		var id uuid.UUID

		err = dbTx.QueryRow(ctx, upsertTransaction, args...).Scan(&id)

		switch {
		case err == nil:
			ids = append(ids, id)
		case errors.Is(err, pgx.ErrNoRows):
			err = nil
		default:
			return nil, fmt.Errorf("upserting transaction %s: %w", tx.ID, err)
		}
	}

	return ids, nil
}

func (s *Store) ChangesSince(ctx context.Context, walletID uuid.UUID, since *time.Time) ([]*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + ` FROM transactions WHERE wallet_id = $1`
	args := []any{walletID}

	if since != nil {
		query += ` AND updated_at > $2`

		args = append(args, *since)
	}

	query += ` ORDER BY updated_at ASC, id`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching changes: %w", err)
	}

	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]*transaction.Transaction, error) {
	defer rows.Close()

	txs := []*transaction.Transaction{}

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}

	return txs, nil
}
