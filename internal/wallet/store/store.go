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
	"github.com/MrJamesThe3rd/walletsync/internal/wallet"
)

type Store struct {
	db database.Pool
}

func New(db database.Pool) *Store {
	return &Store{db: db}
}

const selectWalletColumns = `
	id, user_id, name, type, currency, icon, color, balance::text, is_default, members,
	created_at, updated_at, deleted_at
`

// scanWallet reads a wallet row in selectWalletColumns order.
func scanWallet(row pgx.Row) (*wallet.Wallet, error) {
	var (
		w          wallet.Wallet
		typeStr    string
		balanceStr string
		members    []byte
	)

	if err := row.Scan(
		&w.ID, &w.UserID, &w.Name, &typeStr, &w.Currency, &w.Icon, &w.Color, &balanceStr, &w.IsDefault, &members,
		&w.CreatedAt, &w.UpdatedAt, &w.DeletedAt,
	); err != nil {
		return nil, err
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("parsing balance: %w", err)
	}

	w.Balance = balance
	w.Type = wallet.Type(typeStr)
	w.Normalize()

	if len(members) > 0 {
		if err := json.Unmarshal(members, &w.Members); err != nil {
			return nil, fmt.Errorf("decoding members: %w", err)
		}
	}

	return &w, nil
}

func walletArgs(w *wallet.Wallet) ([]any, error) {
	list := w.Members
	if list == nil {
		list = []wallet.Member{}
	}

	members, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encoding members: %w", err)
	}

	return []any{
		w.ID, w.UserID, w.Name, string(w.Type), w.Currency, w.Icon, w.Color, w.Balance.String(), w.IsDefault, members,
		w.CreatedAt, w.UpdatedAt, w.DeletedAt,
	}, nil
}

const insertWallet = `
	INSERT INTO wallets (id, user_id, name, type, currency, icon, color, balance, is_default, members,
		created_at, updated_at, deleted_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

func (s *Store) CreateWallet(ctx context.Context, w *wallet.Wallet) error {
	args, err := walletArgs(w)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, insertWallet, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return wallet.ErrAlreadyExists
		}

		return fmt.Errorf("creating wallet: %w", err)
	}

	return nil
}

// UpsertWallet inserts the wallet or replaces the stored row when it belongs to the same
// owner and is not newer than the incoming one.
func (s *Store) UpsertWallet(ctx context.Context, w *wallet.Wallet) error {
	query := insertWallet + `
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name, type = EXCLUDED.type, currency = EXCLUDED.currency,
		icon = EXCLUDED.icon, color = EXCLUDED.color, balance = EXCLUDED.balance,
		is_default = EXCLUDED.is_default, members = EXCLUDED.members,
		updated_at = EXCLUDED.updated_at, deleted_at = EXCLUDED.deleted_at
	WHERE wallets.user_id = EXCLUDED.user_id AND wallets.updated_at <= EXCLUDED.updated_at`

	args, err := walletArgs(w)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting wallet: %w", err)
	}

	return nil
}

func (s *Store) GetWallet(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	query := `SELECT ` + selectWalletColumns + ` FROM wallets WHERE id = $1`

	w, err := scanWallet(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrNotFound
		}

		return nil, fmt.Errorf("getting wallet: %w", err)
	}

	return w, nil
}

// visibleTo matches wallets the user owns or is a member of.
const visibleTo = `(user_id = $1 OR members @> jsonb_build_array(jsonb_build_object('userId', $1::text)))`

func (s *Store) ListWallets(ctx context.Context, userID uuid.UUID) ([]*wallet.Wallet, error) {
	query := `SELECT ` + selectWalletColumns + ` FROM wallets WHERE ` + visibleTo + ` ORDER BY created_at ASC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing wallets: %w", err)
	}

	return collectWallets(rows)
}

func (s *Store) ListActiveWallets(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*wallet.Wallet, int, error) {
	var total int

	countQuery := `SELECT COUNT(*) FROM wallets WHERE ` + visibleTo + ` AND deleted_at IS NULL`
	if err := s.db.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting wallets: %w", err)
	}

	query := `SELECT ` + selectWalletColumns + ` FROM wallets WHERE ` + visibleTo + ` AND deleted_at IS NULL
		ORDER BY created_at ASC LIMIT $2 OFFSET $3`

	rows, err := s.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing wallets: %w", err)
	}

	wallets, err := collectWallets(rows)
	if err != nil {
		return nil, 0, err
	}

	return wallets, total, nil
}

func collectWallets(rows pgx.Rows) ([]*wallet.Wallet, error) {
	defer rows.Close()

	var wallets []*wallet.Wallet

	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning wallet: %w", err)
		}

		wallets = append(wallets, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating wallet rows: %w", err)
	}

	return wallets, nil
}

func (s *Store) DeleteWallet(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE wallets
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`

	if _, err := s.db.Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("deleting wallet: %w", err)
	}

	return nil
}

// SetDefault flips the default flag inside one database transaction so a user never
// observes zero or two defaults.
func (s *Store) SetDefault(ctx context.Context, userID, id uuid.UUID, at time.Time) (err error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}

		if cerr := tx.Commit(ctx); cerr != nil {
			err = fmt.Errorf("committing transaction: %w", cerr)
		}
	}()

	clearQuery := `
		UPDATE wallets SET is_default = FALSE, updated_at = $3
		WHERE user_id = $1 AND id <> $2 AND is_default AND deleted_at IS NULL`
	if _, err = tx.Exec(ctx, clearQuery, userID, id, at); err != nil {
		return fmt.Errorf("clearing default: %w", err)
	}

	setQuery := `UPDATE wallets SET is_default = TRUE, updated_at = $3 WHERE user_id = $1 AND id = $2`
	if _, err = tx.Exec(ctx, setQuery, userID, id, at); err != nil {
		return fmt.Errorf("setting default: %w", err)
	}

	return nil
}
