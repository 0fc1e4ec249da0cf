package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/walletsync/internal/transaction"
)

type transactionRepository struct {
	client *Client
}

func NewTransactionRepository(client *Client) TransactionRepository {
	return &transactionRepository{client: client}
}

func (r *transactionRepository) Create(ctx context.Context, walletID uuid.UUID, tx *transaction.Transaction) (*transaction.Transaction, error) {
	return call[*transaction.Transaction](ctx, r.client, http.MethodPost, transactionsPath(walletID.String()), nil, tx)
}

func (r *transactionRepository) Update(ctx context.Context, walletID, id uuid.UUID, tx *transaction.Transaction) (*transaction.Transaction, error) {
	path := transactionsPath(walletID.String(), id.String())
	return call[*transaction.Transaction](ctx, r.client, http.MethodPut, path, nil, tx)
}

func (r *transactionRepository) Delete(ctx context.Context, walletID, id uuid.UUID) error {
	_, err := call[struct{}](ctx, r.client, http.MethodDelete, transactionsPath(walletID.String(), id.String()), nil, nil)
	return err
}

func (r *transactionRepository) GetByID(ctx context.Context, walletID, id uuid.UUID) (*transaction.Transaction, error) {
	path := transactionsPath(walletID.String(), id.String())
	return call[*transaction.Transaction](ctx, r.client, http.MethodGet, path, nil, nil)
}

func (r *transactionRepository) GetAll(
	ctx context.Context, walletID uuid.UUID, filter TransactionFilter, page, perPage int,
) (*Page[*transaction.Transaction], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	if filter.Type != "" {
		q.Set("type", string(filter.Type))
	}

	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}

	if filter.CategoryID != "" {
		q.Set("category_id", filter.CategoryID)
	}

	if filter.StartDate != nil {
		q.Set("start_date", filter.StartDate.UTC().Format(time.RFC3339Nano))
	}

	if filter.EndDate != nil {
		q.Set("end_date", filter.EndDate.UTC().Format(time.RFC3339Nano))
	}

	return call[*Page[*transaction.Transaction]](ctx, r.client, http.MethodGet, transactionsPath(walletID.String()), q, nil)
}

func (r *transactionRepository) GetSummary(ctx context.Context, walletID uuid.UUID, start, end time.Time) (*transaction.Summary, error) {
	q := url.Values{}
	q.Set("start_date", start.UTC().Format(time.RFC3339Nano))
	q.Set("end_date", end.UTC().Format(time.RFC3339Nano))

	return call[*transaction.Summary](ctx, r.client, http.MethodGet, transactionsPath(walletID.String(), "summary"), q, nil)
}

func (r *transactionRepository) SyncToRemote(
	ctx context.Context, walletID uuid.UUID, txs []*transaction.Transaction,
) ([]*transaction.Transaction, error) {
	return call[[]*transaction.Transaction](ctx, r.client, http.MethodPost, transactionsPath(walletID.String(), "sync"), nil, txs)
}

func (r *transactionRepository) FetchFromRemote(
	ctx context.Context, walletID uuid.UUID, since *time.Time,
) ([]*transaction.Transaction, error) {
	q := url.Values{}
	if since != nil {
		q.Set("since", since.UTC().Format(time.RFC3339Nano))
	}

	return call[[]*transaction.Transaction](ctx, r.client, http.MethodGet, transactionsPath(walletID.String(), "changes"), q, nil)
}
