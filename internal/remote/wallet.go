package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/walletsync/internal/wallet"
)

type walletRepository struct {
	client *Client
}

func NewWalletRepository(client *Client) WalletRepository {
	return &walletRepository{client: client}
}

func (r *walletRepository) Create(ctx context.Context, w *wallet.Wallet) (*wallet.Wallet, error) {
	return call[*wallet.Wallet](ctx, r.client, http.MethodPost, walletPath(), nil, w)
}

func (r *walletRepository) Update(ctx context.Context, id uuid.UUID, w *wallet.Wallet) (*wallet.Wallet, error) {
	return call[*wallet.Wallet](ctx, r.client, http.MethodPut, walletPath(id.String()), nil, w)
}

func (r *walletRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := call[struct{}](ctx, r.client, http.MethodDelete, walletPath(id.String()), nil, nil)
	return err
}

func (r *walletRepository) GetByID(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	return call[*wallet.Wallet](ctx, r.client, http.MethodGet, walletPath(id.String()), nil, nil)
}

func (r *walletRepository) GetAll(ctx context.Context) ([]*wallet.Wallet, error) {
	return call[[]*wallet.Wallet](ctx, r.client, http.MethodGet, walletPath(), nil, nil)
}

func (r *walletRepository) GetByUserID(ctx context.Context, userID uuid.UUID, page, perPage int) (*Page[*wallet.Wallet], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	path := "/api/v1/users/" + url.PathEscape(userID.String()) + "/wallets"

	return call[*Page[*wallet.Wallet]](ctx, r.client, http.MethodGet, path, q, nil)
}

func (r *walletRepository) SetDefault(ctx context.Context, id uuid.UUID) error {
	_, err := call[struct{}](ctx, r.client, http.MethodPost, walletPath(id.String(), "default"), nil, nil)
	return err
}
