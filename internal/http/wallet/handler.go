package wallet

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/walletsync/internal/auth"
	"github.com/MrJamesThe3rd/walletsync/internal/http/respond"
	"github.com/MrJamesThe3rd/walletsync/internal/record"
	"github.com/MrJamesThe3rd/walletsync/internal/remote"
	"github.com/MrJamesThe3rd/walletsync/internal/wallet"
)

type Handler struct {
	svc *wallet.Service
}

func NewHandler(svc *wallet.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes shares the {walletId} parameter with the nested transaction routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{walletId}", h.get)
	r.Put("/{walletId}", h.update)
	r.Delete("/{walletId}", h.delete)
	r.Post("/{walletId}/default", h.setDefault)
}

// UserRoutes serves wallet listings nested under /users/{userId}.
func (h *Handler) UserRoutes(r chi.Router) {
	r.Get("/{userId}/wallets", h.listByUser)
}

type memberRequest struct {
	UserID   uuid.UUID   `json:"userId" validate:"required"`
	Role     wallet.Role `json:"role" validate:"required,oneof=owner admin member viewer"`
	JoinedAt time.Time   `json:"joinedAt"`
}

// walletRequest mirrors the wallet wire format. Ownership fields are not read; the
// session decides them.
type walletRequest struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name" validate:"required,max=100"`
	Type      wallet.Type     `json:"type" validate:"required,oneof=personal business family shared"`
	Currency  string          `json:"currency" validate:"required,iso4217"`
	Icon      string          `json:"icon" validate:"max=64"`
	Color     string          `json:"color" validate:"max=32"`
	Balance   decimal.Decimal `json:"balance"`
	IsDefault bool            `json:"isDefault"`
	Members   []memberRequest `json:"members" validate:"max=50,dive"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	DeletedAt *time.Time      `json:"deletedAt"`
}

func (req walletRequest) toWallet() *wallet.Wallet {
	w := &wallet.Wallet{
		Meta: record.Meta{
			ID:        req.ID,
			CreatedAt: req.CreatedAt,
			UpdatedAt: req.UpdatedAt,
			DeletedAt: req.DeletedAt,
		},
		Name:      req.Name,
		Type:      req.Type,
		Currency:  req.Currency,
		Icon:      req.Icon,
		Color:     req.Color,
		Balance:   req.Balance,
		IsDefault: req.IsDefault,
	}

	for _, m := range req.Members {
		w.Members = append(w.Members, wallet.Member{UserID: m.UserID, Role: m.Role, JoinedAt: m.JoinedAt})
	}

	return w
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	userID, _ := auth.UserIDFrom(r.Context())
	wal := req.toWallet()

	if err := h.svc.Create(r.Context(), userID, wal); err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, wal)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFrom(r.Context())

	wallets, err := h.svc.List(r.Context(), userID)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, orEmpty(wallets))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "walletId")
	if err != nil {
		respond.Error(w, err)
		return
	}

	userID, _ := auth.UserIDFrom(r.Context())

	wal, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, wal)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "walletId")
	if err != nil {
		respond.Error(w, err)
		return
	}

	var req walletRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	userID, _ := auth.UserIDFrom(r.Context())
	wal := req.toWallet()

	if err := h.svc.Update(r.Context(), userID, id, wal); err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, wal)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "walletId")
	if err != nil {
		respond.Error(w, err)
		return
	}

	userID, _ := auth.UserIDFrom(r.Context())

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) setDefault(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "walletId")
	if err != nil {
		respond.Error(w, err)
		return
	}

	userID, _ := auth.UserIDFrom(r.Context())

	if err := h.svc.SetDefault(r.Context(), userID, id); err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) listByUser(w http.ResponseWriter, r *http.Request) {
	target, err := pathID(r, "userId")
	if err != nil {
		respond.Error(w, err)
		return
	}

	q := r.URL.Query()

	page, err := respond.Int("page", q.Get("page"), 1)
	if err != nil {
		respond.Error(w, err)
		return
	}

	perPage, err := respond.Int("per_page", q.Get("per_page"), 20)
	if err != nil {
		respond.Error(w, err)
		return
	}

	userID, _ := auth.UserIDFrom(r.Context())

	p, err := h.svc.ListByUser(r.Context(), userID, target, page, perPage)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, remote.Page[*wallet.Wallet]{
		Data:    orEmpty(p.Wallets),
		Total:   p.Total,
		Page:    p.Page,
		HasMore: p.HasMore,
	})
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, respond.Invalid("invalid %s", name)
	}

	return id, nil
}

func orEmpty(ws []*wallet.Wallet) []*wallet.Wallet {
	if ws == nil {
		return []*wallet.Wallet{}
	}

	return ws
}
