package transaction

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/walletsync/internal/auth"
	"github.com/MrJamesThe3rd/walletsync/internal/http/respond"
	"github.com/MrJamesThe3rd/walletsync/internal/transaction"
)

// SyncObserver is told how many records a bulk sync received and how many it accepted.
type SyncObserver interface {
	ObserveSync(received, accepted int)
}

type Handler struct {
	svc      *transaction.Service
	observer SyncObserver
}

func NewHandler(svc *transaction.Service, observer SyncObserver) *Handler {
	return &Handler{svc: svc, observer: observer}
}

// Routes expects to be mounted below /wallets/{walletId}/transactions.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/summary", h.summary)
	r.Post("/sync", h.sync)
	r.Get("/changes", h.changes)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	walletID, err := pathID(r, "walletId")
	if err != nil {
		respond.Error(w, err)
		return
	}

	var req transactionRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	userID, _ := auth.UserIDFrom(r.Context())
	tx := req.toTransaction()

	if err := h.svc.Create(r.Context(), userID, walletID, tx); err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, tx)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	walletID, err := pathID(r, "walletId")
	if err != nil {
		respond.Error(w, err)
		return
	}

	filter, page, perPage, err := parseListQuery(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	userID, _ := auth.UserIDFrom(r.Context())

	p, err := h.svc.List(r.Context(), userID, walletID, filter, page, perPage)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, toPage(p))
}

func parseListQuery(r *http.Request) (transaction.ListFilter, int, int, error) {
	var filter transaction.ListFilter

	q := r.URL.Query()

	if s := q.Get("type"); s != "" {
		if err := respond.Var("type", s, "oneof=income expense transfer"); err != nil {
			return filter, 0, 0, err
		}

		filter.Type = new(transaction.Type(s))
	}

	if s := q.Get("status"); s != "" {
		if err := respond.Var("status", s, "oneof=pending completed cancelled"); err != nil {
			return filter, 0, 0, err
		}

		filter.Status = new(transaction.Status(s))
	}

	if s := q.Get("category_id"); s != "" {
		filter.CategoryID = new(s)
	}

	var err error

	if filter.StartDate, err = respond.Time("start_date", q.Get("start_date")); err != nil {
		return filter, 0, 0, err
	}

	if filter.EndDate, err = respond.Time("end_date", q.Get("end_date")); err != nil {
		return filter, 0, 0, err
	}

	page, err := respond.Int("page", q.Get("page"), 1)
	if err != nil {
		return filter, 0, 0, err
	}

	perPage, err := respond.Int("per_page", q.Get("per_page"), 20)
	if err != nil {
		return filter, 0, 0, err
	}

	return filter, page, perPage, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	walletID, id, err := pathIDs(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	userID, _ := auth.UserIDFrom(r.Context())

	tx, err := h.svc.Get(r.Context(), userID, walletID, id)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, tx)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	walletID, id, err := pathIDs(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	var req transactionRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	userID, _ := auth.UserIDFrom(r.Context())
	tx := req.toTransaction()

	if err := h.svc.Update(r.Context(), userID, walletID, id, tx); err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, tx)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	walletID, id, err := pathIDs(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	userID, _ := auth.UserIDFrom(r.Context())

	if err := h.svc.Delete(r.Context(), userID, walletID, id); err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	walletID, err := pathID(r, "walletId")
	if err != nil {
		respond.Error(w, err)
		return
	}

	q := r.URL.Query()

	start, err := respond.Time("start_date", q.Get("start_date"))
	if err != nil {
		respond.Error(w, err)
		return
	}

	end, err := respond.Time("end_date", q.Get("end_date"))
	if err != nil {
		respond.Error(w, err)
		return
	}

	if start == nil || end == nil {
		respond.Error(w, respond.Invalid("start_date and end_date are required"))
		return
	}

	userID, _ := auth.UserIDFrom(r.Context())

	sum, err := h.svc.Summary(r.Context(), userID, walletID, *start, endOfDay(q.Get("end_date"), *end))
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, sum)
}

// endOfDay widens a date-only end bound to the last instant of that day.
func endOfDay(raw string, t time.Time) time.Time {
	if len(raw) == len(time.DateOnly) {
		return t.Add(24*time.Hour - time.Millisecond)
	}

	return t
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	walletID, err := pathID(r, "walletId")
	if err != nil {
		respond.Error(w, err)
		return
	}

	var req syncRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	txs := make([]*transaction.Transaction, len(req))
	for i, item := range req {
		txs[i] = item.toTransaction()
	}

	userID, _ := auth.UserIDFrom(r.Context())

	acked, err := h.svc.Sync(r.Context(), userID, walletID, txs)
	if err != nil {
		respond.Error(w, err)
		return
	}

	if h.observer != nil {
		h.observer.ObserveSync(len(txs), len(acked))
	}

	respond.JSON(w, http.StatusOK, acked)
}

func (h *Handler) changes(w http.ResponseWriter, r *http.Request) {
	walletID, err := pathID(r, "walletId")
	if err != nil {
		respond.Error(w, err)
		return
	}

	since, err := respond.Time("since", r.URL.Query().Get("since"))
	if err != nil {
		respond.Error(w, err)
		return
	}

	userID, _ := auth.UserIDFrom(r.Context())

	txs, err := h.svc.Changes(r.Context(), userID, walletID, since)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, orEmpty(txs))
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, respond.Invalid("invalid %s", name)
	}

	return id, nil
}

func pathIDs(r *http.Request) (walletID, id uuid.UUID, err error) {
	if walletID, err = pathID(r, "walletId"); err != nil {
		return
	}

	id, err = pathID(r, "id")

	return
}
