package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/walletsync/internal/record"
	"github.com/MrJamesThe3rd/walletsync/internal/remote"
	"github.com/MrJamesThe3rd/walletsync/internal/transaction"
)

// transactionRequest mirrors the transaction wire format. Ownership fields are not
// read; the session and the URL decide them.
type transactionRequest struct {
	ID        uuid.UUID  `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt"`

	Amount      decimal.Decimal    `json:"amount"`
	Type        transaction.Type   `json:"type" validate:"required,oneof=income expense transfer"`
	Status      transaction.Status `json:"status" validate:"omitempty,oneof=pending completed cancelled"`
	CategoryID  string             `json:"categoryId" validate:"max=64"`
	Description string             `json:"description" validate:"max=500"`
	Notes       string             `json:"notes" validate:"max=2000"`
	Date        time.Time          `json:"date" validate:"required"`

	IsRecurring         bool                   `json:"isRecurring"`
	Recurrence          transaction.Recurrence `json:"recurrence" validate:"omitempty,oneof=none daily weekly monthly yearly"`
	RecurrenceEndDate   *time.Time             `json:"recurrenceEndDate"`
	ParentTransactionID *uuid.UUID             `json:"parentTransactionId"`

	Attachments []attachmentRequest `json:"attachments" validate:"max=20,dive"`
	Tags        []string            `json:"tags" validate:"max=20,dive,max=50"`
	Location    *locationRequest    `json:"location"`
	Metadata    map[string]any      `json:"metadata"`
}

type attachmentRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	URL         string `json:"url" validate:"required,url"`
	ContentType string `json:"contentType"`
}

type locationRequest struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Address   string  `json:"address" validate:"max=255"`
}

func (req transactionRequest) toTransaction() *transaction.Transaction {
	tx := &transaction.Transaction{
		Meta: record.Meta{
			ID:        req.ID,
			CreatedAt: req.CreatedAt,
			UpdatedAt: req.UpdatedAt,
			DeletedAt: req.DeletedAt,
		},
		Amount:              req.Amount,
		Type:                req.Type,
		Status:              req.Status,
		CategoryID:          req.CategoryID,
		Description:         req.Description,
		Notes:               req.Notes,
		Date:                req.Date,
		IsRecurring:         req.IsRecurring,
		Recurrence:          req.Recurrence,
		RecurrenceEndDate:   req.RecurrenceEndDate,
		ParentTransactionID: req.ParentTransactionID,
		Tags:                req.Tags,
		Metadata:            req.Metadata,
	}

	for _, a := range req.Attachments {
		tx.Attachments = append(tx.Attachments, transaction.Attachment{Name: a.Name, URL: a.URL, ContentType: a.ContentType})
	}

	if req.Location != nil {
		tx.Location = &transaction.Location{
			Latitude:  req.Location.Latitude,
			Longitude: req.Location.Longitude,
			Address:   req.Location.Address,
		}
	}

	return tx
}

// syncRequest is a batch pushed by a client.
type syncRequest []transactionRequest

func toPage(p *transaction.Page) remote.Page[*transaction.Transaction] {
	return remote.Page[*transaction.Transaction]{
		Data:    orEmpty(p.Transactions),
		Total:   p.Total,
		Page:    p.Page,
		HasMore: p.HasMore,
	}
}

func orEmpty(txs []*transaction.Transaction) []*transaction.Transaction {
	if txs == nil {
		return []*transaction.Transaction{}
	}

	return txs
}
