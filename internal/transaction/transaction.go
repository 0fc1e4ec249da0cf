package transaction

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/walletsync/internal/record"
)

// Type represents the direction of a transaction.
type Type string

const (
	TypeIncome   Type = "income"
	TypeExpense  Type = "expense"
	TypeTransfer Type = "transfer"
)

func (t Type) Valid() bool {
	return t == TypeIncome || t == TypeExpense || t == TypeTransfer
}

// Status represents the lifecycle state of a transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted || s == StatusCancelled
}

// Recurrence is how often a recurring template repeats.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceYearly  Recurrence = "yearly"
)

func (r Recurrence) Valid() bool {
	switch r {
	case "", RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	}

	return false
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Attachment references a file stored elsewhere; only the reference is synchronized.
type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
}

// Transaction represents a financial transaction inside a wallet.
// Amount is a non-negative magnitude; the direction is carried by Type.
type Transaction struct {
	record.Meta

	Amount      decimal.Decimal `json:"amount"`
	Type        Type            `json:"type"`
	Status      Status          `json:"status"`
	CategoryID  string          `json:"categoryId"`
	Description string          `json:"description"`
	Notes       string          `json:"notes,omitempty"`
	Date        time.Time       `json:"date"`

	IsRecurring         bool       `json:"isRecurring"`
	Recurrence          Recurrence `json:"recurrence,omitempty"`
	RecurrenceEndDate   *time.Time `json:"recurrenceEndDate,omitempty"`
	ParentTransactionID *uuid.UUID `json:"parentTransactionId,omitempty"`

	Attachments []Attachment   `json:"attachments,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Location    *Location      `json:"location,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Normalize fills defaults for fields a client may omit.
func (tx *Transaction) Normalize() {
	if tx.Status == "" {
		tx.Status = StatusCompleted
	}

	if tx.Recurrence == "" {
		tx.Recurrence = RecurrenceNone
	}
}

// Validate checks the fields a client must get right before a transaction is stored.
func (tx *Transaction) Validate() error {
	if tx.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalid)
	}

	if !tx.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalid, tx.Type)
	}

	if !tx.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, tx.Status)
	}

	if !tx.Recurrence.Valid() {
		return fmt.Errorf("%w: unknown recurrence %q", ErrInvalid, tx.Recurrence)
	}

	if tx.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalid)
	}

	return nil
}
