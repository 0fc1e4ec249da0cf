package wallet

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/walletsync/internal/record"
)

// Type classifies what a wallet is used for.
type Type string

const (
	TypePersonal Type = "personal"
	TypeBusiness Type = "business"
	TypeFamily   Type = "family"
	TypeShared   Type = "shared"
)

// Valid reports whether t is one of the known wallet types.
func (t Type) Valid() bool {
	switch t {
	case TypePersonal, TypeBusiness, TypeFamily, TypeShared:
		return true
	}

	return false
}

// Role is a member's permission level inside a wallet.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

type Member struct {
	UserID   uuid.UUID `json:"userId"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Wallet is the partition root for transactions. Its WalletID always equals its ID.
type Wallet struct {
	record.Meta

	Name      string          `json:"name"`
	Type      Type            `json:"type"`
	Currency  string          `json:"currency"`
	Icon      string          `json:"icon,omitempty"`
	Color     string          `json:"color,omitempty"`
	Balance   decimal.Decimal `json:"balance"` // cached, not authoritative
	IsDefault bool            `json:"isDefault"`
	Members   []Member        `json:"members"`
}

// Normalize enforces the self-referencing partition key.
func (w *Wallet) Normalize() {
	w.WalletID = w.ID
}

// Validate checks the fields the backend requires. Clients run it before storing a
// wallet locally so that a wallet the backend would reject never enters the sync queue.
func (w *Wallet) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}

	if !w.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalid, w.Type)
	}

	if len(w.Currency) != 3 {
		return fmt.Errorf("%w: currency must be an ISO 4217 code", ErrInvalid)
	}

	return nil
}

// RoleOf returns the role the user holds in the wallet. The owner is always RoleOwner.
func (w *Wallet) RoleOf(userID uuid.UUID) (Role, bool) {
	if w.UserID == userID {
		return RoleOwner, true
	}

	for _, m := range w.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}

	return "", false
}

// CanRead reports whether the user may see the wallet and its transactions.
func (w *Wallet) CanRead(userID uuid.UUID) bool {
	_, ok := w.RoleOf(userID)
	return ok
}

// CanWrite reports whether the user may write transactions into the wallet.
func (w *Wallet) CanWrite(userID uuid.UUID) bool {
	role, ok := w.RoleOf(userID)
	return ok && role != RoleViewer
}

// CanManage reports whether the user may change the wallet itself.
func (w *Wallet) CanManage(userID uuid.UUID) bool {
	role, ok := w.RoleOf(userID)
	return ok && (role == RoleOwner || role == RoleAdmin)
}

// EnsureOwnerMember makes sure the owner is listed among the members.
func (w *Wallet) EnsureOwnerMember(joinedAt time.Time) {
	for _, m := range w.Members {
		if m.UserID == w.UserID {
			return
		}
	}

	w.Members = append([]Member{{UserID: w.UserID, Role: RoleOwner, JoinedAt: joinedAt}}, w.Members...)
}
