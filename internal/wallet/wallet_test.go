package wallet_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/walletsync/internal/wallet"
)

func TestWallet_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(w *wallet.Wallet)
		wantErr bool
	}{
		{name: "Valid", mutate: func(*wallet.Wallet) {}},
		{name: "BlankName", mutate: func(w *wallet.Wallet) { w.Name = "   " }, wantErr: true},
		{name: "UnknownType", mutate: func(w *wallet.Wallet) { w.Type = "crypto" }, wantErr: true},
		{name: "ShortCurrency", mutate: func(w *wallet.Wallet) { w.Currency = "EU" }, wantErr: true},
		{name: "MissingCurrency", mutate: func(w *wallet.Wallet) { w.Currency = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWallet()
			tt.mutate(w)

			err := w.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, wallet.ErrInvalid)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestWallet_CanManage(t *testing.T) {
	owner, admin, member, viewer := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	w := newWallet()
	w.UserID = owner
	w.Members = []wallet.Member{
		{UserID: admin, Role: wallet.RoleAdmin},
		{UserID: member, Role: wallet.RoleMember},
		{UserID: viewer, Role: wallet.RoleViewer},
	}

	tests := []struct {
		name   string
		userID uuid.UUID
		want   bool
	}{
		{name: "Owner", userID: owner, want: true},
		{name: "Admin", userID: admin, want: true},
		{name: "Member", userID: member},
		{name: "Viewer", userID: viewer},
		{name: "Stranger", userID: uuid.New()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.CanManage(tt.userID))
		})
	}
}
