package localstore

import "github.com/google/uuid"

const (
	keySalt          = "meta:salt"
	keySession       = "auth:session"
	keyUser          = "auth:user"
	keyCurrentWallet = "wallet:current"
	keyWallets       = "wallets:all"
)

func transactionsKey(walletID uuid.UUID) string {
	return "transactions:" + walletID.String()
}

func lastSyncKey(walletID uuid.UUID) string {
	return "sync:" + walletID.String() + ":last"
}
