package wallet

import "errors"

var (
	ErrNotFound      = errors.New("wallet not found")
	ErrForbidden     = errors.New("wallet access forbidden")
	ErrAlreadyExists = errors.New("wallet already exists")
	ErrInvalid       = errors.New("invalid wallet")
)
