package transaction

import "errors"

var (
	ErrNotFound      = errors.New("transaction not found")
	ErrAlreadyExists = errors.New("transaction already exists")
	ErrInvalid       = errors.New("invalid transaction")
)
