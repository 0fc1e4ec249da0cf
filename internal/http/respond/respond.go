// Package respond writes every backend response in the {success, data, error}
// envelope and decodes validated request bodies.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/MrJamesThe3rd/walletsync/internal/auth"
	"github.com/MrJamesThe3rd/walletsync/internal/remote"
	"github.com/MrJamesThe3rd/walletsync/internal/transaction"
	"github.com/MrJamesThe3rd/walletsync/internal/wallet"
)

var ErrBadRequest = errors.New("bad request")

var validate = validator.New(validator.WithRequiredStructEnabled())

func JSON[T any](w http.ResponseWriter, status int, data T) {
	write(w, status, remote.OK(data))
}

// Error maps err onto an error code and HTTP status. Errors that are not part of the
// domain vocabulary are logged and reported as INTERNAL_ERROR without their text.
func Error(w http.ResponseWriter, err error) {
	e := classify(err)
	write(w, statusFor(e.Code), remote.Fail[struct{}](e))
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func classify(err error) *remote.Error {
	var re *remote.Error

	switch {
	case errors.As(err, &re):
		return re
	case errors.Is(err, wallet.ErrNotFound), errors.Is(err, transaction.ErrNotFound):
		return remote.NewError(remote.CodeNotFound, "%s", err)
	case errors.Is(err, wallet.ErrForbidden):
		return remote.NewError(remote.CodeForbidden, "%s", err)
	case errors.Is(err, wallet.ErrAlreadyExists), errors.Is(err, transaction.ErrAlreadyExists):
		return remote.NewError(remote.CodeConflict, "%s", err)
	case errors.Is(err, wallet.ErrInvalid), errors.Is(err, transaction.ErrInvalid), errors.Is(err, ErrBadRequest):
		return remote.NewError(remote.CodeValidation, "%s", err)
	case errors.Is(err, auth.ErrInvalidToken):
		return remote.NewError(remote.CodeUnauthorized, "%s", err)
	}

	slog.Error("request failed", "error", err)

	return remote.NewError(remote.CodeInternal, "internal error")
}

func statusFor(code remote.Code) int {
	switch code {
	case remote.CodeUnauthorized:
		return http.StatusUnauthorized
	case remote.CodeForbidden:
		return http.StatusForbidden
	case remote.CodeNotFound:
		return http.StatusNotFound
	case remote.CodeValidation, remote.CodeDecode:
		return http.StatusBadRequest
	case remote.CodeConflict:
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}

// Decode reads a JSON body into dst and runs its validate tags. Validation failures
// carry the offending fields as details.
func Decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decoding body: %v", ErrBadRequest, err)
	}

	var err error

	// a JSON array body is validated element by element
	if v := reflect.Indirect(reflect.ValueOf(dst)); v.Kind() == reflect.Slice {
		err = validate.Var(v.Interface(), "max=1000,dive")
	} else {
		err = validate.Struct(dst)
	}

	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrBadRequest, err)
		}

		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Namespace()] = fe.Tag()
		}

		e := remote.NewError(remote.CodeValidation, "invalid request body")
		e.Details = fields

		return e
	}

	return nil
}

// Var validates a single value against tag, for query parameters.
func Var(name string, v any, tag string) error {
	if err := validate.Var(v, tag); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadRequest, name, err)
	}

	return nil
}

// Time parses an RFC 3339 timestamp or a plain date. An empty value yields nil.
func Time(name, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}

	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return new(t.UTC()), nil
		}
	}

	return nil, fmt.Errorf("%w: %s: expected RFC 3339 timestamp or YYYY-MM-DD", ErrBadRequest, name)
}

// Int parses an optional integer query parameter, returning def when it is empty.
func Int(name, v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, name)
	}

	return n, nil
}

// Invalid builds a bad-request error.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}
