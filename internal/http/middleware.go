package http

import (
	"net/http"
	"strings"

	"github.com/MrJamesThe3rd/walletsync/internal/auth"
	"github.com/MrJamesThe3rd/walletsync/internal/http/respond"
	"github.com/MrJamesThe3rd/walletsync/internal/remote"
)

// Authenticate requires a valid bearer token and stores its user id in the request context.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				respond.Error(w, remote.NewError(remote.CodeUnauthorized, "missing authorization header"))
				return
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				respond.Error(w, remote.NewError(remote.CodeUnauthorized, "invalid authorization format"))
				return
			}

			userID, err := auth.ParseToken(secret, token)
			if err != nil {
				respond.Error(w, remote.NewError(remote.CodeUnauthorized, "invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}
