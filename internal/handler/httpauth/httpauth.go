// Package httpauth resolves bearer tokens on incoming gateway requests.
package httpauth

import (
	"net/http"
	"strings"

	"github.com/elliehq/ellie/internal/model/auth"
	"github.com/elliehq/ellie/internal/service/account"
)

// Token extracts the bearer token from the Authorization header,
// returning "" when the header is absent or malformed.
func Token(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// User resolves the request's bearer token to an account. Endpoints open
// to anonymous visitors treat a missing or invalid token as "no user".
func User(r *http.Request, accounts *account.Service) (auth.User, bool) {
	token := Token(r)
	if token == "" {
		return auth.User{}, false
	}
	user, err := accounts.VerifyToken(r.Context(), token)
	if err != nil {
		return auth.User{}, false
	}
	return user, true
}
