package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

const (
	HeaderAgentKey      = "X-AGENT-KEY"
	HeaderAuthorization = "Authorization"
	BearerPrefix        = "Bearer "
)

var (
	ErrTokenNotSet  = errors.New("agent token is not configured")
	ErrUnauthorized = errors.New("agent key is missing or invalid")
)

// AgentKey accepts X-AGENT-KEY: <token> or Authorization: Bearer <token>.
// An unset token rejects every request with 500 instead of running open.
func AgentKey(token string) func(http.Handler) http.Handler {
	expected := strings.TrimSpace(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				writeError(w, http.StatusInternalServerError, codeTokenNotSet, ErrTokenNotSet.Error())
				return
			}
			if !validKey(r, expected) {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, ErrUnauthorized.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func validKey(r *http.Request, expected string) bool {
	direct := r.Header.Get(HeaderAgentKey)
	bearer := r.Header.Get(HeaderAuthorization)
	okDirect := subtle.ConstantTimeCompare([]byte(direct), []byte(expected)) == 1
	okBearer := subtle.ConstantTimeCompare([]byte(bearer), []byte(BearerPrefix+expected)) == 1
	return okDirect || okBearer
}
