package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"

	"github.com/LonelyIsle/resort-api/internal/respond"
)

const (
	csrfCookieName = "csrf"
	csrfHeaderName = "X-CSRF-Token"
)

// CSRF enforces the double-submit cookie on unsafe methods. Only requests
// that carry the session cookie are checked; bearer-token clients never
// send cookies automatically.
func CSRF(disabled bool) func(http.Handler) http.Handler {
	if disabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if _, err := r.Cookie("session"); err != nil {
				next.ServeHTTP(w, r)
				return
			}
			token := r.Header.Get(csrfHeaderName)
			cookie, err := r.Cookie(csrfCookieName)
			if err != nil || token == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(token)) != 1 {
				respond.Error(w, http.StatusForbidden, "CSRF validation failed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IssueCSRFToken sets the csrf cookie and returns the same value in the body
// for the client to echo back in X-CSRF-Token.
func IssueCSRFToken(w http.ResponseWriter, r *http.Request) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		respond.Internal(w)
		return
	}
	token := base64.RawURLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(csrfHeaderName, token)
	respond.OK(w, map[string]string{"csrf": token}, "")
}
