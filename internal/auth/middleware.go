package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/LonelyIsle/resort-api/internal/logger"
	"github.com/LonelyIsle/resort-api/internal/respond"
)

type ctxKey struct{}

// UserFromContext returns the session attached by RequireAuth.
func UserFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}

// WithUser attaches s to ctx. Handler tests use it to skip the session store.
func WithUser(ctx context.Context, s Session) context.Context {
	ctx = context.WithValue(ctx, ctxKey{}, s)
	return context.WithValue(ctx, logger.UserIDKey, s.UserID)
}

// RequireAuth resolves the session from the cookie or a bearer token.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			respond.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		raw, err := s.sessions.Get(r.Context(), sessionKeyPrefix+token)
		if err != nil || raw == "" {
			respond.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var sess Session
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			logger.WithContext(r.Context()).WithError(err).Warn("corrupt session payload")
			respond.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), sess)))
	})
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := UserFromContext(r.Context())
			if !ok {
				respond.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if _, ok := allowed[sess.Role]; !ok {
				respond.Error(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
