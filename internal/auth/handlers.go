package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/LonelyIsle/resort-api/internal/db"
	"github.com/LonelyIsle/resort-api/internal/logger"
	"github.com/LonelyIsle/resort-api/internal/respond"
)

// ErrInvalidCredentials covers unknown email and wrong password alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Session is what gets stored in Valkey and attached to authenticated
// requests.
type Session struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// SessionStore is satisfied by *cache.Store.
type SessionStore interface {
	Set(ctx context.Context, key, val string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// UserFinder is satisfied by *db.Users.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*db.User, error)
}

type Service struct {
	users         UserFinder
	sessions      SessionStore
	ttl           time.Duration
	secureCookies bool
}

func NewService(users UserFinder, sessions SessionStore, ttl time.Duration, secureCookies bool) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{users: users, sessions: sessions, ttl: ttl, secureCookies: secureCookies}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse never carries the password hash.
type loginResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Token     string `json:"token"`
}

// Authenticate checks credentials and opens a session, returning its token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*db.User, string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !VerifyPassword(password, u.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := newToken(32)
	if err != nil {
		return nil, "", err
	}
	payload, err := json.Marshal(Session{UserID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return nil, "", err
	}
	if err := s.sessions.Set(ctx, sessionKeyPrefix+token, string(payload), s.ttl); err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *Service) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	body.Email = strings.TrimSpace(strings.ToLower(body.Email))
	if body.Email == "" || body.Password == "" {
		respond.Error(w, http.StatusBadRequest, "email and password required")
		return
	}

	u, token, err := s.Authenticate(r.Context(), body.Email, body.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			respond.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		logger.WithContext(r.Context()).WithError(err).WithField("email", body.Email).Error("login failed")
		respond.Internal(w)
		return
	}

	http.SetCookie(w, sessionCookie(token, s.ttl, s.secureCookies))
	respond.OK(w, loginResponse{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Token:     token,
	}, "login successful")
}

func (s *Service) Logout(w http.ResponseWriter, r *http.Request) {
	if token := tokenFromRequest(r); token != "" {
		if err := s.sessions.Delete(r.Context(), sessionKeyPrefix+token); err != nil {
			logger.WithContext(r.Context()).WithError(err).Warn("logout: session delete failed")
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	respond.OK(w, nil, "logged out")
}

// Me expects RequireAuth to have run.
func (s *Service) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := UserFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	respond.OK(w, sess, "")
}
