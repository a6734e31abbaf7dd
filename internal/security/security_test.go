package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LonelyIsle/resort-api/internal/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

func TestCSRF(t *testing.T) {
	h := CSRF(false)(okHandler)

	testCases := []struct {
		name       string
		method     string
		session    bool
		cookie     string
		header     string
		expectCode int
	}{
		{"safe method", http.MethodGet, true, "", "", http.StatusOK},
		{"bearer only", http.MethodPost, false, "", "", http.StatusOK},
		{"missing header", http.MethodPost, true, "abc", "", http.StatusForbidden},
		{"mismatch", http.MethodPatch, true, "abc", "abd", http.StatusForbidden},
		{"match", http.MethodPost, true, "abc", "abc", http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/reports/generate", nil)
			if tc.session {
				req.AddCookie(&http.Cookie{Name: "session", Value: "tok"})
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tc.cookie})
			}
			if tc.header != "" {
				req.Header.Set(csrfHeaderName, tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.expectCode, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	CSRF(true)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIssueCSRFToken(t *testing.T) {
	rec := httptest.NewRecorder()
	IssueCSRFToken(rec, httptest.NewRequest(http.MethodGet, "/api/auth/csrf", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, cookies[0].Value, rec.Header().Get(csrfHeaderName))
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, rl.Allow("10.0.0.2"), "buckets are per IP")

	now = now.Add(30 * time.Second)
	assert.True(t, rl.Allow("10.0.0.1"), "one token refilled after 30s")

	now = now.Add(time.Hour)
	assert.Equal(t, 2, rl.Sweep())
}

func TestRateLimitMiddlewareUsesForwardedFor(t *testing.T) {
	rl := NewRateLimiter(1)
	h := rl.Middleware(okHandler)

	send := func(xff string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, send("203.0.113.5, 10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.5"))
	assert.Equal(t, http.StatusOK, send("203.0.113.6"))
}

func TestRequestID(t *testing.T) {
	var seen any
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = r.Context().Value(logger.RequestIDKey)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(rec.Header().Get(requestIDHeader))
	assert.NoError(t, err)
	assert.Equal(t, rec.Header().Get(requestIDHeader), seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "upstream-42")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-42", rec.Header().Get(requestIDHeader))
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}
