package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/julianstephens/habitsync/internal/auth"
	apperrors "github.com/julianstephens/habitsync/internal/errors"
	"github.com/julianstephens/habitsync/internal/logger"
)

type userIDKey struct{}

// UserID returns the authenticated user stored in ctx, or "".
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// authenticated resolves the bearer token to a user, enforces the user's
// rate limit and passes the user id down through the request context.
func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, apperrors.CodeUnauthorized, "missing bearer token", nil)
			return
		}
		userID, err := s.validator.ValidateToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, apperrors.CodeUnauthorized, "invalid bearer token", nil)
			return
		}
		if !s.limiters.allow(userID) {
			logger.Warn("Rate limit exceeded", "user", userID, "path", r.URL.Path)
			writeError(w, http.StatusTooManyRequests, apperrors.CodeRateLimited, "too many requests", nil)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey{}, userID)))
	})
}

// limiterSet holds one token bucket per user.
type limiterSet struct {
	limit rate.Limit
	burst int

	mu     sync.Mutex
	byUser map[string]*rate.Limiter
}

func newLimiterSet(perSec float64, burst int) *limiterSet {
	limit := rate.Limit(perSec)
	if perSec <= 0 {
		limit = rate.Inf
	}
	return &limiterSet{limit: limit, burst: burst, byUser: make(map[string]*rate.Limiter)}
}

func (l *limiterSet) allow(userID string) bool {
	l.mu.Lock()
	lim, ok := l.byUser[userID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.byUser[userID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
