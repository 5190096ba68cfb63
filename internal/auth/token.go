// Package auth validates the bearer tokens presented to the sync server.
package auth

import (
	"crypto/sha256"
	"errors"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/julianstephens/habitsync/internal/config"
	"github.com/julianstephens/habitsync/internal/logger"
)

// ErrInvalidToken is returned when a token matches no configured user.
var ErrInvalidToken = errors.New("invalid token")

// TokenValidator maps bearer tokens to user ids by checking them against the
// configured bcrypt hashes.
type TokenValidator struct {
	users []config.User

	mu sync.Mutex
	// verified remembers tokens that already passed bcrypt, keyed by their
	// SHA-256, so repeat requests skip the slow comparison.
	verified map[[sha256.Size]byte]string
}

func NewTokenValidator(users []config.User) *TokenValidator {
	return &TokenValidator{
		users:    users,
		verified: make(map[[sha256.Size]byte]string),
	}
}

// ValidateToken returns the id of the user the token belongs to.
//
// This scans every configured user. Deployments have a handful of accounts,
// so the linear scan is fine.
func (tv *TokenValidator) ValidateToken(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	key := sha256.Sum256([]byte(token))

	tv.mu.Lock()
	userID, ok := tv.verified[key]
	tv.mu.Unlock()
	if ok {
		return userID, nil
	}

	for _, u := range tv.users {
		if bcrypt.CompareHashAndPassword([]byte(u.TokenHash), []byte(token)) == nil {
			tv.mu.Lock()
			tv.verified[key] = u.ID
			tv.mu.Unlock()
			logger.Debug("auth: validated token", "user", u.ID)
			return u.ID, nil
		}
	}
	logger.Warn("auth: token validation failed (no matching user)")
	return "", ErrInvalidToken
}

// HashToken returns the bcrypt hash to store in the server config.
func HashToken(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", errors.New("token cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
