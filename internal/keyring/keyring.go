package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/habitsync/internal/constants"
)

var (
	// ErrNotFound is returned when no credential is stored for a server
	ErrNotFound = errors.New("credential not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// account returns the keyring account for a server. Credentials are stored
// per server so switching servers never sends a token to the wrong host.
func account(server string) string {
	if server == "" {
		return constants.DefaultKeyringUser
	}
	return constants.DefaultKeyringUser + ":" + server
}

// GetCredential retrieves the bearer credential for server from the OS keyring.
// Returns ErrNotFound if nothing is stored.
func GetCredential(server string) (string, error) {
	token, err := keyring.Get(constants.AppName, account(server))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return token, nil
}

// SetCredential stores the bearer credential for server in the OS keyring.
func SetCredential(server, token string) error {
	if token == "" {
		return errors.New("credential cannot be empty")
	}
	if err := keyring.Set(constants.AppName, account(server), token); err != nil {
		return fmt.Errorf("failed to store credential in keyring: %w", err)
	}
	return nil
}

// DeleteCredential removes the credential for server from the OS keyring.
func DeleteCredential(server string) error {
	err := keyring.Delete(constants.AppName, account(server))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete credential from keyring: %w", err)
	}
	return nil
}

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check and may not catch all failure scenarios.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
