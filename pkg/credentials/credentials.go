// Package credentials keeps the user's access token in the OS keyring.
package credentials

import (
	"encoding/json"
	"time"

	"github.com/zalando/go-keyring"

	"github.com/sidkik/davsync/pkg/errors"
)

// ServiceName is the keyring service that tokens are stored under.
const ServiceName = "davsync"

// Token is an access token for the WebDAV server.
type Token struct {
	Token     string     `json:"token"`
	TokenType string     `json:"token_type"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// IsExpired returns whether the token has expired at `now`. Tokens without
// an expiry never expire.
func (t Token) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// Store stores tokens by user.
type Store interface {
	// Get returns the token for `user`. It returns errors.NotLoggedIn if
	// there's no token.
	Get(user string) (Token, error)
	Set(user string, token Token) error

	// Delete removes the token for `user`. Deleting a missing token is not
	// an error.
	Delete(user string) error
}

// KeyringStore is a Store backed by the OS keyring.
type KeyringStore struct {
	service string
}

// NewKeyringStore returns a Store that keeps tokens in the OS keyring.
func NewKeyringStore() KeyringStore {
	return KeyringStore{service: ServiceName}
}

func (s KeyringStore) Get(user string) (Token, error) {
	data, err := keyring.Get(s.service, user)
	if err != nil {
		if err == keyring.ErrNotFound {
			return Token{}, errors.NotLoggedIn{User: user}
		}
		return Token{}, errors.WithContext(err, "read keyring")
	}

	var token Token
	if err := json.Unmarshal([]byte(data), &token); err != nil {
		return Token{}, errors.WithContext(err, "parse stored token")
	}
	return token, nil
}

func (s KeyringStore) Set(user string, token Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return errors.WithContext(err, "marshal token")
	}

	if err := keyring.Set(s.service, user, string(data)); err != nil {
		return errors.WithContext(err, "write keyring")
	}
	return nil
}

func (s KeyringStore) Delete(user string) error {
	err := keyring.Delete(s.service, user)
	if err != nil && err != keyring.ErrNotFound {
		return errors.WithContext(err, "delete from keyring")
	}
	return nil
}
