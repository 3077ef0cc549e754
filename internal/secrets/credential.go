// Package secrets encrypts, decrypts and validates personal secrets on the
// client before they are sent to the API.
package secrets

import (
	"errors"

	"github.com/dimitrije/personal-secrets/internal/cryptox"
)

var ErrMissingPrivateKey = errors.New("private key is missing, please log in again")

// Credential holds the user's private key. The field key is derived from it
// on every use and never cached.
type Credential struct {
	PrivateKey string
}

func (c Credential) Key() ([]byte, error) {
	if c.PrivateKey == "" {
		return nil, ErrMissingPrivateKey
	}
	return cryptox.DeriveKey(c.PrivateKey), nil
}
