package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SecretType string

const (
	SecretTypeWebLogin   SecretType = "WEB_LOGIN"
	SecretTypeCreditCard SecretType = "CREDITCARD"
	SecretTypeSecureNote SecretType = "SECURE_NOTE"
)

// AlgorithmAES256GCM is the only algorithm label ever written.
const AlgorithmAES256GCM = "aes-256-gcm"

var ErrInvalidSecret = errors.New("invalid personal secret")

func (t SecretType) Valid() bool {
	switch t {
	case SecretTypeWebLogin, SecretTypeCreditCard, SecretTypeSecureNote:
		return true
	}
	return false
}

// Owner is the (user, organization) pair a personal secret belongs to.
type Owner struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
}

func (o Owner) Valid() bool {
	return o.UserID != uuid.Nil && o.OrganizationID != uuid.Nil
}

// CipherField is one encrypted value. The three parts are never recombined
// across fields or records.
type CipherField struct {
	Ciphertext string
	IV         string
	AuthTag    string
}

func (f CipherField) complete() bool {
	return strings.TrimSpace(f.Ciphertext) != "" &&
		strings.TrimSpace(f.IV) != "" &&
		strings.TrimSpace(f.AuthTag) != ""
}

// SecretInput is the caller-controlled part of a personal secret.
type SecretInput struct {
	Type  SecretType
	Name  CipherField
	Value CipherField
}

func (in SecretInput) Validate() error {
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown secret type %q", ErrInvalidSecret, in.Type)
	}
	if !in.Name.complete() {
		return fmt.Errorf("%w: name cipher, iv and auth tag are required", ErrInvalidSecret)
	}
	if !in.Value.complete() {
		return fmt.Errorf("%w: value cipher, iv and auth tag are required", ErrInvalidSecret)
	}
	return nil
}

type PersonalSecret struct {
	ID             uuid.UUID   `json:"id"`
	UserID         uuid.UUID   `json:"user_id"`
	OrganizationID uuid.UUID   `json:"organization_id"`
	Type           SecretType  `json:"secret_type"`
	Name           CipherField `json:"name"`
	Value          CipherField `json:"value"`
	Algorithm      string      `json:"algorithm"`
	Version        int         `json:"version"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (s *PersonalSecret) Owner() Owner {
	return Owner{UserID: s.UserID, OrganizationID: s.OrganizationID}
}
