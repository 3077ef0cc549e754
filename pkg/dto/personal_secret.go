package dto

import "github.com/google/uuid"

// PersonalSecretRequest carries the client-encrypted fields of one secret.
// The server never sees plaintext.
type PersonalSecretRequest struct {
	SecretType         string `json:"secretType"`
	SecretNameCipher   string `json:"secretNameCipher"`
	SecretNameIV       string `json:"secretNameIV"`
	SecretNameAuthTag  string `json:"secretNameAuthTag"`
	SecretValueCipher  string `json:"secretValueCipher"`
	SecretValueIV      string `json:"secretValueIV"`
	SecretValueAuthTag string `json:"secretValueAuthTag"`
}

// UpdatePersonalSecretRequest may name the owner the caller believes it is
// writing as. Both fields default to the session when omitted.
type UpdatePersonalSecretRequest struct {
	PersonalSecretRequest
	UserID         *uuid.UUID `json:"userId,omitempty"`
	OrganizationID *uuid.UUID `json:"organizationId,omitempty"`
}

type PersonalSecretResponse struct {
	ID                 uuid.UUID `json:"id"`
	UserID             uuid.UUID `json:"userId"`
	OrganizationID     uuid.UUID `json:"organizationId"`
	SecretType         string    `json:"secretType"`
	SecretNameCipher   string    `json:"secretNameCipher"`
	SecretNameIV       string    `json:"secretNameIV"`
	SecretNameAuthTag  string    `json:"secretNameAuthTag"`
	SecretValueCipher  string    `json:"secretValueCipher"`
	SecretValueIV      string    `json:"secretValueIV"`
	SecretValueAuthTag string    `json:"secretValueAuthTag"`
	Algorithm          string    `json:"algorithm"`
	Version            int       `json:"version"`
	CreatedAt          string    `json:"createdAt"`
	UpdatedAt          string    `json:"updatedAt"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}
