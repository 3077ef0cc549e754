package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dimitrije/personal-secrets/internal/cryptox"
	"github.com/dimitrije/personal-secrets/internal/models"
	"github.com/dimitrije/personal-secrets/pkg/dto"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var ErrCannotDecrypt = errors.New("cannot decrypt personal secret, check your private key")

// API is the part of the HTTP client the manager needs.
type API interface {
	CreatePersonalSecret(ctx context.Context, req dto.PersonalSecretRequest) (uuid.UUID, error)
	GetPersonalSecret(ctx context.Context, id uuid.UUID) (*dto.PersonalSecretResponse, error)
	ListPersonalSecrets(ctx context.Context) ([]dto.PersonalSecretResponse, error)
	UpdatePersonalSecret(ctx context.Context, id uuid.UUID, req dto.UpdatePersonalSecretRequest) (*dto.PersonalSecretResponse, error)
	DeletePersonalSecret(ctx context.Context, id uuid.UUID) error
}

// Secret is a decrypted personal secret. Value holds the serialized shape;
// use Decoded to get it back as a WebLogin, CreditCard or SecureNote.
type Secret struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Type           models.SecretType
	Name           string
	Value          string
	Algorithm      string
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s Secret) Decoded() (Value, error) {
	return DecodeValue(s.Type, s.Value)
}

type Manager struct {
	api API
	now func() time.Time
}

func NewManager(api API) *Manager {
	return &Manager{api: api, now: time.Now}
}

// Add validates and encrypts a new secret and returns the id the server assigned.
func (m *Manager) Add(ctx context.Context, cred Credential, name string, value Value) (uuid.UUID, error) {
	req, err := m.seal(cred, name, value)
	if err != nil {
		return uuid.Nil, err
	}
	return m.api.CreatePersonalSecret(ctx, req)
}

func (m *Manager) Get(ctx context.Context, cred Credential, id uuid.UUID) (*Secret, error) {
	key, err := cred.Key()
	if err != nil {
		return nil, err
	}

	resp, err := m.api.GetPersonalSecret(ctx, id)
	if err != nil {
		return nil, err
	}

	secret, err := open(*resp, key)
	if err != nil {
		return nil, err
	}
	return &secret, nil
}

// List decrypts every record concurrently. One failure fails the whole list.
// Results keep the server's order.
func (m *Manager) List(ctx context.Context, cred Credential) ([]Secret, error) {
	key, err := cred.Key()
	if err != nil {
		return nil, err
	}

	records, err := m.api.ListPersonalSecrets(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Secret, len(records))
	var g errgroup.Group
	for i := range records {
		g.Go(func() error {
			secret, err := open(records[i], key)
			if err != nil {
				return err
			}
			out[i] = secret
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update re-encrypts both fields of existing. The owner of existing is sent
// along so the server can reject a record that moved to another session.
func (m *Manager) Update(ctx context.Context, cred Credential, existing *Secret, name string, value Value) (*Secret, error) {
	key, err := cred.Key()
	if err != nil {
		return nil, err
	}

	req, err := m.seal(cred, name, value)
	if err != nil {
		return nil, err
	}

	userID, orgID := existing.UserID, existing.OrganizationID
	resp, err := m.api.UpdatePersonalSecret(ctx, existing.ID, dto.UpdatePersonalSecretRequest{
		PersonalSecretRequest: req,
		UserID:                &userID,
		OrganizationID:        &orgID,
	})
	if err != nil {
		return nil, err
	}

	secret, err := open(*resp, key)
	if err != nil {
		return nil, err
	}
	return &secret, nil
}

func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	return m.api.DeletePersonalSecret(ctx, id)
}

func (m *Manager) seal(cred Credential, name string, value Value) (dto.PersonalSecretRequest, error) {
	if err := ValidateName(name); err != nil {
		return dto.PersonalSecretRequest{}, err
	}
	encoded, err := EncodeValue(value, m.now())
	if err != nil {
		return dto.PersonalSecretRequest{}, err
	}
	key, err := cred.Key()
	if err != nil {
		return dto.PersonalSecretRequest{}, err
	}

	nameField, valueField, err := cryptox.EncryptPair(name, encoded, key)
	if err != nil {
		return dto.PersonalSecretRequest{}, err
	}

	return dto.PersonalSecretRequest{
		SecretType:         string(value.Type()),
		SecretNameCipher:   nameField.Ciphertext,
		SecretNameIV:       nameField.IV,
		SecretNameAuthTag:  nameField.AuthTag,
		SecretValueCipher:  valueField.Ciphertext,
		SecretValueIV:      valueField.IV,
		SecretValueAuthTag: valueField.AuthTag,
	}, nil
}

func open(resp dto.PersonalSecretResponse, key []byte) (Secret, error) {
	if !strings.EqualFold(resp.Algorithm, cryptox.Algorithm) {
		return Secret{}, fmt.Errorf("%w: unsupported algorithm %q", ErrCannotDecrypt, resp.Algorithm)
	}

	name, err := cryptox.Decrypt(cryptox.Field{
		Ciphertext: resp.SecretNameCipher,
		IV:         resp.SecretNameIV,
		AuthTag:    resp.SecretNameAuthTag,
	}, key)
	if err != nil {
		return Secret{}, fmt.Errorf("%w: %s name: %w", ErrCannotDecrypt, resp.ID, err)
	}

	value, err := cryptox.Decrypt(cryptox.Field{
		Ciphertext: resp.SecretValueCipher,
		IV:         resp.SecretValueIV,
		AuthTag:    resp.SecretValueAuthTag,
	}, key)
	if err != nil {
		return Secret{}, fmt.Errorf("%w: %s value: %w", ErrCannotDecrypt, resp.ID, err)
	}

	createdAt, err := time.Parse(time.RFC3339, resp.CreatedAt)
	if err != nil {
		return Secret{}, fmt.Errorf("%s: invalid createdAt: %w", resp.ID, err)
	}
	updatedAt, err := time.Parse(time.RFC3339, resp.UpdatedAt)
	if err != nil {
		return Secret{}, fmt.Errorf("%s: invalid updatedAt: %w", resp.ID, err)
	}

	return Secret{
		ID:             resp.ID,
		UserID:         resp.UserID,
		OrganizationID: resp.OrganizationID,
		Type:           models.SecretType(resp.SecretType),
		Name:           name,
		Value:          value,
		Algorithm:      resp.Algorithm,
		Version:        resp.Version,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

// Filter keeps the secrets whose name, value or type contains query,
// ignoring case. An empty query keeps everything.
func Filter(list []Secret, query string) []Secret {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return list
	}

	out := make([]Secret, 0, len(list))
	for _, s := range list {
		if strings.Contains(strings.ToLower(s.Name), query) ||
			strings.Contains(strings.ToLower(s.Value), query) ||
			strings.Contains(strings.ToLower(string(s.Type)), query) {
			out = append(out, s)
		}
	}
	return out
}
