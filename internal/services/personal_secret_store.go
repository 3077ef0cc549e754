package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimitrije/personal-secrets/internal/database"
	"github.com/dimitrije/personal-secrets/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrPersonalSecretNotFound = errors.New("personal secret not found")
	ErrPersistence            = errors.New("personal secret storage failure")
)

const personalSecretColumns = `id, user_id, organization_id, secret_type,
		secret_name_cipher, secret_name_iv, secret_name_auth_tag,
		secret_value_cipher, secret_value_iv, secret_value_auth_tag,
		algorithm, version, created_at, updated_at`

type PersonalSecretStore struct {
	db *database.DB
}

func NewPersonalSecretStore(db *database.DB) *PersonalSecretStore {
	return &PersonalSecretStore{db: db}
}

func scanPersonalSecret(row pgx.Row) (*models.PersonalSecret, error) {
	var s models.PersonalSecret
	var secretType string
	err := row.Scan(
		&s.ID, &s.UserID, &s.OrganizationID, &secretType,
		&s.Name.Ciphertext, &s.Name.IV, &s.Name.AuthTag,
		&s.Value.Ciphertext, &s.Value.IV, &s.Value.AuthTag,
		&s.Algorithm, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Type = models.SecretType(secretType)
	return &s, nil
}

func storeError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPersonalSecretNotFound
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

func (s *PersonalSecretStore) Create(ctx context.Context, owner models.Owner, in models.SecretInput) (*models.PersonalSecret, error) {
	secret, err := scanPersonalSecret(s.db.Pool.QueryRow(ctx, `
		INSERT INTO personal_secrets (
			user_id, organization_id, secret_type,
			secret_name_cipher, secret_name_iv, secret_name_auth_tag,
			secret_value_cipher, secret_value_iv, secret_value_auth_tag,
			algorithm
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+personalSecretColumns,
		owner.UserID, owner.OrganizationID, string(in.Type),
		in.Name.Ciphertext, in.Name.IV, in.Name.AuthTag,
		in.Value.Ciphertext, in.Value.IV, in.Value.AuthTag,
		models.AlgorithmAES256GCM,
	))
	if err != nil {
		return nil, storeError("create", err)
	}
	return secret, nil
}

func (s *PersonalSecretStore) FindByID(ctx context.Context, owner models.Owner, id uuid.UUID) (*models.PersonalSecret, error) {
	secret, err := scanPersonalSecret(s.db.Pool.QueryRow(ctx, `
		SELECT `+personalSecretColumns+`
		FROM personal_secrets
		WHERE id = $1 AND organization_id = $2 AND user_id = $3
	`, id, owner.OrganizationID, owner.UserID))
	if err != nil {
		return nil, storeError("find", err)
	}
	return secret, nil
}

func (s *PersonalSecretStore) FindAll(ctx context.Context, owner models.Owner) ([]models.PersonalSecret, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+personalSecretColumns+`
		FROM personal_secrets
		WHERE organization_id = $1 AND user_id = $2
		ORDER BY created_at DESC
	`, owner.OrganizationID, owner.UserID)
	if err != nil {
		return nil, storeError("list", err)
	}
	defer rows.Close()

	secrets := []models.PersonalSecret{}
	for rows.Next() {
		secret, err := scanPersonalSecret(rows)
		if err != nil {
			return nil, storeError("list", err)
		}
		secrets = append(secrets, *secret)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list", err)
	}
	return secrets, nil
}

// Update replaces both cipher fields in one statement. Owner columns are never written.
func (s *PersonalSecretStore) Update(ctx context.Context, owner models.Owner, id uuid.UUID, in models.SecretInput) (*models.PersonalSecret, error) {
	secret, err := scanPersonalSecret(s.db.Pool.QueryRow(ctx, `
		UPDATE personal_secrets
		SET secret_type = $1,
			secret_name_cipher = $2, secret_name_iv = $3, secret_name_auth_tag = $4,
			secret_value_cipher = $5, secret_value_iv = $6, secret_value_auth_tag = $7,
			updated_at = NOW()
		WHERE id = $8 AND organization_id = $9 AND user_id = $10
		RETURNING `+personalSecretColumns,
		string(in.Type),
		in.Name.Ciphertext, in.Name.IV, in.Name.AuthTag,
		in.Value.Ciphertext, in.Value.IV, in.Value.AuthTag,
		id, owner.OrganizationID, owner.UserID,
	))
	if err != nil {
		return nil, storeError("update", err)
	}
	return secret, nil
}

func (s *PersonalSecretStore) Delete(ctx context.Context, owner models.Owner, id uuid.UUID) error {
	result, err := s.db.Pool.Exec(ctx, `
		DELETE FROM personal_secrets
		WHERE id = $1 AND organization_id = $2 AND user_id = $3
	`, id, owner.OrganizationID, owner.UserID)
	if err != nil {
		return storeError("delete", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPersonalSecretNotFound
	}
	return nil
}
