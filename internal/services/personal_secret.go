package services

import (
	"context"
	"errors"

	"github.com/dimitrije/personal-secrets/internal/models"
	"github.com/google/uuid"
)

var (
	ErrUnauthorizedOwner = errors.New("unauthorized to modify personal secret")
	ErrInvalidSession    = errors.New("session has no user or organization")
)

// SecretStore is the persistence contract PersonalSecretService depends on.
type SecretStore interface {
	Create(ctx context.Context, owner models.Owner, in models.SecretInput) (*models.PersonalSecret, error)
	FindByID(ctx context.Context, owner models.Owner, id uuid.UUID) (*models.PersonalSecret, error)
	FindAll(ctx context.Context, owner models.Owner) ([]models.PersonalSecret, error)
	Update(ctx context.Context, owner models.Owner, id uuid.UUID, in models.SecretInput) (*models.PersonalSecret, error)
	Delete(ctx context.Context, owner models.Owner, id uuid.UUID) error
}

// PersonalSecretService authorizes every call with the owner pair taken from
// the verified session. Records owned by someone else are reported as
// ErrPersonalSecretNotFound so callers cannot probe for their existence.
type PersonalSecretService struct {
	store SecretStore
}

func NewPersonalSecretService(store SecretStore) *PersonalSecretService {
	return &PersonalSecretService{store: store}
}

func (s *PersonalSecretService) Create(ctx context.Context, session models.Owner, in models.SecretInput) (*models.PersonalSecret, error) {
	if !session.Valid() {
		return nil, ErrInvalidSession
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.store.Create(ctx, session, in)
}

func (s *PersonalSecretService) Get(ctx context.Context, session models.Owner, id uuid.UUID) (*models.PersonalSecret, error) {
	if !session.Valid() {
		return nil, ErrInvalidSession
	}
	return s.store.FindByID(ctx, session, id)
}

func (s *PersonalSecretService) List(ctx context.Context, session models.Owner) ([]models.PersonalSecret, error) {
	if !session.Valid() {
		return nil, ErrInvalidSession
	}
	return s.store.FindAll(ctx, session)
}

// Update rejects the call before touching the store when the owner pair the
// caller claims differs from the session.
func (s *PersonalSecretService) Update(ctx context.Context, session, claimed models.Owner, id uuid.UUID, in models.SecretInput) (*models.PersonalSecret, error) {
	if !session.Valid() {
		return nil, ErrInvalidSession
	}
	if claimed != session {
		return nil, ErrUnauthorizedOwner
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.store.Update(ctx, session, id, in)
}

func (s *PersonalSecretService) Delete(ctx context.Context, session models.Owner, id uuid.UUID) error {
	if !session.Valid() {
		return ErrInvalidSession
	}
	return s.store.Delete(ctx, session, id)
}
