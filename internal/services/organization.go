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

var ErrOrganizationNotFound = errors.New("organization not found")

type OrganizationService struct {
	db *database.DB
}

func NewOrganizationService(db *database.DB) *OrganizationService {
	return &OrganizationService{db: db}
}

// Create inserts the organization and its owner membership in one transaction.
func (s *OrganizationService) Create(ctx context.Context, name string, ownerID uuid.UUID) (*models.Organization, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var org models.Organization
	err = tx.QueryRow(ctx, `
		INSERT INTO organizations (name, owner_id)
		VALUES ($1, $2)
		RETURNING id, name, owner_id, created_at, updated_at
	`, name, ownerID).Scan(&org.ID, &org.Name, &org.OwnerID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO organization_members (organization_id, user_id, role)
		VALUES ($1, $2, $3)
	`, org.ID, ownerID, models.RoleOwner)
	if err != nil {
		return nil, fmt.Errorf("failed to add owner as member: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &org, nil
}

func (s *OrganizationService) GetByID(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM organizations WHERE id = $1
	`, orgID).Scan(&org.ID, &org.Name, &org.OwnerID, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// ListForUser returns the organizations the user belongs to together with the
// user's role in each, newest first.
func (s *OrganizationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Organization, []string, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT o.id, o.name, o.owner_id, o.created_at, o.updated_at, om.role
		FROM organizations o
		JOIN organization_members om ON o.id = om.organization_id
		WHERE om.user_id = $1
		ORDER BY o.created_at DESC
	`, userID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	orgs := []models.Organization{}
	roles := []string{}
	for rows.Next() {
		var org models.Organization
		var role string
		if err := rows.Scan(&org.ID, &org.Name, &org.OwnerID, &org.CreatedAt, &org.UpdatedAt, &role); err != nil {
			return nil, nil, err
		}
		orgs = append(orgs, org)
		roles = append(roles, role)
	}
	return orgs, roles, rows.Err()
}

func (s *OrganizationService) IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM organization_members WHERE organization_id = $1 AND user_id = $2)
	`, orgID, userID).Scan(&exists)
	return exists, err
}

// AddMember is idempotent; an existing membership keeps its role.
func (s *OrganizationService) AddMember(ctx context.Context, orgID, userID uuid.UUID) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO organization_members (organization_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (organization_id, user_id) DO NOTHING
	`, orgID, userID, models.RoleMember)
	return err
}
