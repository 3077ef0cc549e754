package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimitrije/personal-secrets/internal/database"
	"github.com/dimitrije/personal-secrets/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupOrganizationService(t *testing.T) (*OrganizationService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return NewOrganizationService(db), mock
}

func TestOrganizationService_Create(t *testing.T) {
	svc, mock := setupOrganizationService(t)
	ownerID := uuid.New()
	orgID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO organizations`).
		WithArgs("Acme", ownerID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "owner_id", "created_at", "updated_at"}).
			AddRow(orgID, "Acme", ownerID, now, now))
	mock.ExpectExec(`INSERT INTO organization_members`).
		WithArgs(orgID, ownerID, models.RoleOwner).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	org, err := svc.Create(context.Background(), "Acme", ownerID)

	require.NoError(t, err)
	assert.Equal(t, orgID, org.ID)
	assert.Equal(t, ownerID, org.OwnerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrganizationService_Create_MemberInsertFails(t *testing.T) {
	svc, mock := setupOrganizationService(t)
	ownerID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO organizations`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "owner_id", "created_at", "updated_at"}).
			AddRow(uuid.New(), "Acme", ownerID, now, now))
	mock.ExpectExec(`INSERT INTO organization_members`).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), "Acme", ownerID)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to add owner as member")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrganizationService_GetByID_NotFound(t *testing.T) {
	svc, mock := setupOrganizationService(t)
	orgID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM organizations WHERE id`).
		WithArgs(orgID).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetByID(context.Background(), orgID)

	assert.ErrorIs(t, err, ErrOrganizationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrganizationService_ListForUser(t *testing.T) {
	svc, mock := setupOrganizationService(t)
	userID := uuid.New()
	now := time.Now()
	org1, org2 := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM organizations o\s+JOIN organization_members om`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "owner_id", "created_at", "updated_at", "role"}).
			AddRow(org1, "Mine", userID, now, now, models.RoleOwner).
			AddRow(org2, "Theirs", uuid.New(), now, now, models.RoleMember))

	orgs, roles, err := svc.ListForUser(context.Background(), userID)

	require.NoError(t, err)
	require.Len(t, orgs, 2)
	assert.Equal(t, org1, orgs[0].ID)
	assert.Equal(t, []string{models.RoleOwner, models.RoleMember}, roles)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrganizationService_ListForUser_Empty(t *testing.T) {
	svc, mock := setupOrganizationService(t)

	mock.ExpectQuery(`SELECT .+ FROM organizations`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "owner_id", "created_at", "updated_at", "role"}))

	orgs, roles, err := svc.ListForUser(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.NotNil(t, orgs)
	assert.Empty(t, orgs)
	assert.Empty(t, roles)
}

func TestOrganizationService_IsMember(t *testing.T) {
	testCases := []struct {
		name   string
		exists bool
	}{
		{"member", true},
		{"not a member", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, mock := setupOrganizationService(t)
			orgID, userID := uuid.New(), uuid.New()

			mock.ExpectQuery(`SELECT EXISTS`).
				WithArgs(orgID, userID).
				WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(tc.exists))

			ok, err := svc.IsMember(context.Background(), orgID, userID)

			require.NoError(t, err)
			assert.Equal(t, tc.exists, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestOrganizationService_AddMember(t *testing.T) {
	svc, mock := setupOrganizationService(t)
	orgID, userID := uuid.New(), uuid.New()

	mock.ExpectExec(`INSERT INTO organization_members .+ ON CONFLICT`).
		WithArgs(orgID, userID, models.RoleMember).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := svc.AddMember(context.Background(), orgID, userID)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
