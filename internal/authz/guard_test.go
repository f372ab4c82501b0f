package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskhive-dev/taskhive/internal/apperr"
	"github.com/taskhive-dev/taskhive/internal/models"
	"github.com/taskhive-dev/taskhive/internal/testdb"
	"gorm.io/gorm"
)

type fixture struct {
	guard     *Guard
	owner     models.User
	member    models.User
	outsider  models.User
	workspace models.Workspace
	project   models.Project
}

func newFixture(t *testing.T) (*gorm.DB, *fixture) {
	t.Helper()

	conn := testdb.New(t)
	f := &fixture{guard: NewGuard(conn)}

	f.owner = models.User{Name: "Owner", Email: "owner@x.com", PasswordHash: "x"}
	f.member = models.User{Name: "Member", Email: "member@x.com", PasswordHash: "x"}
	f.outsider = models.User{Name: "Outsider", Email: "outsider@x.com", PasswordHash: "x"}
	for _, u := range []*models.User{&f.owner, &f.member, &f.outsider} {
		require.NoError(t, conn.Create(u).Error)
	}

	f.workspace = models.Workspace{Name: "W", OwnerID: f.owner.ID}
	require.NoError(t, conn.Create(&f.workspace).Error)

	for _, m := range []models.WorkspaceMember{
		{WorkspaceID: f.workspace.ID, UserID: f.owner.ID, Role: "OWNER"},
		{WorkspaceID: f.workspace.ID, UserID: f.member.ID, Role: "MEMBER"},
	} {
		require.NoError(t, conn.Create(&m).Error)
	}

	f.project = models.Project{Name: "P", WorkspaceID: f.workspace.ID}
	require.NoError(t, conn.Create(&f.project).Error)

	membership := models.ProjectMembership{ProjectID: f.project.ID, UserID: f.member.ID, Role: "MEMBER"}
	require.NoError(t, conn.Create(&membership).Error)

	return conn, f
}

func TestRequireWorkspaceOwner(t *testing.T) {
	_, f := newFixture(t)

	workspace, err := f.guard.RequireWorkspaceOwner(f.workspace.ID, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, f.workspace.ID, workspace.ID)

	_, err = f.guard.RequireWorkspaceOwner(f.workspace.ID, f.member.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.guard.RequireWorkspaceOwner(f.workspace.ID, f.outsider.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestRequireWorkspaceMember(t *testing.T) {
	_, f := newFixture(t)

	_, err := f.guard.RequireWorkspaceMember(f.workspace.ID, f.member.ID)
	require.NoError(t, err)

	_, err = f.guard.RequireWorkspaceMember(f.workspace.ID, f.outsider.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestExistenceCheckedBeforePermission(t *testing.T) {
	_, f := newFixture(t)

	// A missing resource is not-found for everyone, including callers who
	// would have been forbidden on a present one.
	_, err := f.guard.RequireWorkspaceOwner(9999, f.outsider.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.guard.RequireWorkspaceMember(9999, f.outsider.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.guard.RequireProjectMember(9999, f.outsider.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.guard.RequireNotificationRecipient(9999, f.outsider.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRequireProjectMember(t *testing.T) {
	_, f := newFixture(t)

	project, err := f.guard.RequireProjectMember(f.project.ID, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, f.project.ID, project.ID)

	// Workspace membership alone is not enough for task mutation paths.
	_, err = f.guard.RequireProjectMember(f.project.ID, f.owner.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestRequireProjectWorkspaceMember(t *testing.T) {
	_, f := newFixture(t)

	_, err := f.guard.RequireProjectWorkspaceMember(f.project.ID, f.owner.ID)
	require.NoError(t, err)

	_, err = f.guard.RequireProjectWorkspaceMember(f.project.ID, f.outsider.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestRequireProjectWorkspaceOwner(t *testing.T) {
	_, f := newFixture(t)

	_, err := f.guard.RequireProjectWorkspaceOwner(f.project.ID, f.owner.ID)
	require.NoError(t, err)

	_, err = f.guard.RequireProjectWorkspaceOwner(f.project.ID, f.member.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestRequireNotificationRecipient(t *testing.T) {
	conn, f := newFixture(t)

	notification := models.Notification{Title: "t", Body: "b", RecipientID: f.member.ID}
	require.NoError(t, conn.Create(&notification).Error)

	got, err := f.guard.RequireNotificationRecipient(notification.ID, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.ID, got.ID)

	_, err = f.guard.RequireNotificationRecipient(notification.ID, f.owner.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
