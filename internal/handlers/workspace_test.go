package handlers_test

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskhive-dev/taskhive/internal/token"
	"github.com/taskhive-dev/taskhive/internal/types"
)

func createWorkspace(t *testing.T, app *testApp, acct account, name string) uint {
	t.Helper()

	rec := app.do(t, request{
		method: http.MethodPost,
		path:   "/api/workspaces",
		token:  acct.AccessToken,
		body:   gin.H{"name": name, "settings": gin.H{"theme": "dark"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body types.WorkspaceResponse
	decode(t, rec, &body)
	return body.ID
}

func addWorkspaceMember(t *testing.T, app *testApp, owner account, workspaceID, userID uint) {
	t.Helper()

	rec := app.do(t, request{
		method: http.MethodPost,
		path:   workspacePath(workspaceID, "/members"),
		token:  owner.AccessToken,
		body:   gin.H{"user_id": userID, "role": "MEMBER"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func workspacePath(workspaceID uint, suffix string) string {
	return "/api/workspaces/" + itoa(workspaceID) + suffix
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestCreateWorkspace_CreatorBecomesOwnerMember(t *testing.T) {
	app := newTestApp(t, token.Config{})

	alice := app.register(t, "Alice", "a@x.com", "password1")
	workspaceID := createWorkspace(t, app, alice, "Acme")

	rec := app.do(t, request{
		method: http.MethodGet,
		path:   workspacePath(workspaceID, ""),
		token:  alice.AccessToken,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body types.WorkspaceResponse
	decode(t, rec, &body)
	assert.Equal(t, alice.UserID, body.OwnerID)
	require.Len(t, body.Members, 1)
	assert.Equal(t, types.RoleOwner, body.Members[0].Role)
	assert.Equal(t, alice.UserID, body.Members[0].User.ID)
}

func TestWorkspaceProjects_MembershipGate(t *testing.T) {
	app := newTestApp(t, token.Config{})

	alice := app.register(t, "Alice", "a@x.com", "password1")
	bob := app.register(t, "Bob", "b@x.com", "password1")

	workspaceID := createWorkspace(t, app, alice, "Acme")

	// Non-member is forbidden.
	rec := app.do(t, request{
		method: http.MethodGet,
		path:   workspacePath(workspaceID, "/projects"),
		token:  bob.AccessToken,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	addWorkspaceMember(t, app, alice, workspaceID, bob.UserID)

	// After addMember the same call succeeds and returns an empty list.
	rec = app.do(t, request{
		method: http.MethodGet,
		path:   workspacePath(workspaceID, "/projects"),
		token:  bob.AccessToken,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var projects []types.ProjectResponse
	decode(t, rec, &projects)
	assert.Empty(t, projects)

	// And the workspace shows up in Bob's list.
	rec = app.do(t, request{
		method: http.MethodGet,
		path:   "/api/workspaces",
		token:  bob.AccessToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var workspaces []types.WorkspaceResponse
	decode(t, rec, &workspaces)
	require.Len(t, workspaces, 1)
	assert.Equal(t, workspaceID, workspaces[0].ID)
}

func TestAddMember_OwnerOnly(t *testing.T) {
	app := newTestApp(t, token.Config{})

	alice := app.register(t, "Alice", "a@x.com", "password1")
	bob := app.register(t, "Bob", "b@x.com", "password1")
	carol := app.register(t, "Carol", "c@x.com", "password1")

	workspaceID := createWorkspace(t, app, alice, "Acme")
	addWorkspaceMember(t, app, alice, workspaceID, bob.UserID)

	// A member who is not the owner cannot add members.
	rec := app.do(t, request{
		method: http.MethodPost,
		path:   workspacePath(workspaceID, "/members"),
		token:  bob.AccessToken,
		body:   gin.H{"user_id": carol.UserID, "role": "MEMBER"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Duplicate membership conflicts.
	rec = app.do(t, request{
		method: http.MethodPost,
		path:   workspacePath(workspaceID, "/members"),
		token:  alice.AccessToken,
		body:   gin.H{"user_id": bob.UserID, "role": "MEMBER"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Unknown target user is not-found.
	rec = app.do(t, request{
		method: http.MethodPost,
		path:   workspacePath(workspaceID, "/members"),
		token:  alice.AccessToken,
		body:   gin.H{"user_id": 9999, "role": "MEMBER"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkspace_MissingReportsNotFoundBeforePermission(t *testing.T) {
	app := newTestApp(t, token.Config{})

	alice := app.register(t, "Alice", "a@x.com", "password1")

	rec := app.do(t, request{
		method: http.MethodGet,
		path:   workspacePath(9999, "/projects"),
		token:  alice.AccessToken,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateAndRemoveMember(t *testing.T) {
	app := newTestApp(t, token.Config{})

	alice := app.register(t, "Alice", "a@x.com", "password1")
	bob := app.register(t, "Bob", "b@x.com", "password1")

	workspaceID := createWorkspace(t, app, alice, "Acme")
	addWorkspaceMember(t, app, alice, workspaceID, bob.UserID)

	rec := app.do(t, request{
		method: http.MethodPatch,
		path:   workspacePath(workspaceID, "/members/"+itoa(bob.UserID)),
		token:  alice.AccessToken,
		body:   gin.H{"role": "ADMIN"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, request{
		method: http.MethodPatch,
		path:   workspacePath(workspaceID, "/members/"+itoa(bob.UserID)),
		token:  bob.AccessToken,
		body:   gin.H{"role": "OWNER"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, request{
		method: http.MethodDelete,
		path:   workspacePath(workspaceID, "/members/"+itoa(bob.UserID)),
		token:  alice.AccessToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Bob lost access.
	rec = app.do(t, request{
		method: http.MethodGet,
		path:   workspacePath(workspaceID, "/projects"),
		token:  bob.AccessToken,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRemoveMember_ThenReAdd(t *testing.T) {
	app := newTestApp(t, token.Config{})

	alice := app.register(t, "Alice", "a@x.com", "password1")
	bob := app.register(t, "Bob", "b@x.com", "password1")

	workspaceID := createWorkspace(t, app, alice, "Acme")
	addWorkspaceMember(t, app, alice, workspaceID, bob.UserID)

	rec := app.do(t, request{
		method: http.MethodDelete,
		path:   workspacePath(workspaceID, "/members/"+itoa(bob.UserID)),
		token:  alice.AccessToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// The removal frees the membership slot; adding the same user again
	// succeeds instead of conflicting.
	addWorkspaceMember(t, app, alice, workspaceID, bob.UserID)

	rec = app.do(t, request{
		method: http.MethodGet,
		path:   workspacePath(workspaceID, "/projects"),
		token:  bob.AccessToken,
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestCreateProject_OwnerOnly(t *testing.T) {
	app := newTestApp(t, token.Config{})

	alice := app.register(t, "Alice", "a@x.com", "password1")
	bob := app.register(t, "Bob", "b@x.com", "password1")

	workspaceID := createWorkspace(t, app, alice, "Acme")
	addWorkspaceMember(t, app, alice, workspaceID, bob.UserID)

	rec := app.do(t, request{
		method: http.MethodPost,
		path:   workspacePath(workspaceID, "/projects"),
		token:  bob.AccessToken,
		body:   gin.H{"name": "Skunkworks"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, request{
		method: http.MethodPost,
		path:   workspacePath(workspaceID, "/projects"),
		token:  alice.AccessToken,
		body:   gin.H{"name": "Skunkworks", "description": "hush"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var project types.ProjectResponse
	decode(t, rec, &project)
	assert.Equal(t, "Skunkworks", project.Name)
	assert.Equal(t, workspaceID, project.WorkspaceID)
}
