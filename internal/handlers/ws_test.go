package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskhive-dev/taskhive/internal/events"
	"github.com/taskhive-dev/taskhive/internal/types"
)

func dialTaskStream(t *testing.T, server *httptest.Server, acct account, workspaceID uint) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") +
		"/api/ws/workspaces/" + itoa(workspaceID) + "/tasks"

	header := http.Header{}
	header.Set("Authorization", "Bearer "+acct.AccessToken)

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// Welcome frame arrives first.
	var welcome struct {
		Type string `json:"type"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&welcome))
	require.Equal(t, "connected", welcome.Type)

	return conn
}

func TestTaskStream_ForwardsTaskAdded(t *testing.T) {
	f := newProjectFixture(t)

	server := httptest.NewServer(f.app.r)
	defer server.Close()

	conn := dialTaskStream(t, server, f.bob, f.workspaceID)

	created := f.addTask(t, f.alice, gin.H{"title": "Ship it"})

	var frame struct {
		Type string             `json:"type"`
		Task types.TaskResponse `json:"task"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&frame))

	assert.Equal(t, events.TaskAdded, frame.Type)
	assert.Equal(t, created.ID, frame.Task.ID)
	assert.Equal(t, "Ship it", frame.Task.Title)
}

func TestTaskStream_RequiresWorkspaceMembership(t *testing.T) {
	f := newProjectFixture(t)

	server := httptest.NewServer(f.app.r)
	defer server.Close()

	outsider := f.app.register(t, "Carol", "c@x.com", "password1")

	url := "ws" + strings.TrimPrefix(server.URL, "http") +
		"/api/ws/workspaces/" + itoa(f.workspaceID) + "/tasks"

	header := http.Header{}
	header.Set("Authorization", "Bearer "+outsider.AccessToken)

	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
