package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/taskhive-dev/taskhive/internal/authz"
	"github.com/taskhive-dev/taskhive/internal/events"
	"github.com/taskhive-dev/taskhive/internal/middleware"
	"github.com/taskhive-dev/taskhive/internal/models"
	"github.com/taskhive-dev/taskhive/internal/types"
	"gorm.io/gorm"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	// Events queued per connection while the writer catches up.
	subscriberBuffer = 16
)

type WSHandler struct {
	db             *gorm.DB
	guard          *authz.Guard
	broker         *events.Broker
	allowedOrigins []string
}

func NewWSHandler(db *gorm.DB, guard *authz.Guard, broker *events.Broker, allowedOrigins []string) *WSHandler {
	return &WSHandler{db: db, guard: guard, broker: broker, allowedOrigins: allowedOrigins}
}

// TaskEvents streams task-added events for one workspace. The subscription
// registers before the first event can arrive, so nothing published after
// the upgrade is lost; each event is re-fetched with relations before it is
// forwarded.
func (h *WSHandler) TaskEvents(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)

	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	workspaceID, ok := parseIDParam(c, "workspace_id")
	if !ok {
		return
	}

	if _, err := h.guard.RequireWorkspaceMember(workspaceID, userID); err != nil {
		respondError(c, err)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser client; the bearer check already ran.
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Failed to set initial read deadline: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Failed to set read deadline in pong handler: %v", err)
		}
		return nil
	})

	sub := h.broker.Subscribe(subscriberBuffer)
	defer sub.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}

	err = conn.WriteJSON(map[string]any{
		"type":         "connected",
		"workspace_id": workspaceID,
	})
	if err != nil {
		log.Printf("Failed to send welcome message: %v", err)
		return
	}

	// Drain client frames so pongs are processed and closes are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case ev, open := <-sub.C:
			if !open {
				return
			}

			if ev.Type != events.TaskAdded || ev.WorkspaceID != workspaceID {
				continue
			}

			var task models.Task
			err := h.db.Preload("Assignees.User").Preload("Project").First(&task, ev.TaskID).Error
			if err != nil {
				log.Printf("Failed to load task %d for stream: %v", ev.TaskID, err)
				continue
			}

			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}

			err = conn.WriteJSON(map[string]any{
				"type": events.TaskAdded,
				"task": types.NewTaskResponse(task),
			})
			if err != nil {
				log.Printf("Failed to forward task event: %v", err)
				return
			}
		}
	}
}
