package ws

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/iaboy/backend/internal/emulator"
	"github.com/iaboy/backend/internal/logging"
	"github.com/iaboy/backend/internal/monitoring"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // dev frontend is served from a different origin
	},
}

// Message is one inbound websocket command.
type Message struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
}

// Handler manages websocket connections to emulator sessions.
type Handler struct {
	manager *emulator.Manager
	metrics *monitoring.Metrics
	log     *logging.Logger
}

// NewHandler creates a websocket handler.
func NewHandler(manager *emulator.Manager, metrics *monitoring.Metrics, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{manager: manager, metrics: metrics, log: log}
}

// HandleConnection upgrades the request and serves step/state/ping commands
// for the session named in the session_id query parameter.
func (h *Handler) HandleConnection(c *gin.Context) {
	session, err := h.manager.GetSession(c.Query("session_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	connID := uuid.New().String()
	h.log.Info("websocket connected",
		zap.String("conn_id", connID),
		zap.String("session_id", session.ID()),
	)

	h.send(conn, map[string]interface{}{
		"type":       "system",
		"conn_id":    connID,
		"session_id": session.ID(),
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			h.log.Debug("websocket closed", zap.String("conn_id", connID), zap.Error(err))
			return
		}
		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.sendError(conn, "malformed message")
			continue
		}

		switch msg.Type {
		case "step":
			h.handleStep(conn, session, msg.Action)
		case "state":
			h.handleState(conn, session)
		case "ping":
			h.send(conn, map[string]interface{}{"type": "pong"})
		default:
			h.sendError(conn, "unknown message type")
		}
	}
}

// clientMessage mirrors the HTTP error policy: validation and lifecycle
// errors are relayed verbatim, anything else is masked so engine state never
// leaks to clients.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, emulator.ErrSessionNotFound),
		errors.Is(err, emulator.ErrUnknownAction),
		errors.Is(err, emulator.ErrNotStarted),
		errors.Is(err, emulator.ErrNoStateYet):
		return err.Error()
	default:
		return "internal error"
	}
}

func (h *Handler) handleStep(conn *websocket.Conn, session *emulator.Session, action string) {
	result, err := session.Step(action)
	if err != nil {
		h.log.Warn("websocket step failed", zap.Error(err))
		h.sendError(conn, clientMessage(err))
		return
	}
	recovered, _ := result.Info["recovered"].(bool)
	h.metrics.RecordStep(recovered)

	h.send(conn, map[string]interface{}{
		"type":   "step_result",
		"result": result.Payload(),
	})
}

func (h *Handler) handleState(conn *websocket.Conn, session *emulator.Session) {
	state, err := session.CurrentState()
	if err != nil {
		h.sendError(conn, clientMessage(err))
		return
	}
	h.send(conn, map[string]interface{}{
		"type":  "state",
		"state": state.Payload(),
	})
}

func (h *Handler) send(conn *websocket.Conn, payload map[string]interface{}) {
	data, err := sonic.Marshal(payload)
	if err != nil {
		h.log.Warn("websocket encode failed", zap.Error(err))
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.log.Debug("websocket write failed", zap.Error(err))
	}
}

func (h *Handler) sendError(conn *websocket.Conn, message string) {
	h.send(conn, map[string]interface{}{
		"type":  "error",
		"error": message,
	})
}
