package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/iaboy/backend/internal/ai"
	"github.com/iaboy/backend/internal/config"
	"github.com/iaboy/backend/internal/emulator"
	"github.com/iaboy/backend/internal/logging"
	"github.com/iaboy/backend/internal/monitoring"
)

// Handlers contains all HTTP handlers for the emulator service.
type Handlers struct {
	manager  *emulator.Manager
	aiClient *ai.Client
	metrics  *monitoring.Metrics
	log      *logging.Logger
}

// NewHandlers creates the handler set. aiClient may be nil; AI-assisted
// endpoints then reject requests.
func NewHandlers(manager *emulator.Manager, aiClient *ai.Client, metrics *monitoring.Metrics, log *logging.Logger) *Handlers {
	if log == nil {
		log = logging.Nop()
	}
	return &Handlers{
		manager:  manager,
		aiClient: aiClient,
		metrics:  metrics,
		log:      log,
	}
}

// Health reports service status, the configured model, and a config snapshot.
func (h *Handlers) Health(c *gin.Context) {
	model := ""
	if h.aiClient != nil {
		model = h.aiClient.Model()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"model":           model,
		"active_sessions": h.manager.Count(),
		"config":          h.manager.Config().Snapshot(),
	})
}

// ListGames lists ROMs discovered under the configured directory.
func (h *Handlers) ListGames(c *gin.Context) {
	cfg := h.manager.Config()
	c.JSON(http.StatusOK, gin.H{
		"games": config.AvailableGames(cfg.ROMsPath, cfg.ROMExtensions),
	})
}

// StartSession creates and starts a new session.
func (h *Handlers) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.manager.StartSession(req.ROMPath)
	if err != nil {
		respondError(c, err)
		return
	}
	state, err := session.CurrentState()
	if err != nil {
		respondError(c, err)
		return
	}

	h.metrics.SessionsStarted.Inc()
	h.metrics.SessionsActive.Set(float64(h.manager.Count()))

	c.JSON(http.StatusCreated, gin.H{
		"session_id":    session.ID(),
		"state":         state.Payload(),
		"action_labels": session.ActionLabels(),
		"config":        session.Config().Snapshot(),
	})
}

// ListSessions returns the ids of every active session.
func (h *Handlers) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.manager.ListSessionIDs()})
}

// Step executes one action in a session, optionally letting the AI pick it.
func (h *Handlers) Step(c *gin.Context) {
	session, err := h.manager.GetSession(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	var req StepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	action := req.Action
	if req.UseAI {
		if h.aiClient == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "AI assistance is not configured"})
			return
		}
		state, err := session.CurrentState()
		if err != nil {
			respondError(c, err)
			return
		}
		prompt := ai.BuildActionPrompt(observationSummary(state), session.ActionLabels(), session.Config().DefaultROM, req.Action)
		suggested, err := h.aiClient.SuggestAction(c.Request.Context(), prompt)
		if err != nil {
			h.log.Warn("AI action suggestion failed", zap.Error(err))
			respondError(c, err)
			return
		}
		action = suggested
	}
	if action == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no action to execute"})
		return
	}

	result, err := session.Step(action)
	if err != nil {
		respondError(c, err)
		return
	}

	recovered, _ := result.Info["recovered"].(bool)
	h.metrics.RecordStep(recovered)

	payload := result.Payload()
	payload["session_id"] = session.ID()
	c.JSON(http.StatusOK, payload)
}

// GetState returns the session's current state without advancing it.
func (h *Handlers) GetState(c *gin.Context) {
	session, err := h.manager.GetSession(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	state, err := session.CurrentState()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID(),
		"state":      state.Payload(),
	})
}

// Reset reloads the session's original ROM.
func (h *Handlers) Reset(c *gin.Context) {
	session, err := h.manager.GetSession(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	state, err := session.Reset()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID(),
		"state":      state.Payload(),
	})
}

// SaveState persists a snapshot and returns its path.
func (h *Handlers) SaveState(c *gin.Context) {
	session, err := h.manager.GetSession(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	path, err := session.SaveState()
	if err != nil {
		respondError(c, err)
		return
	}
	h.metrics.SavesTotal.Inc()
	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID(),
		"path":       path,
	})
}

// LoadState restores a session from an explicit snapshot path.
func (h *Handlers) LoadState(c *gin.Context) {
	session, err := h.manager.GetSession(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	var req LoadStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	state, err := session.LoadState(req.Path)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID(),
		"state":      state.Payload(),
	})
}

// SessionHealth returns the monitor payload for one session.
func (h *Handlers) SessionHealth(c *gin.Context) {
	session, err := h.manager.GetSession(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID(),
		"health":     session.CurrentHealth(),
		"config":     session.Config().Snapshot(),
	})
}

// GlobalHealth returns the monitor payload for every active session.
func (h *Handlers) GlobalHealth(c *gin.Context) {
	health := gin.H{}
	for _, sessionID := range h.manager.ListSessionIDs() {
		if session, err := h.manager.GetSession(sessionID); err == nil {
			health[sessionID] = session.CurrentHealth()
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"sessions": health,
		"config":   h.manager.Config().Snapshot(),
	})
}

// CloseSession closes and removes a session. Idempotent.
func (h *Handlers) CloseSession(c *gin.Context) {
	sessionID := c.Param("id")
	h.manager.CloseSession(sessionID)
	h.metrics.SessionsActive.Set(float64(h.manager.Count()))
	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"closed":     true,
	})
}

// Chat relays a conversation to the AI client.
func (h *Handlers) Chat(c *gin.Context) {
	if _, err := h.manager.GetSession(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	if h.aiClient == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "AI assistance is not configured"})
		return
	}
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reply, err := h.aiClient.ChatReply(c.Request.Context(), req.Messages)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
