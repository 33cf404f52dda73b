package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iaboy/backend/internal/emulator"
	"github.com/iaboy/backend/internal/engine/synthetic"
	"github.com/iaboy/backend/internal/monitoring"
)

// Prometheus collectors register against the default registry, so the test
// binary shares one Metrics instance.
var testMetrics = monitoring.NewMetrics()

func init() {
	gin.SetMode(gin.TestMode)
}

func testEmulatorConfig(t *testing.T) *emulator.Config {
	t.Helper()
	dir := t.TempDir()
	romsPath := filepath.Join(dir, "roms")
	require.NoError(t, os.MkdirAll(romsPath, 0o755))
	romPath := filepath.Join(romsPath, "game.gb")
	require.NoError(t, os.WriteFile(romPath, []byte("rom"), 0o644))

	actions := append(emulator.DefaultActionMap(), emulator.ActionDefinition{Label: "BROKEN"})
	return &emulator.Config{
		ROMsPath:                     romsPath,
		SaveStatesPath:               filepath.Join(dir, "saves"),
		FrameDimensions:              []int{4, 4, 3},
		FrameSkip:                    1,
		AutosaveIntervalSteps:        100,
		HealthCheckIntervalSteps:     1,
		MaxConsecutiveHealthFailures: 1,
		ActionMap:                    actions,
		DefaultROM:                   romPath,
		ROMExtensions:                []string{".gb", ".gbc"},
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *emulator.Manager) {
	t.Helper()
	cfg := testEmulatorConfig(t)
	engineFactory := func(c *emulator.Config) emulator.Engine {
		return synthetic.New(c, synthetic.WithFaultAction("BROKEN"))
	}
	manager := emulator.NewManager(cfg, engineFactory, nil, nil)
	t.Cleanup(manager.Shutdown)

	handlers := NewHandlers(manager, nil, testMetrics, nil)

	router := gin.New()
	router.GET("/health", handlers.Health)
	router.GET("/games", handlers.ListGames)
	sessions := router.Group("/emulator/sessions")
	sessions.POST("", handlers.StartSession)
	sessions.GET("", handlers.ListSessions)
	sessions.POST("/:id/step", handlers.Step)
	sessions.GET("/:id/state", handlers.GetState)
	sessions.POST("/:id/reset", handlers.Reset)
	sessions.POST("/:id/save", handlers.SaveState)
	sessions.POST("/:id/load", handlers.LoadState)
	sessions.GET("/:id/health", handlers.SessionHealth)
	sessions.POST("/:id/chat", handlers.Chat)
	sessions.DELETE("/:id", handlers.CloseSession)
	router.GET("/emulator/health", handlers.GlobalHealth)
	return router, manager
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader([]byte("{}"))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var parsed map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func startTestSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w, body := doJSON(t, router, http.MethodPost, "/emulator/sessions", StartSessionRequest{})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sessionID, _ := body["session_id"].(string)
	require.NotEmpty(t, sessionID)
	return sessionID
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w, body := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "config")
}

func TestListGames(t *testing.T) {
	router, _ := newTestRouter(t)

	w, body := doJSON(t, router, http.MethodGet, "/games", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	games, ok := body["games"].([]interface{})
	require.True(t, ok)
	assert.Contains(t, games, "game")
}

func TestStartSessionAndGetState(t *testing.T) {
	router, manager := newTestRouter(t)
	sessionID := startTestSession(t, router)
	assert.Equal(t, 1, manager.Count())

	w, body := doJSON(t, router, http.MethodGet, "/emulator/sessions/"+sessionID+"/state", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sessionID, body["session_id"])

	state, ok := body["state"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 0, state["step_count"])
}

func TestStartSessionRejectsUnknownROM(t *testing.T) {
	router, _ := newTestRouter(t)

	w, body := doJSON(t, router, http.MethodPost, "/emulator/sessions", StartSessionRequest{ROMPath: "missing.gb"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "not found")
}

func TestStepAdvancesSession(t *testing.T) {
	router, _ := newTestRouter(t)
	sessionID := startTestSession(t, router)

	w, body := doJSON(t, router, http.MethodPost, "/emulator/sessions/"+sessionID+"/step", StepRequest{Action: "A"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, sessionID, body["session_id"])
	assert.EqualValues(t, 1.0, body["reward"])

	state, ok := body["state"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, state["step_count"])
}

func TestStepRecoversFromBrokenFrame(t *testing.T) {
	router, _ := newTestRouter(t)
	sessionID := startTestSession(t, router)

	w, body := doJSON(t, router, http.MethodPost, "/emulator/sessions/"+sessionID+"/step", StepRequest{Action: "BROKEN"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 0.0, body["reward"])
	assert.Equal(t, true, body["truncated"])

	info, ok := body["info"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, info["recovered"])
}

func TestStepValidation(t *testing.T) {
	router, _ := newTestRouter(t)
	sessionID := startTestSession(t, router)

	w, body := doJSON(t, router, http.MethodPost, "/emulator/sessions/"+sessionID+"/step", StepRequest{Action: "WARP"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "unknown action")

	w, _ = doJSON(t, router, http.MethodPost, "/emulator/sessions/"+sessionID+"/step", StepRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty action with use_ai off is rejected")

	w, body = doJSON(t, router, http.MethodPost, "/emulator/sessions/"+sessionID+"/step", StepRequest{UseAI: true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "not configured")
}

func TestStepUnknownSession(t *testing.T) {
	router, _ := newTestRouter(t)

	w, _ := doJSON(t, router, http.MethodPost, "/emulator/sessions/sess_nope/step", StepRequest{Action: "A"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSaveAndLoadState(t *testing.T) {
	router, _ := newTestRouter(t)
	sessionID := startTestSession(t, router)

	_, _ = doJSON(t, router, http.MethodPost, "/emulator/sessions/"+sessionID+"/step", StepRequest{Action: "A"})

	w, body := doJSON(t, router, http.MethodPost, "/emulator/sessions/"+sessionID+"/save", nil)
	require.Equal(t, http.StatusOK, w.Code)
	path, _ := body["path"].(string)
	require.NotEmpty(t, path)
	assert.FileExists(t, path)

	_, _ = doJSON(t, router, http.MethodPost, "/emulator/sessions/"+sessionID+"/step", StepRequest{Action: "A"})

	w, body = doJSON(t, router, http.MethodPost, "/emulator/sessions/"+sessionID+"/load", LoadStateRequest{Path: path})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	state, ok := body["state"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, state["step_count"])
}

func TestLoadStateRequiresPath(t *testing.T) {
	router, _ := newTestRouter(t)
	sessionID := startTestSession(t, router)

	w, _ := doJSON(t, router, http.MethodPost, "/emulator/sessions/"+sessionID+"/load", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResetEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	sessionID := startTestSession(t, router)

	_, _ = doJSON(t, router, http.MethodPost, "/emulator/sessions/"+sessionID+"/step", StepRequest{Action: "A"})

	w, body := doJSON(t, router, http.MethodPost, "/emulator/sessions/"+sessionID+"/reset", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	state, ok := body["state"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 0, state["step_count"])
}

func TestSessionHealthEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)
	sessionID := startTestSession(t, router)

	w, body := doJSON(t, router, http.MethodGet, "/emulator/sessions/"+sessionID+"/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	health, ok := body["health"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, health, "status")

	w, body = doJSON(t, router, http.MethodGet, "/emulator/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	all, ok := body["sessions"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, all, sessionID)
}

func TestCloseSessionIsIdempotent(t *testing.T) {
	router, manager := newTestRouter(t)
	sessionID := startTestSession(t, router)

	w, body := doJSON(t, router, http.MethodDelete, "/emulator/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["closed"])
	assert.Equal(t, 0, manager.Count())

	w, _ = doJSON(t, router, http.MethodDelete, "/emulator/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChatWithoutAIClient(t *testing.T) {
	router, _ := newTestRouter(t)
	sessionID := startTestSession(t, router)

	w, body := doJSON(t, router, http.MethodPost, "/emulator/sessions/"+sessionID+"/chat", map[string]interface{}{
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "not configured")
}

func TestListSessions(t *testing.T) {
	router, _ := newTestRouter(t)
	first := startTestSession(t, router)
	second := startTestSession(t, router)

	w, body := doJSON(t, router, http.MethodGet, "/emulator/sessions", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	ids, ok := body["sessions"].([]interface{})
	require.True(t, ok)
	assert.ElementsMatch(t, []interface{}{first, second}, ids)
}

func TestObservationSummary(t *testing.T) {
	state := &emulator.GameState{
		Frame:     emulator.NewFrame([]byte{10, 20, 30}, []int{1, 1, 3}),
		StepCount: 7,
	}
	summary := observationSummary(state)
	assert.Contains(t, summary, fmt.Sprintf(`"step_count":%d`, 7))
	assert.Contains(t, summary, `"mean_pixel":20`)
}
