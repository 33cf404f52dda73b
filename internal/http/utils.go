package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iaboy/backend/internal/emulator"
)

// statusFor maps domain errors to HTTP statuses. Validation and lifecycle
// misuse are client errors; unknown ids are 404; everything else is internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, emulator.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, emulator.ErrNoROMSpecified),
		errors.Is(err, emulator.ErrUnsupportedExtension),
		errors.Is(err, emulator.ErrROMNotFound),
		errors.Is(err, emulator.ErrUnknownAction),
		errors.Is(err, emulator.ErrNotStarted):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error as JSON. Internal errors carry a generic
// message so engine state never leaks to clients.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	c.JSON(status, gin.H{"error": message})
}

// observationSummary returns a compact textual description of a state for AI
// prompts: frame shape, mean pixel value, and capture time.
func observationSummary(state *emulator.GameState) string {
	var mean float64
	if len(state.Frame.Pixels) > 0 {
		var sum int
		for _, p := range state.Frame.Pixels {
			sum += int(p)
		}
		mean = float64(sum) / float64(len(state.Frame.Pixels))
	}
	summary, _ := json.Marshal(map[string]interface{}{
		"shape":      state.Frame.Shape,
		"mean_pixel": mean,
		"step_count": state.StepCount,
		"timestamp":  state.Frame.Timestamp,
	})
	return string(summary)
}
