package http

import "github.com/iaboy/backend/internal/ai"

// StartSessionRequest creates a new emulator session. ROMPath may be a bare
// filename (resolved under the ROM directory), an absolute path, or empty to
// use the configured default ROM.
type StartSessionRequest struct {
	ROMPath string `json:"rom_path"`
}

// StepRequest executes one action in a session. With UseAI set, the action
// is chosen by the AI client and Action becomes a suggestion passed along in
// the prompt.
type StepRequest struct {
	Action string `json:"action"`
	UseAI  bool   `json:"use_ai"`
}

// LoadStateRequest restores a session from an explicit snapshot path.
type LoadStateRequest struct {
	Path string `json:"path" binding:"required"`
}

// ChatRequest relays a conversation to the AI client.
type ChatRequest struct {
	Messages []ai.Message `json:"messages" binding:"required,min=1"`
}
