// Package config provides 12-factor configuration for the emulator backend.
//
// Settings are loaded from IABOY_*-prefixed environment variables with
// sensible defaults, then expanded into the emulator subsystem configuration
// (directory creation, action map assembly, validation).
//
// Sections:
//   - Server: HTTP listen address
//   - Logging: level and output format
//   - RateLimit: per-IP request limiting
//   - Ollama: conversational AI service endpoint and model
//   - Emulator: ROM/save-state paths, frame geometry, autosave and
//     health-check cadence, action bindings
//
// Example:
//
//	settings := config.LoadOrDefault()
//	cfg, err := settings.BuildEmulatorConfig()
package config
