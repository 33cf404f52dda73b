package emulator

import "errors"

// Sentinel errors for the session lifecycle and ROM resolution.
// Handlers map these to client-facing statuses; anything else is internal.
var (
	// ErrNoROMSpecified is returned when neither the request nor the
	// configuration names a ROM to load.
	ErrNoROMSpecified = errors.New("no ROM provided and no default ROM configured")

	// ErrUnsupportedExtension is returned when the resolved ROM path does not
	// carry one of the configured extensions.
	ErrUnsupportedExtension = errors.New("unsupported ROM extension")

	// ErrROMNotFound is returned when the resolved ROM path does not exist.
	ErrROMNotFound = errors.New("ROM file not found")

	// ErrSessionNotFound is returned by the manager for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNotStarted is returned when a session operation is attempted before
	// Start or after Close.
	ErrNotStarted = errors.New("session has not been started")

	// ErrUnknownAction is returned by engines for action labels outside the
	// configured action map.
	ErrUnknownAction = errors.New("unknown action")

	// ErrEngineNotRunning is returned by engines when an operation requires a
	// started engine.
	ErrEngineNotRunning = errors.New("engine is not running")

	// ErrNoStateYet is returned by engines when no state has been captured.
	ErrNoStateYet = errors.New("no state available")

	// ErrCorruptState is returned by engines when a persisted snapshot cannot
	// be decoded.
	ErrCorruptState = errors.New("corrupt save state")
)
