package emulator

// Engine is the capability contract the session core consumes. It executes
// emulation ticks, captures snapshots, and (de)serialises its entire state to
// durable storage. Implementations are not required to be safe for concurrent
// use; the session serialises every call.
type Engine interface {
	// Start initialises the engine against the ROM at romPath and returns the
	// initial state.
	Start(romPath string) (*GameState, error)

	// Step executes one logical step (frame-skip ticks) for the given action
	// label and returns the outcome.
	Step(actionLabel string) (*StepResult, error)

	// Reset reloads the current ROM from disk, discarding all progress.
	Reset() (*GameState, error)

	// CaptureState returns the most recently captured state without advancing
	// the emulation.
	CaptureState() (*GameState, error)

	// SaveState serialises the entire engine state to path and returns the
	// path actually written.
	SaveState(path string) (string, error)

	// LoadState restores the engine from a persisted snapshot and returns the
	// resulting state.
	LoadState(path string) (*GameState, error)

	// Shutdown releases engine resources. Idempotent.
	Shutdown()

	// ActionLabels returns the distinct action labels the engine accepts, in
	// a stable order.
	ActionLabels() []string
}
