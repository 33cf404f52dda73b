// Package emulator contains the session orchestration core: the data model,
// the Engine capability interface, health monitoring with automatic rollback,
// the per-session state machine, and the process-wide session registry.
//
// The emulator itself is consumed through the Engine interface only; concrete
// backends are selected at construction time via factory functions.
package emulator
