// Package synthetic provides a deterministic, in-process implementation of
// the emulator Engine contract. It renders procedurally generated frames,
// ramps a synthetic score, and persists its entire state as gzip-compressed
// JSON snapshots. Useful as a development backend and as a realistic engine
// for integration tests.
package synthetic

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/iaboy/backend/internal/emulator"
)

// Engine is a deterministic emulator backend. Not safe for concurrent use;
// the session layer serialises every call.
type Engine struct {
	config      *emulator.Config
	faultAction string

	romPath   string
	romSeed   uint64
	running   bool
	stepCount int
	score     int
	lastState *emulator.GameState
}

// Option configures a synthetic engine.
type Option func(*Engine)

// WithFaultAction makes the engine emit an empty frame whenever the given
// action label is stepped. Used to exercise health failure and recovery
// paths end to end.
func WithFaultAction(label string) Option {
	return func(e *Engine) {
		e.faultAction = label
	}
}

// New creates a synthetic engine bound to the emulator configuration.
func New(config *emulator.Config, opts ...Option) *Engine {
	e := &Engine{config: config}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Factory adapts New to the manager's EngineFactory signature.
func Factory(config *emulator.Config) emulator.Engine {
	return New(config)
}

// Start seeds the generator from the ROM contents and captures the initial
// state.
func (e *Engine) Start(romPath string) (*emulator.GameState, error) {
	rom, err := os.ReadFile(romPath)
	if err != nil {
		return nil, fmt.Errorf("reading ROM %q: %w", romPath, err)
	}
	hasher := fnv.New64a()
	hasher.Write(rom)

	e.Shutdown()
	e.romPath = romPath
	e.romSeed = hasher.Sum64()
	e.running = true
	e.stepCount = 0
	e.score = 0
	e.lastState = e.captureState(false)
	return e.lastState, nil
}

// Reset reloads the current ROM from disk, discarding all progress.
func (e *Engine) Reset() (*emulator.GameState, error) {
	if e.romPath == "" {
		return nil, emulator.ErrEngineNotRunning
	}
	return e.Start(e.romPath)
}

// Step executes frame-skip ticks for the action and returns the outcome.
// Reward is the score delta produced by the step.
func (e *Engine) Step(actionLabel string) (*emulator.StepResult, error) {
	if !e.running {
		return nil, emulator.ErrEngineNotRunning
	}
	action, ok := e.config.Action(actionLabel)
	if !ok {
		return nil, fmt.Errorf("%w: %q", emulator.ErrUnknownAction, actionLabel)
	}

	scoreBefore := e.score
	for i := 0; i < e.config.FrameSkip; i++ {
		e.tick(action)
	}
	e.stepCount++
	e.score++

	broken := e.faultAction != "" && actionLabel == e.faultAction
	state := e.captureState(broken)
	e.lastState = state

	return &emulator.StepResult{
		NewState:   state,
		Reward:     float64(e.score - scoreBefore),
		Terminated: state.IsGameOver,
		Truncated:  false,
		Info: map[string]interface{}{
			"action":          actionLabel,
			"step_count":      e.stepCount,
			"rom":             e.romPath,
			"frame_shape":     state.Frame.Shape,
			"frame_timestamp": state.Frame.Timestamp,
		},
	}, nil
}

// CaptureState returns the most recently captured state.
func (e *Engine) CaptureState() (*emulator.GameState, error) {
	if e.lastState == nil {
		return nil, emulator.ErrNoStateYet
	}
	return e.lastState, nil
}

// snapshot is the persisted engine state.
type snapshot struct {
	ROMPath   string    `json:"rom_path"`
	ROMSeed   uint64    `json:"rom_seed"`
	StepCount int       `json:"step_count"`
	Score     int       `json:"score"`
	SavedAt   time.Time `json:"saved_at"`
}

// SaveState serialises the engine state to path as gzip-compressed JSON.
func (e *Engine) SaveState(path string) (string, error) {
	if !e.running {
		return "", emulator.ErrEngineNotRunning
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	writer := gzip.NewWriter(file)
	if err := json.NewEncoder(writer).Encode(snapshot{
		ROMPath:   e.romPath,
		ROMSeed:   e.romSeed,
		StepCount: e.stepCount,
		Score:     e.score,
		SavedAt:   time.Now(),
	}); err != nil {
		writer.Close()
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// LoadState restores the engine from a persisted snapshot.
func (e *Engine) LoadState(path string) (*emulator.GameState, error) {
	if !e.running {
		return nil, emulator.ErrEngineNotRunning
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", emulator.ErrCorruptState, err)
	}
	defer reader.Close()

	var snap snapshot
	if err := json.NewDecoder(reader).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: %v", emulator.ErrCorruptState, err)
	}

	e.romPath = snap.ROMPath
	e.romSeed = snap.ROMSeed
	e.stepCount = snap.StepCount
	e.score = snap.Score
	e.lastState = e.captureState(false)
	return e.lastState, nil
}

// Shutdown stops the engine. Idempotent.
func (e *Engine) Shutdown() {
	e.running = false
	e.lastState = nil
}

// ActionLabels returns the configured labels in declaration order.
func (e *Engine) ActionLabels() []string {
	return e.config.ActionLabels()
}

// tick advances one emulated frame. The synthetic backend only folds the
// action's events into the seed so distinct inputs yield distinct frames.
func (e *Engine) tick(action emulator.ActionDefinition) {
	e.romSeed = e.romSeed*1103515245 + 12345
	for _, ev := range action.PressEvents {
		for _, c := range ev {
			e.romSeed += uint64(c)
		}
	}
}

func (e *Engine) captureState(broken bool) *emulator.GameState {
	frame := e.renderFrame(broken)
	score := e.score
	lives := 3
	progress := float64(e.stepCount) / 1000.0
	if progress > 1.0 {
		progress = 1.0
	}
	return &emulator.GameState{
		Frame:          frame,
		IsGameOver:     false,
		Paused:         false,
		Score:          &score,
		Lives:          &lives,
		Progress:       &progress,
		StepCount:      e.stepCount,
		MemorySnapshot: e.captureMemory(),
	}
}

func (e *Engine) renderFrame(broken bool) emulator.FrameEnvelope {
	if broken {
		return emulator.NewFrame([]byte{}, []int{0})
	}
	shape := e.config.FrameDimensions
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	pixels := make([]byte, size)
	base := e.romSeed + uint64(e.stepCount)
	for i := range pixels {
		pixels[i] = byte(base + uint64(i))
	}
	return emulator.NewFrame(pixels, shape)
}

func (e *Engine) captureMemory() map[string]int {
	memory := map[string]int{}
	for name, addr := range e.config.MemoryWatchAddresses {
		switch name {
		case "score":
			memory[name] = e.score
		case "lives":
			memory[name] = 3
		default:
			memory[name] = int((e.romSeed >> (uint(addr) % 48)) & 0xFF)
		}
	}
	return memory
}

var _ emulator.Engine = (*Engine)(nil)
