package emulator

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iaboy/backend/internal/logging"
	"github.com/iaboy/backend/internal/shared/id"
)

// Session binds one Engine, one Monitor, and a persistence path, and owns the
// step/health/recovery/autosave protocol. All operations are serialised by a
// per-session mutex; operations on different sessions run in parallel.
type Session struct {
	mu      sync.Mutex
	config  *Config
	engine  Engine
	monitor Monitor
	log     *logging.Logger

	sessionID  string
	active     bool
	lastResult *StepResult
	lastHealth *HealthStatus
}

// NewSession creates an inactive session with a freshly generated id.
func NewSession(config *Config, engine Engine, monitor Monitor, log *logging.Logger) *Session {
	if log == nil {
		log = logging.Nop()
	}
	return &Session{
		config:    config,
		engine:    engine,
		monitor:   monitor,
		log:       log,
		sessionID: id.NewSessionID().String(),
	}
}

// ID returns the process-unique session identifier.
func (s *Session) ID() string {
	return s.sessionID
}

// ActionLabels returns the action labels the engine accepts.
func (s *Session) ActionLabels() []string {
	return s.engine.ActionLabels()
}

// Config returns the session's immutable configuration.
func (s *Session) Config() *Config {
	return s.config
}

// Start resolves the ROM reference, initialises the engine, persists a
// baseline snapshot so a recovery target always exists, runs the initial
// health evaluation, and activates the session.
func (s *Session) Start(romReference string) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	romPath, err := s.config.ResolveROMPath(romReference)
	if err != nil {
		return nil, err
	}
	initial, err := s.engine.Start(romPath)
	if err != nil {
		return nil, fmt.Errorf("engine start failed: %w", err)
	}
	s.monitor.Reset()
	if _, err := s.saveStateLocked(); err != nil {
		return nil, fmt.Errorf("baseline save failed: %w", err)
	}
	s.active = true
	s.lastHealth = s.monitor.Evaluate(initial, 0)
	s.log.Info("session started",
		zap.String("session_id", s.sessionID),
		zap.String("rom", romPath),
	)
	return initial, nil
}

// Step executes one action. The monitor samples health on its configured
// cadence; steps between samples reuse the cached status and are assumed
// healthy. A sampled (or reused) unhealthy status triggers recovery, and the
// recovered result replaces the engine's real outcome for the tick entirely.
func (s *Session) Step(actionLabel string) (*StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil, ErrNotStarted
	}

	started := time.Now()
	result, err := s.engine.Step(actionLabel)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(started)

	health := s.lastHealth
	if s.monitor.ShouldRunCheck(result.NewState.StepCount) {
		health = s.monitor.Evaluate(result.NewState, elapsed)
		s.lastHealth = health
	}

	if health != nil && !health.Healthy {
		recovered, err := s.performRecovery()
		if err != nil {
			return nil, err
		}
		result = &StepResult{
			NewState:   recovered,
			Reward:     0.0,
			Terminated: false,
			Truncated:  true,
			Info: map[string]interface{}{
				"recovered":  true,
				"reason":     health.Issues,
				"step_count": recovered.StepCount,
			},
		}
	} else {
		if result.Info == nil {
			result.Info = map[string]interface{}{}
		}
		if _, ok := result.Info["health"]; !ok {
			result.Info["health"] = s.monitor.Payload()
		}
	}

	if result.NewState.StepCount%s.config.AutosaveIntervalSteps == 0 {
		if _, err := s.saveStateLocked(); err != nil {
			return nil, fmt.Errorf("autosave failed: %w", err)
		}
	}

	s.lastResult = result
	return result, nil
}

// CurrentState returns the engine's latest captured state without advancing.
func (s *Session) CurrentState() (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil, ErrNotStarted
	}
	return s.engine.CaptureState()
}

// CurrentHealth returns the monitor's reporting payload.
func (s *Session) CurrentHealth() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.monitor.Payload()
}

// Reset reloads the original ROM from disk (not a saved state) and
// re-baselines the monitor exactly as Start does.
func (s *Session) Reset() (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil, ErrNotStarted
	}
	state, err := s.engine.Reset()
	if err != nil {
		return nil, fmt.Errorf("engine reset failed: %w", err)
	}
	s.monitor.Reset()
	if _, err := s.saveStateLocked(); err != nil {
		return nil, fmt.Errorf("baseline save failed: %w", err)
	}
	s.lastHealth = s.monitor.Evaluate(state, 0)
	s.lastResult = nil
	s.log.Info("session reset", zap.String("session_id", s.sessionID))
	return state, nil
}

// SaveState writes a uniquely named snapshot under the configured save-state
// directory and remembers its path as the rollback target.
func (s *Session) SaveState() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return "", ErrNotStarted
	}
	return s.saveStateLocked()
}

// LoadState restores the engine from an externally supplied snapshot path,
// remembers that path, and re-evaluates health. Used for client-directed
// restores, independent of automatic recovery.
func (s *Session) LoadState(path string) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil, ErrNotStarted
	}
	state, err := s.engine.LoadState(path)
	if err != nil {
		return nil, err
	}
	s.monitor.RememberSavePath(path)
	s.lastHealth = s.monitor.Evaluate(state, 0)
	return state, nil
}

// Close shuts the engine down and marks the session inactive. Subsequent
// operations fail with ErrNotStarted.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.Shutdown()
	s.active = false
	s.log.Info("session closed", zap.String("session_id", s.sessionID))
}

// saveStateLocked persists a snapshot named {session_id}-{ulid}.state. The
// ULID embeds a millisecond timestamp plus random entropy, so back-to-back
// saves in the same millisecond still get distinct paths.
// Callers must hold s.mu.
func (s *Session) saveStateLocked() (string, error) {
	filename := fmt.Sprintf("%s-%s.state", s.sessionID, id.Default().Generate())
	path := filepath.Join(s.config.SaveStatesPath, filename)
	savedPath, err := s.engine.SaveState(path)
	if err != nil {
		return "", err
	}
	s.monitor.RememberSavePath(savedPath)
	return savedPath, nil
}

// performRecovery rolls the engine back to the last known-good snapshot. If
// the remembered path is missing, a fresh save of the current (possibly
// corrupted) state is forced as a last resort. A reload failure is fatal; the
// session stays unusable. Callers must hold s.mu.
func (s *Session) performRecovery() (*GameState, error) {
	recoveryPath := s.monitor.LastSavePath()
	if !savePathExists(recoveryPath) {
		forced, err := s.saveStateLocked()
		if err != nil {
			return nil, fmt.Errorf("recovery save failed: %w", err)
		}
		recoveryPath = forced
	}
	restored, err := s.engine.LoadState(recoveryPath)
	if err != nil {
		return nil, fmt.Errorf("recovery reload failed: %w", err)
	}
	s.monitor.MarkRecovery()
	s.lastHealth = s.monitor.Evaluate(restored, 0)
	s.log.Warn("session recovered from snapshot",
		zap.String("session_id", s.sessionID),
		zap.String("path", recoveryPath),
		zap.Int("step_count", restored.StepCount),
	)
	return restored, nil
}
