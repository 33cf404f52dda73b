package emulator

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/iaboy/backend/internal/logging"
)

// EngineFactory builds a fresh Engine for a new session.
type EngineFactory func(*Config) Engine

// MonitorFactory builds a fresh Monitor for a new session.
type MonitorFactory func(*Config) Monitor

// Manager is the process-wide registry of independent sessions, keyed by
// session id. It is the only shared mutable structure; lookups, insertion,
// and removal are safe under concurrent use.
type Manager struct {
	config         *Config
	engineFactory  EngineFactory
	monitorFactory MonitorFactory
	log            *logging.Logger
	sessions       sync.Map // session id -> *Session
}

// NewManager creates a registry. The factories enable test doubles and
// alternative engine backends; monitorFactory may be nil to use the standard
// HealthMonitor.
func NewManager(config *Config, engineFactory EngineFactory, monitorFactory MonitorFactory, log *logging.Logger) *Manager {
	if monitorFactory == nil {
		monitorFactory = func(cfg *Config) Monitor { return NewHealthMonitor(cfg) }
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Manager{
		config:         config,
		engineFactory:  engineFactory,
		monitorFactory: monitorFactory,
		log:            log,
	}
}

// Config returns the shared emulator configuration.
func (m *Manager) Config() *Config {
	return m.config
}

// StartSession constructs a fresh engine and monitor, starts a session
// against the ROM reference, and registers it under its generated id.
func (m *Manager) StartSession(romReference string) (*Session, error) {
	session := NewSession(m.config, m.engineFactory(m.config), m.monitorFactory(m.config), m.log)
	if _, err := session.Start(romReference); err != nil {
		session.Close()
		return nil, err
	}
	m.sessions.Store(session.ID(), session)
	m.log.Info("session registered", zap.String("session_id", session.ID()))
	return session, nil
}

// GetSession looks up a session by id.
func (m *Manager) GetSession(sessionID string) (*Session, error) {
	val, ok := m.sessions.Load(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, sessionID)
	}
	return val.(*Session), nil
}

// CloseSession removes and closes a session if present. No-op for unknown
// ids.
func (m *Manager) CloseSession(sessionID string) {
	val, ok := m.sessions.LoadAndDelete(sessionID)
	if !ok {
		return
	}
	val.(*Session).Close()
}

// ListSessionIDs returns the ids of every registered session.
func (m *Manager) ListSessionIDs() []string {
	ids := []string{}
	m.sessions.Range(func(key, _ interface{}) bool {
		ids = append(ids, key.(string))
		return true
	})
	return ids
}

// Count returns the number of registered sessions.
func (m *Manager) Count() int {
	count := 0
	m.sessions.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

// Shutdown closes and clears every registered session. Used at process
// teardown to release engine resources deterministically.
func (m *Manager) Shutdown() {
	m.sessions.Range(func(key, val interface{}) bool {
		val.(*Session).Close()
		m.sessions.Delete(key)
		return true
	})
	m.log.Info("all sessions closed")
}
