package emulator

import (
	"fmt"
	"os"
	"time"
)

// Monitor decides, after each tick, whether the emulator output is
// trustworthy, and drives the hysteresis counter that gates recovery.
type Monitor interface {
	ShouldRunCheck(stepCount int) bool
	Evaluate(state *GameState, elapsed time.Duration) *HealthStatus
	MarkRecovery()
	RememberSavePath(path string)
	LastSavePath() string
	ConsecutiveFailures() int
	Payload() map[string]interface{}
	Reset()
}

// HealthMonitor is the standard Monitor implementation: frame shape
// validation plus a consecutive-failure threshold. Validation policy and
// recovery policy are deliberately decoupled; the failure counter is the
// single source of truth for triggering recovery.
type HealthMonitor struct {
	config              *Config
	consecutiveFailures int
	metrics             *MetricsAccumulator
	lastState           *GameState
	lastSavePath        string
	lastStatus          *HealthStatus
	lastCheckStep       int
}

// NewHealthMonitor creates a monitor bound to one session's configuration.
func NewHealthMonitor(config *Config) *HealthMonitor {
	return &HealthMonitor{
		config:  config,
		metrics: &MetricsAccumulator{},
	}
}

// Reset clears all counters, caches, and the remembered save path.
func (m *HealthMonitor) Reset() {
	m.consecutiveFailures = 0
	m.metrics = &MetricsAccumulator{}
	m.lastState = nil
	m.lastSavePath = ""
	m.lastStatus = nil
	m.lastCheckStep = 0
}

// ShouldRunCheck reports whether the sampling cadence calls for an evaluation
// at the given step count. Step zero always checks.
func (m *HealthMonitor) ShouldRunCheck(stepCount int) bool {
	return stepCount == 0 || stepCount-m.lastCheckStep >= m.config.HealthCheckIntervalSteps
}

// Evaluate validates the captured state and updates the failure counter.
// Every violation is collected as a separate issue; the check never
// short-circuits on the first problem.
func (m *HealthMonitor) Evaluate(state *GameState, elapsed time.Duration) *HealthStatus {
	var issues []string
	if err := state.Frame.Validate(m.config.FrameDimensions); err != nil {
		issues = append(issues, err.Error())
	}
	if len(state.Frame.Pixels) == 0 {
		issues = append(issues, "frame buffer is empty")
	}
	healthy := len(issues) == 0

	if healthy {
		m.consecutiveFailures = 0
		m.metrics.RegisterStep(elapsed)
	} else {
		m.consecutiveFailures++
		m.metrics.RegisterFailure()
	}

	status := &HealthStatus{
		Healthy:             healthy,
		Issues:              issues,
		ConsecutiveFailures: m.consecutiveFailures,
		NeedsRecovery:       m.consecutiveFailures >= m.config.MaxConsecutiveHealthFailures,
		LastChecked:         time.Now(),
		Metrics:             m.metrics.Summary(),
	}
	m.lastState = state
	m.lastStatus = status
	m.lastCheckStep = state.StepCount
	return status
}

// MarkRecovery records a completed rollback and resets the failure counter.
// Called exactly once per successful recovery, independent of Evaluate.
func (m *HealthMonitor) MarkRecovery() {
	m.metrics.RegisterRecovery()
	m.consecutiveFailures = 0
}

// RememberSavePath records the most recent path known to contain a valid
// persisted snapshot. This is the rollback target.
func (m *HealthMonitor) RememberSavePath(path string) {
	m.lastSavePath = path
}

// LastSavePath returns the remembered rollback target, or "".
func (m *HealthMonitor) LastSavePath() string {
	return m.lastSavePath
}

// ConsecutiveFailures returns the running back-to-back failure count.
func (m *HealthMonitor) ConsecutiveFailures() int {
	return m.consecutiveFailures
}

// LastStatus returns the most recent evaluation, or nil.
func (m *HealthMonitor) LastStatus() *HealthStatus {
	return m.lastStatus
}

// Payload is a read-only projection for external reporting; never used for
// control decisions.
func (m *HealthMonitor) Payload() map[string]interface{} {
	statusPayload := map[string]interface{}{}
	if m.lastStatus != nil {
		statusPayload = m.lastStatus.Payload()
	}
	payload := map[string]interface{}{
		"status":  statusPayload,
		"metrics": m.metrics.Summary(),
	}
	if m.lastState != nil {
		payload["last_state"] = map[string]interface{}{
			"step_count": m.lastState.StepCount,
			"timestamp":  m.lastState.Frame.Timestamp,
			"score":      m.lastState.Score,
		}
	}
	if m.lastSavePath != "" {
		payload["last_save_path"] = m.lastSavePath
	}
	return payload
}

// savePathExists reports whether the rollback target is still on disk.
func savePathExists(path string) bool {
	if path == "" {
		return false
	}
	if _, err := os.Stat(path); err != nil {
		return false
	}
	return true
}

var _ Monitor = (*HealthMonitor)(nil)

// String implements fmt.Stringer for log output.
func (m *HealthMonitor) String() string {
	return fmt.Sprintf("HealthMonitor(failures=%d, last_check_step=%d)", m.consecutiveFailures, m.lastCheckStep)
}
