package emulator

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GameState is a full snapshot of the emulator at a given step. States are
// never mutated after capture; each tick produces a new one.
type GameState struct {
	Frame          FrameEnvelope  `json:"frame"`
	IsGameOver     bool           `json:"is_game_over"`
	Paused         bool           `json:"paused"`
	Score          *int           `json:"score,omitempty"`
	Lives          *int           `json:"lives,omitempty"`
	Progress       *float64       `json:"progress,omitempty"`
	StepCount      int            `json:"step_count"`
	MemorySnapshot map[string]int `json:"memory_snapshot"`
}

// Payload converts the state into a JSON serialisable map.
func (s *GameState) Payload() map[string]interface{} {
	return map[string]interface{}{
		"frame":           s.Frame.Payload(),
		"is_game_over":    s.IsGameOver,
		"paused":          s.Paused,
		"score":           s.Score,
		"lives":           s.Lives,
		"progress":        s.Progress,
		"step_count":      s.StepCount,
		"memory_snapshot": s.MemorySnapshot,
	}
}

// StepResult is the outcome of executing one step. Info is an open mapping of
// diagnostic fields (step count, recovery flag, health payload).
type StepResult struct {
	NewState   *GameState             `json:"state"`
	Reward     float64                `json:"reward"`
	Terminated bool                   `json:"terminated"`
	Truncated  bool                   `json:"truncated"`
	Info       map[string]interface{} `json:"info"`
}

// Payload converts the result into a JSON serialisable map.
func (r *StepResult) Payload() map[string]interface{} {
	return map[string]interface{}{
		"state":      r.NewState.Payload(),
		"reward":     r.Reward,
		"terminated": r.Terminated,
		"truncated":  r.Truncated,
		"info":       r.Info,
	}
}

// HealthStatus is the outcome of one health evaluation. Immutable; superseded
// by the next evaluation.
type HealthStatus struct {
	Healthy             bool                   `json:"healthy"`
	Issues              []string               `json:"issues"`
	ConsecutiveFailures int                    `json:"consecutive_failures"`
	NeedsRecovery       bool                   `json:"needs_recovery"`
	LastChecked         time.Time              `json:"last_checked"`
	Metrics             map[string]interface{} `json:"metrics"`
}

// Payload converts the status into a JSON serialisable map.
func (h *HealthStatus) Payload() map[string]interface{} {
	issues := h.Issues
	if issues == nil {
		issues = []string{}
	}
	return map[string]interface{}{
		"healthy":              h.Healthy,
		"issues":               issues,
		"consecutive_failures": h.ConsecutiveFailures,
		"needs_recovery":       h.NeedsRecovery,
		"last_checked":         h.LastChecked,
		"metrics":              h.Metrics,
	}
}

// MetricsAccumulator stores runtime counters for one monitor. Owned
// exclusively by its HealthMonitor; not safe for shared use.
type MetricsAccumulator struct {
	TotalSteps      int
	TotalFailures   int
	TotalRecoveries int
	stepDurations   []float64
}

// RegisterStep records one successful step and its duration.
func (m *MetricsAccumulator) RegisterStep(duration time.Duration) {
	m.TotalSteps++
	m.stepDurations = append(m.stepDurations, duration.Seconds())
}

// RegisterFailure records one failed health evaluation.
func (m *MetricsAccumulator) RegisterFailure() {
	m.TotalFailures++
}

// RegisterRecovery records one completed rollback.
func (m *MetricsAccumulator) RegisterRecovery() {
	m.TotalRecoveries++
}

// Summary returns aggregate counters plus mean/min/max step durations.
func (m *MetricsAccumulator) Summary() map[string]interface{} {
	var mean, min, max float64
	if len(m.stepDurations) > 0 {
		mean = stat.Mean(m.stepDurations, nil)
		min = floats.Min(m.stepDurations)
		max = floats.Max(m.stepDurations)
	}
	return map[string]interface{}{
		"total_steps":      m.TotalSteps,
		"total_failures":   m.TotalFailures,
		"total_recoveries": m.TotalRecoveries,
		"mean_frame_time":  mean,
		"min_frame_time":   min,
		"max_frame_time":   max,
	}
}
