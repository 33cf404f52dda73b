package emulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthyState(stepCount int) *GameState {
	score := stepCount
	return &GameState{
		Frame:     NewFrame(make([]byte, 48), []int{4, 4, 3}),
		Score:     &score,
		StepCount: stepCount,
	}
}

func brokenState(stepCount int) *GameState {
	return &GameState{
		Frame:     NewFrame([]byte{}, []int{0}),
		StepCount: stepCount,
	}
}

func TestEvaluateDetectsEmptyFrame(t *testing.T) {
	monitor := NewHealthMonitor(testConfig(t))

	status := monitor.Evaluate(brokenState(1), 10*time.Millisecond)
	assert.False(t, status.Healthy)
	assert.NotEmpty(t, status.Issues)
	assert.Equal(t, 1, status.ConsecutiveFailures)
	assert.True(t, status.NeedsRecovery) // threshold is 1 in testConfig
}

func TestEvaluateCollectsAllIssues(t *testing.T) {
	monitor := NewHealthMonitor(testConfig(t))

	// Rank violation and empty buffer are reported as separate issues.
	status := monitor.Evaluate(brokenState(1), 0)
	assert.False(t, status.Healthy)
	assert.GreaterOrEqual(t, len(status.Issues), 2)
}

func TestFailureCounterResetsOnSuccess(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxConsecutiveHealthFailures = 3
	monitor := NewHealthMonitor(cfg)

	monitor.Evaluate(brokenState(1), 0)
	status := monitor.Evaluate(brokenState(2), 0)
	assert.Equal(t, 2, status.ConsecutiveFailures)
	assert.False(t, status.NeedsRecovery)

	status = monitor.Evaluate(brokenState(3), 0)
	assert.True(t, status.NeedsRecovery)

	status = monitor.Evaluate(healthyState(4), time.Millisecond)
	assert.True(t, status.Healthy)
	assert.Equal(t, 0, status.ConsecutiveFailures)
	assert.False(t, status.NeedsRecovery)
}

func TestMarkRecoveryResetsCounter(t *testing.T) {
	monitor := NewHealthMonitor(testConfig(t))

	monitor.Evaluate(brokenState(1), 0)
	require.Equal(t, 1, monitor.ConsecutiveFailures())

	monitor.MarkRecovery()
	assert.Equal(t, 0, monitor.ConsecutiveFailures())

	payload := monitor.Payload()
	metrics := payload["metrics"].(map[string]interface{})
	assert.Equal(t, 1, metrics["total_recoveries"])
	assert.Equal(t, 1, metrics["total_failures"])
}

func TestShouldRunCheckCadence(t *testing.T) {
	cfg := testConfig(t)
	cfg.HealthCheckIntervalSteps = 5
	monitor := NewHealthMonitor(cfg)

	assert.True(t, monitor.ShouldRunCheck(0), "step zero always checks")
	assert.True(t, monitor.ShouldRunCheck(5))

	monitor.Evaluate(healthyState(5), 0)
	assert.False(t, monitor.ShouldRunCheck(7))
	assert.False(t, monitor.ShouldRunCheck(9))
	assert.True(t, monitor.ShouldRunCheck(10))
}

func TestPayloadReportsLastStateAndSavePath(t *testing.T) {
	monitor := NewHealthMonitor(testConfig(t))

	payload := monitor.Payload()
	assert.NotContains(t, payload, "last_state")
	assert.NotContains(t, payload, "last_save_path")

	monitor.Evaluate(healthyState(3), time.Millisecond)
	monitor.RememberSavePath("/tmp/saves/sess-1.state")

	payload = monitor.Payload()
	lastState := payload["last_state"].(map[string]interface{})
	assert.Equal(t, 3, lastState["step_count"])
	assert.Equal(t, "/tmp/saves/sess-1.state", payload["last_save_path"])

	monitor.Reset()
	assert.Equal(t, "", monitor.LastSavePath())
	assert.Equal(t, 0, monitor.ConsecutiveFailures())
}
