package emulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewActionRejectsEmptyEvents(t *testing.T) {
	_, err := NewAction("JUMP", []string{"PRESS_A", ""}, nil)
	assert.Error(t, err)

	_, err = NewAction("JUMP", []string{"PRESS_A"}, []string{""})
	assert.Error(t, err)

	_, err = NewAction("", nil, nil)
	assert.Error(t, err)

	action, err := NewAction("JUMP", []string{"PRESS_A"}, []string{"RELEASE_A"})
	require.NoError(t, err)
	assert.Equal(t, "JUMP", action.Label)
}

func TestDefaultActionMapLabelsAreUnique(t *testing.T) {
	actions := DefaultActionMap()
	seen := map[string]bool{}
	for _, action := range actions {
		assert.False(t, seen[action.Label], "duplicate label %q", action.Label)
		seen[action.Label] = true
	}
	assert.True(t, seen["NOOP"])
	assert.True(t, seen["START"])
}

func TestParseActionOverride(t *testing.T) {
	action, err := ParseActionOverride("UP", "PRESS_1|PRESS_2;RELEASE_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"PRESS_1", "PRESS_2"}, action.PressEvents)
	assert.Equal(t, []string{"RELEASE_1"}, action.ReleaseEvents)

	action, err = ParseActionOverride("UP", "PRESS_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"PRESS_1"}, action.PressEvents)
	assert.Empty(t, action.ReleaseEvents)
}
