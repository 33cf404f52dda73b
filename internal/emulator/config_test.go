package emulator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	return &Config{
		ROMsPath:                     dir,
		SaveStatesPath:               filepath.Join(dir, "saves"),
		FrameDimensions:              []int{4, 4, 3},
		FrameSkip:                    1,
		AutosaveIntervalSteps:        2,
		HealthCheckIntervalSteps:     1,
		MaxConsecutiveHealthFailures: 1,
		ActionMap:                    DefaultActionMap(),
		ROMExtensions:                []string{".gb", ".gbc"},
	}
}

func writeROM(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("fake-rom"), 0o644))
	return path
}

func TestResolveROMPathRelative(t *testing.T) {
	cfg := testConfig(t)
	romPath := writeROM(t, cfg.ROMsPath, "game.gb")

	resolved, err := cfg.ResolveROMPath("game.gb")
	require.NoError(t, err)
	assert.Equal(t, romPath, resolved)
}

func TestResolveROMPathAbsoluteBypassesROMDir(t *testing.T) {
	cfg := testConfig(t)
	other := t.TempDir()
	romPath := writeROM(t, other, "elsewhere.gbc")

	resolved, err := cfg.ResolveROMPath(romPath)
	require.NoError(t, err)
	assert.Equal(t, romPath, resolved)
}

func TestResolveROMPathDefaultROM(t *testing.T) {
	cfg := testConfig(t)
	writeROM(t, cfg.ROMsPath, "default.gb")
	cfg.DefaultROM = "default.gb"

	resolved, err := cfg.ResolveROMPath("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.ROMsPath, "default.gb"), resolved)
}

func TestResolveROMPathErrors(t *testing.T) {
	cfg := testConfig(t)

	_, err := cfg.ResolveROMPath("")
	assert.ErrorIs(t, err, ErrNoROMSpecified)

	writeROM(t, cfg.ROMsPath, "game.txt")
	_, err = cfg.ResolveROMPath("game.txt")
	assert.ErrorIs(t, err, ErrUnsupportedExtension)

	// Unsupported extensions fail for absolute paths too.
	_, err = cfg.ResolveROMPath(filepath.Join(cfg.ROMsPath, "game.txt"))
	assert.ErrorIs(t, err, ErrUnsupportedExtension)

	_, err = cfg.ResolveROMPath("missing.gb")
	assert.ErrorIs(t, err, ErrROMNotFound)
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, cfg.Validate())

	bad := *cfg
	bad.AutosaveIntervalSteps = 0
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.HealthCheckIntervalSteps = 0
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.ActionMap = append(DefaultActionMap(), ActionDefinition{Label: "NOOP"})
	assert.Error(t, bad.Validate())
}

func TestConfigSnapshotAndLookups(t *testing.T) {
	cfg := testConfig(t)

	snapshot := cfg.Snapshot()
	assert.Equal(t, cfg.ROMsPath, snapshot["roms_path"])
	assert.Equal(t, cfg.ActionLabels(), snapshot["action_labels"])

	action, ok := cfg.Action("UP")
	require.True(t, ok)
	assert.Equal(t, []string{"PRESS_ARROW_UP"}, action.PressEvents)

	_, ok = cfg.Action("WARP")
	assert.False(t, ok)
}
