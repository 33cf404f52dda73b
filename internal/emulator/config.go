package emulator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config aggregates every tunable the emulator subsystem needs. Values are
// fixed at construction; sessions never mutate it.
type Config struct {
	ROMsPath                     string
	SaveStatesPath               string
	FrameDimensions              []int
	FrameSkip                    int
	AutosaveIntervalSteps        int
	HealthCheckIntervalSteps     int
	MaxConsecutiveHealthFailures int
	ActionMap                    []ActionDefinition
	MemoryWatchAddresses         map[string]int
	DefaultROM                   string
	ROMExtensions                []string
}

// Validate checks the interval invariants and action map uniqueness.
func (c *Config) Validate() error {
	if c.FrameSkip < 1 {
		return fmt.Errorf("frame_skip must be >= 1, got %d", c.FrameSkip)
	}
	if c.AutosaveIntervalSteps < 1 {
		return fmt.Errorf("autosave_interval_steps must be >= 1, got %d", c.AutosaveIntervalSteps)
	}
	if c.HealthCheckIntervalSteps < 1 {
		return fmt.Errorf("health_check_interval_steps must be >= 1, got %d", c.HealthCheckIntervalSteps)
	}
	if c.MaxConsecutiveHealthFailures < 1 {
		return fmt.Errorf("max_consecutive_health_failures must be >= 1, got %d", c.MaxConsecutiveHealthFailures)
	}
	seen := make(map[string]bool, len(c.ActionMap))
	for _, action := range c.ActionMap {
		if seen[action.Label] {
			return fmt.Errorf("duplicate action label %q", action.Label)
		}
		seen[action.Label] = true
	}
	return nil
}

// ResolveROMPath resolves a ROM reference against the configured ROM
// directory. Bare filenames resolve under ROMsPath; absolute paths bypass it.
// The extension whitelist applies to both forms.
func (c *Config) ResolveROMPath(romReference string) (string, error) {
	candidate := romReference
	if candidate == "" {
		candidate = c.DefaultROM
	}
	if candidate == "" {
		return "", ErrNoROMSpecified
	}

	romPath := candidate
	if !filepath.IsAbs(romPath) {
		romPath = filepath.Join(c.ROMsPath, romPath)
	}
	romPath = filepath.Clean(romPath)

	if !c.supportedExtension(romPath) {
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedExtension, romPath, strings.Join(c.ROMExtensions, ", "))
	}
	if _, err := os.Stat(romPath); err != nil {
		return "", fmt.Errorf("%w: %q", ErrROMNotFound, romPath)
	}
	return romPath, nil
}

func (c *Config) supportedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range c.ROMExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// ActionLabels returns the configured labels in declaration order.
func (c *Config) ActionLabels() []string {
	labels := make([]string, len(c.ActionMap))
	for i, action := range c.ActionMap {
		labels[i] = action.Label
	}
	return labels
}

// Action looks up an action definition by label.
func (c *Config) Action(label string) (ActionDefinition, bool) {
	for _, action := range c.ActionMap {
		if action.Label == label {
			return action, true
		}
	}
	return ActionDefinition{}, false
}

// Snapshot returns a serialisable view used by the health and start responses.
func (c *Config) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"roms_path":                       c.ROMsPath,
		"save_states_path":                c.SaveStatesPath,
		"frame_dimensions":                c.FrameDimensions,
		"frame_skip":                      c.FrameSkip,
		"autosave_interval_steps":         c.AutosaveIntervalSteps,
		"health_check_interval_steps":     c.HealthCheckIntervalSteps,
		"max_consecutive_health_failures": c.MaxConsecutiveHealthFailures,
		"default_rom":                     c.DefaultROM,
		"rom_extensions":                  c.ROMExtensions,
		"action_labels":                   c.ActionLabels(),
		"memory_watch_addresses":          c.MemoryWatchAddresses,
	}
}
