package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"

	"github.com/iaboy/backend/internal/emulator"
)

// Settings holds all application configuration.
type Settings struct {
	Server    ServerSettings
	Logging   LogSettings
	RateLimit RateLimitSettings
	Ollama    OllamaSettings
	Emulator  EmulatorSettings
}

// ServerSettings holds HTTP server configuration.
type ServerSettings struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogSettings holds logging configuration.
type LogSettings struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitSettings holds rate limiting configuration.
type RateLimitSettings struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// OllamaSettings holds the conversational AI service configuration.
type OllamaSettings struct {
	URL            string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	Model          string `envconfig:"OLLAMA_MODEL" default:"gemma2:9b"`
	TimeoutSeconds int    `envconfig:"OLLAMA_TIMEOUT_SECONDS" default:"30"`
}

// EmulatorSettings holds the emulator subsystem configuration. Action
// bindings can be overridden per label with entries encoded as
// "LABEL:EVENT1|EVENT2;EVENT3|EVENT4" (press events, then optional release
// events), or extended via a YAML action map file.
type EmulatorSettings struct {
	ROMsPath                     string            `envconfig:"ROMS_PATH" default:"roms"`
	SaveStatesPath               string            `envconfig:"SAVE_STATES_PATH" default:"save_states"`
	FrameDimensions              []int             `envconfig:"FRAME_DIMENSIONS" default:"144,160,3"`
	FrameSkip                    int               `envconfig:"FRAME_SKIP" default:"1"`
	AutosaveIntervalSteps        int               `envconfig:"AUTOSAVE_INTERVAL_STEPS" default:"120"`
	HealthCheckIntervalSteps     int               `envconfig:"HEALTH_CHECK_INTERVAL_STEPS" default:"1"`
	MaxConsecutiveHealthFailures int               `envconfig:"MAX_CONSECUTIVE_HEALTH_FAILURES" default:"3"`
	DefaultROM                   string            `envconfig:"DEFAULT_ROM"`
	ROMExtensions                []string          `envconfig:"ROM_EXTENSIONS" default:".gb,.gbc"`
	MemoryWatchAddresses         map[string]int    `envconfig:"MEMORY_WATCH_ADDRESSES"`
	ActionOverrides              map[string]string `envconfig:"ACTION_OVERRIDES"`
	ActionMapFile                string            `envconfig:"ACTION_MAP_FILE"`
}

// Load loads settings from environment variables.
func Load() (*Settings, error) {
	var settings Settings
	if err := envconfig.Process("IABOY", &settings); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &settings, nil
}

// LoadOrDefault loads settings from the environment or falls back to
// defaults.
func LoadOrDefault() *Settings {
	settings, err := Load()
	if err != nil {
		return Default()
	}
	return settings
}

// Default returns built-in defaults without consulting the environment.
func Default() *Settings {
	return &Settings{
		Server:    ServerSettings{Port: "8000", Host: "0.0.0.0"},
		Logging:   LogSettings{Level: "info"},
		RateLimit: RateLimitSettings{RequestsPerSecond: 100, Burst: 200, Enabled: true},
		Ollama:    OllamaSettings{URL: "http://localhost:11434", Model: "gemma2:9b", TimeoutSeconds: 30},
		Emulator: EmulatorSettings{
			ROMsPath:                     "roms",
			SaveStatesPath:               "save_states",
			FrameDimensions:              []int{144, 160, 3},
			FrameSkip:                    1,
			AutosaveIntervalSteps:        120,
			HealthCheckIntervalSteps:     1,
			MaxConsecutiveHealthFailures: 3,
			ROMExtensions:                []string{".gb", ".gbc"},
		},
	}
}

// BuildEmulatorConfig expands paths, applies action overrides, and validates
// the resulting emulator configuration. The roms and save-state directories
// are created if missing.
func (s *Settings) BuildEmulatorConfig() (*emulator.Config, error) {
	romsPath, err := ensureDir(s.Emulator.ROMsPath)
	if err != nil {
		return nil, fmt.Errorf("roms path: %w", err)
	}
	savesPath, err := ensureDir(s.Emulator.SaveStatesPath)
	if err != nil {
		return nil, fmt.Errorf("save states path: %w", err)
	}

	actions, err := buildActionMap(s.Emulator.ActionOverrides, s.Emulator.ActionMapFile)
	if err != nil {
		return nil, err
	}

	cfg := &emulator.Config{
		ROMsPath:                     romsPath,
		SaveStatesPath:               savesPath,
		FrameDimensions:              s.Emulator.FrameDimensions,
		FrameSkip:                    s.Emulator.FrameSkip,
		AutosaveIntervalSteps:        s.Emulator.AutosaveIntervalSteps,
		HealthCheckIntervalSteps:     s.Emulator.HealthCheckIntervalSteps,
		MaxConsecutiveHealthFailures: s.Emulator.MaxConsecutiveHealthFailures,
		ActionMap:                    actions,
		MemoryWatchAddresses:         s.Emulator.MemoryWatchAddresses,
		DefaultROM:                   s.Emulator.DefaultROM,
		ROMExtensions:                s.Emulator.ROMExtensions,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AvailableGames scans the ROM directory for files matching the configured
// extensions and returns their stems, sorted.
func AvailableGames(romsPath string, extensions []string) []string {
	if len(extensions) == 0 {
		return []string{}
	}
	trimmed := make([]string, len(extensions))
	for i, ext := range extensions {
		trimmed[i] = strings.TrimPrefix(strings.ToLower(ext), ".")
	}
	pattern := filepath.Join(romsPath, fmt.Sprintf("*.{%s}", strings.Join(trimmed, ",")))

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return []string{}
	}
	games := make([]string, 0, len(matches))
	for _, match := range matches {
		base := filepath.Base(match)
		games = append(games, strings.TrimSuffix(base, filepath.Ext(base)))
	}
	sort.Strings(games)
	return games
}

// actionMapFile is the YAML schema for extended action maps.
type actionMapFile struct {
	Actions []struct {
		Label         string   `yaml:"label"`
		PressEvents   []string `yaml:"press_events"`
		ReleaseEvents []string `yaml:"release_events"`
	} `yaml:"actions"`
}

// buildActionMap starts from the default controller bindings, applies
// per-label overrides (which must name known labels), and appends any extra
// actions declared in the YAML file.
func buildActionMap(overrides map[string]string, file string) ([]emulator.ActionDefinition, error) {
	actions := emulator.DefaultActionMap()
	index := make(map[string]int, len(actions))
	for i, action := range actions {
		index[action.Label] = i
	}

	for label, encoded := range overrides {
		i, ok := index[label]
		if !ok {
			return nil, fmt.Errorf("unknown action label in override: %q", label)
		}
		action, err := emulator.ParseActionOverride(label, encoded)
		if err != nil {
			return nil, err
		}
		actions[i] = action
	}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("action map file: %w", err)
		}
		var parsed actionMapFile
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("action map file: %w", err)
		}
		for _, entry := range parsed.Actions {
			action, err := emulator.NewAction(entry.Label, entry.PressEvents, entry.ReleaseEvents)
			if err != nil {
				return nil, err
			}
			if i, ok := index[entry.Label]; ok {
				actions[i] = action
				continue
			}
			index[entry.Label] = len(actions)
			actions = append(actions, action)
		}
	}
	return actions, nil
}

func ensureDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", err
	}
	return abs, nil
}
