package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
	yamlv3 "gopkg.in/yaml.v3"
)

// Window size constants
const (
	defaultWidth  = 1024
	defaultHeight = 768
	minWidth      = 400
	minHeight     = 300
)

// Sort method constants
const (
	SortNatural    = 0 // Natural sort order (e.g., file1, file2, file10)
	SortSimple     = 1 // Simple string sort (lexicographical)
	SortEntryOrder = 2 // Maintain original order (no sort)
)

const configFileName = ".mangaperformer.yaml"

const envPrefix = "MP_"

// validateKeybindings rejects malformed keys and keys bound to two actions
func validateKeybindings(keybindings map[string][]string) error {
	keyToAction := make(map[string]string)
	validKeys := getKeyMapping()

	for action, keys := range keybindings {
		if _, ok := actionByName(action); !ok {
			return fmt.Errorf("unknown action '%s'", action)
		}
		for _, keyStr := range keys {
			if err := validateKeyString(keyStr, validKeys); err != nil {
				return fmt.Errorf("invalid key '%s' for action '%s': %w", keyStr, action, err)
			}
			if existingAction, exists := keyToAction[keyStr]; exists {
				return fmt.Errorf("key conflict: '%s' is bound to both '%s' and '%s'", keyStr, existingAction, action)
			}
			keyToAction[keyStr] = action
		}
	}
	return nil
}

// validateKeyString validates a single key string like "Shift+KeyB"
func validateKeyString[V any](keyStr string, validKeys map[string]V) error {
	parts := strings.Split(keyStr, "+")
	keyName := parts[len(parts)-1]
	if keyName == "" {
		return errors.New("empty key string")
	}
	if _, ok := validKeys[keyName]; !ok {
		return fmt.Errorf("unknown key: %s", keyName)
	}
	for _, mod := range parts[:len(parts)-1] {
		switch strings.ToLower(mod) {
		case "shift", "ctrl", "alt":
		default:
			return fmt.Errorf("unknown modifier: %s", mod)
		}
	}
	return nil
}

// ConfigLoadResult contains the result of loading configuration
type ConfigLoadResult struct {
	Config   Config
	HasError bool
	Warnings []string
	Status   string // "OK", "Default", "Warning", "Error"
}

type Config struct {
	WindowWidth        int     `koanf:"window_width" yaml:"window_width"`
	WindowHeight       int     `koanf:"window_height" yaml:"window_height"`
	Fullscreen         bool    `koanf:"fullscreen" yaml:"fullscreen"`
	RightToLeft        bool    `koanf:"right_to_left" yaml:"right_to_left"`
	PageSpread         int     `koanf:"page_spread" yaml:"page_spread"`
	ViewMode           string  `koanf:"view_mode" yaml:"view_mode"`
	Language           string  `koanf:"language" yaml:"language"`
	ThumbHeight        int     `koanf:"thumb_height" yaml:"thumb_height"`
	CacheSize          int     `koanf:"cache_size" yaml:"cache_size"`
	PreloadConcurrency int     `koanf:"preload_concurrency" yaml:"preload_concurrency"`
	ReadyTimeoutMS     int     `koanf:"ready_timeout_ms" yaml:"ready_timeout_ms"`
	AutoHideMS         int     `koanf:"autohide_ms" yaml:"autohide_ms"`
	SliderHoldMS       int     `koanf:"slider_hold_ms" yaml:"slider_hold_ms"`
	TooltipDelayMS     int     `koanf:"tooltip_delay_ms" yaml:"tooltip_delay_ms"`
	TooltipRetainMS    int     `koanf:"tooltip_retain_ms" yaml:"tooltip_retain_ms"`
	LeadingSingles     int     `koanf:"leading_singles" yaml:"leading_singles"`
	SortMethod         int     `koanf:"sort_method" yaml:"sort_method"`
	SimplePositioning  bool    `koanf:"simple_positioning" yaml:"simple_positioning"`
	SmoothScaling      bool    `koanf:"smooth_scaling" yaml:"smooth_scaling"`
	HelpFontSize       float64 `koanf:"help_font_size" yaml:"help_font_size"`

	Keybindings   map[string][]string `koanf:"keybindings" yaml:"keybindings"`
	Mousebindings map[string][]string `koanf:"mousebindings" yaml:"mousebindings"`
	Mouse         MouseSettings       `koanf:"mouse" yaml:"mouse"`
	Logging       LoggingConfig       `koanf:"logging" yaml:"logging"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() Config {
	return Config{
		WindowWidth:        defaultWidth,
		WindowHeight:       defaultHeight,
		PageSpread:         1,
		ViewMode:           string(ViewPageFit),
		ThumbHeight:        defaultThumbHeight,
		CacheSize:          16,
		PreloadConcurrency: defaultPreloadConcurrency,
		ReadyTimeoutMS:     int(defaultReadyTimeout.Milliseconds()),
		AutoHideMS:         int(defaultAutoHideDuration.Milliseconds()),
		SliderHoldMS:       int(defaultSliderHold.Milliseconds()),
		TooltipDelayMS:     int(defaultTooltipDelay.Milliseconds()),
		TooltipRetainMS:    int(defaultTooltipRetain.Milliseconds()),
		LeadingSingles:     1,
		SortMethod:         SortNatural,
		SmoothScaling:      true,
		HelpFontSize:       20,
		Keybindings:        GetDefaultKeybindings(),
		Mousebindings:      GetDefaultMousebindings(),
		Mouse:              GetDefaultMouseSettings(),
		Logging:            defaultLoggingConfig(),
	}
}

func getConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return configFileName
	}
	return filepath.Join(homeDir, configFileName)
}

func loadConfig() ConfigLoadResult {
	return loadConfigFromPath(getConfigPath())
}

// loadConfigFromPath reads the YAML file (if any), overlays MP_* environment
// variables and clamps everything into range. A broken file yields the
// defaults with Status "Error".
func loadConfigFromPath(configPath string) ConfigLoadResult {
	config := DefaultConfig()
	result := ConfigLoadResult{Config: config, Status: "OK"}

	k := koanf.New(".")
	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			result.HasError = true
			result.Status = "Error"
			result.Warnings = append(result.Warnings, fmt.Sprintf("Invalid config file: %v", err))
			return result
		}
	} else {
		result.Status = "Default"
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Environment overrides ignored: %v", err))
	}

	if err := k.Unmarshal("", &config); err != nil {
		result.HasError = true
		result.Status = "Error"
		result.Warnings = append(result.Warnings, fmt.Sprintf("Invalid config values: %v", err))
		return result
	}

	warn := func(format string, args ...any) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(format, args...))
		result.Status = "Warning"
	}

	if config.WindowWidth < minWidth {
		config.WindowWidth = defaultWidth
	}
	if config.WindowHeight < minHeight {
		config.WindowHeight = defaultHeight
	}
	if config.PageSpread != 1 && config.PageSpread != 2 {
		warn("page_spread %d is not 1 or 2", config.PageSpread)
		config.PageSpread = 1
	}
	if _, err := ParseViewMode(config.ViewMode); err != nil {
		warn("%v", err)
		config.ViewMode = string(ViewPageFit)
	}
	if config.SortMethod < SortNatural || config.SortMethod > SortEntryOrder {
		config.SortMethod = SortNatural
	}
	if config.HelpFontSize <= 12.0 {
		config.HelpFontSize = 20
	}

	config.ThumbHeight = clampConfig(config.ThumbHeight, 32, 800, defaultThumbHeight)
	config.CacheSize = clampConfig(config.CacheSize, 1, 64, 16)
	config.PreloadConcurrency = clampConfig(config.PreloadConcurrency, 1, 8, defaultPreloadConcurrency)
	config.ReadyTimeoutMS = clampConfig(config.ReadyTimeoutMS, 100, 120000, int(defaultReadyTimeout.Milliseconds()))
	config.AutoHideMS = clampConfig(config.AutoHideMS, 100, 60000, int(defaultAutoHideDuration.Milliseconds()))
	config.SliderHoldMS = clampConfig(config.SliderHoldMS, 0, 1000, int(defaultSliderHold.Milliseconds()))
	config.TooltipDelayMS = clampConfig(config.TooltipDelayMS, 0, 5000, int(defaultTooltipDelay.Milliseconds()))
	config.TooltipRetainMS = clampConfig(config.TooltipRetainMS, 0, 5000, int(defaultTooltipRetain.Milliseconds()))
	if config.LeadingSingles < 0 {
		config.LeadingSingles = 0
	}

	// Fill in missing bindings with defaults, then validate the result
	if config.Keybindings == nil {
		config.Keybindings = GetDefaultKeybindings()
	} else {
		for action, keys := range GetDefaultKeybindings() {
			if _, exists := config.Keybindings[action]; !exists {
				config.Keybindings[action] = keys
			}
		}
		if err := validateKeybindings(config.Keybindings); err != nil {
			warn("Keybinding errors: %v", err)
			config.Keybindings = GetDefaultKeybindings()
		}
	}
	if config.Mousebindings == nil {
		config.Mousebindings = GetDefaultMousebindings()
	} else {
		for action, buttons := range GetDefaultMousebindings() {
			if _, exists := config.Mousebindings[action]; !exists {
				config.Mousebindings[action] = buttons
			}
		}
	}
	if config.Mouse.DoubleClickTime <= 0 {
		config.Mouse.DoubleClickTime = GetDefaultMouseSettings().DoubleClickTime
	}
	if config.Mouse.WheelSensitivity <= 0 {
		config.Mouse.WheelSensitivity = 1.0
	}

	result.Config = config
	return result
}

// clampConfig returns def for zero values and limits the rest to [lo, hi]
func clampConfig(v, lo, hi, def int) int {
	switch {
	case v == 0:
		return def
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

// getSortMethodName returns the human-readable name of a sort method
func getSortMethodName(sortMethod int) string {
	return PageOrderFor(sortMethod).Name
}

func saveConfig(config Config, logger *zap.Logger) {
	if err := saveConfigToPath(config, getConfigPath()); err != nil {
		logger.Warn("Config not saved", zap.Error(err))
	}
}

func saveConfigToPath(config Config, configPath string) error {
	if config.WindowWidth < minWidth || config.WindowHeight < minHeight {
		return fmt.Errorf("invalid window size: %dx%d", config.WindowWidth, config.WindowHeight)
	}

	data, err := yamlv3.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", configPath, err)
	}
	return nil
}
