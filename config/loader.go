package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles settings loading with layered files and environment
// overrides. Later layers override earlier ones; the environment
// overrides everything.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new settings loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: true,
		envPrefix:  "LEDGERSTREAM",
	}
}

// AddLayer adds a settings file layer. JSON and YAML files are
// supported, selected by extension.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables schema and settings validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads settings from a single file
func (l *Loader) LoadFile(path string) (*Settings, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all settings layers over the defaults
func (l *Loader) Load() (*Settings, error) {
	merged, err := l.mergedMap()
	if err != nil {
		return nil, err
	}

	if l.validation {
		document, err := json.Marshal(merged)
		if err != nil {
			return nil, fmt.Errorf("failed to encode merged settings: %w", err)
		}
		if validationErrors := ValidateDocument(document); len(validationErrors) > 0 {
			return nil, fmt.Errorf("settings schema validation failed: %s", validationErrors[0])
		}
	}

	settings, err := settingsFromMap(merged)
	if err != nil {
		return nil, err
	}

	l.applyEnvOverrides(settings)

	if l.validation {
		if err := settings.Validate(); err != nil {
			return nil, err
		}
	}

	return settings, nil
}

// mergedMap merges defaults and all layers into one raw document
func (l *Loader) mergedMap() (map[string]any, error) {
	defaults, err := toMap(DefaultSettings())
	if err != nil {
		return nil, fmt.Errorf("failed to encode default settings: %w", err)
	}

	merged := defaults
	for _, path := range l.layers {
		layer, err := l.loadRaw(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		merged = deepMergeMaps(merged, layer)
	}

	return merged, nil
}

// loadRaw loads one settings file as a raw document
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := validateJSONDepth(data); err != nil {
			return nil, fmt.Errorf("invalid JSON structure: %w", err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported settings file extension: %s", path)
	}

	return raw, nil
}

// toMap converts settings to a raw document
func toMap(s *Settings) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// settingsFromMap converts a raw document back to settings
func settingsFromMap(m map[string]any) (*Settings, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings document: %w", err)
	}
	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings document: %w", err)
	}
	return &settings, nil
}

// deepMergeMaps recursively merges two documents, with override taking
// precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any)

	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}

		if baseMap, baseOk := base[k].(map[string]any); baseOk {
			if overrideMap, overrideOk := v.(map[string]any); overrideOk {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}

		result[k] = v
	}

	return result
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(settings *Settings) {
	if val := l.env("ENDPOINTS"); val != "" {
		settings.Endpoints.Candidates = strings.Split(val, ",")
	}
	if val := l.env("CONNECTION_NAME"); val != "" {
		settings.Connection.Name = val
	}
	if val := l.env("USERNAME"); val != "" {
		settings.Connection.Username = val
	}
	if val := l.env("PASSWORD"); val != "" {
		settings.Connection.Password = val
	}
	if val := l.env("TOKEN"); val != "" {
		settings.Connection.Token = val
	}
	if val := l.env("LOG_LEVEL"); val != "" {
		settings.Logging.Level = val
	}
}

// env reads one prefixed environment variable, dropping values that
// fail basic validation
func (l *Loader) env(suffix string) string {
	key := l.envPrefix + "_" + suffix
	val := os.Getenv(key)
	if err := validateEnvVar(key, val); err != nil {
		return ""
	}
	return val
}

// SaveToFile saves the settings to a JSON file
func (s *Settings) SaveToFile(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return safeWriteFile(path, data)
}
