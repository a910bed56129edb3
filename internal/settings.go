package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModelName  = "granite4:3b"
	DefaultLogLevel   = "info"
	DefaultBridgeAddr = "127.0.0.1:8765"

	settingsFileName = "config.yaml"
	historyFileName  = "history.db"
	envFileName      = ".env"
)

// Settings is the persisted user configuration
type Settings struct {
	BaseURL     string `yaml:"base_url"`
	ModelName   string `yaml:"model_name"`
	APIKey      string `yaml:"api_key,omitempty"`
	IncludePage bool   `yaml:"include_page"`
	LogLevel    string `yaml:"log_level"`
	BridgeAddr  string `yaml:"bridge_addr"`
}

// DefaultSettings returns the settings used when no file exists
func DefaultSettings() Settings {
	return Settings{
		BaseURL:     DefaultBaseURL,
		ModelName:   DefaultModelName,
		IncludePage: true,
		LogLevel:    DefaultLogLevel,
		BridgeAddr:  DefaultBridgeAddr,
	}
}

// Endpoint returns the endpoint part of the settings
func (s Settings) Endpoint() EndpointConfig {
	return EndpointConfig{
		BaseURL:   s.BaseURL,
		ModelName: s.ModelName,
		APIKey:    s.APIKey,
	}
}

// Set updates a single setting by its yaml key
func (s *Settings) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "base_url":
		s.BaseURL = value
	case "model_name":
		s.ModelName = value
	case "api_key":
		s.APIKey = value
	case "include_page":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("include_page must be true or false: %w", err)
		}
		s.IncludePage = b
	case "log_level":
		if _, err := ParseLogLevel(value); err != nil {
			return err
		}
		s.LogLevel = value
	case "bridge_addr":
		s.BridgeAddr = value
	default:
		return fmt.Errorf("unknown setting: %s (supported: base_url, model_name, api_key, include_page, log_level, bridge_addr)", key)
	}
	return nil
}

// SettingsManager loads and saves settings under a state directory
type SettingsManager struct {
	dir string
}

// NewSettingsManager creates a settings manager rooted at dir
func NewSettingsManager(dir string) *SettingsManager {
	return &SettingsManager{dir: dir}
}

// DefaultStateDir returns ~/.pagechat
func DefaultStateDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".pagechat"), nil
}

// EnsureDir ensures the state directory exists
func (sm *SettingsManager) EnsureDir() error {
	return os.MkdirAll(sm.dir, 0700)
}

// Dir returns the state directory
func (sm *SettingsManager) Dir() string {
	return sm.dir
}

// SettingsPath returns the path of the YAML settings file
func (sm *SettingsManager) SettingsPath() string {
	return filepath.Join(sm.dir, settingsFileName)
}

// HistoryPath returns the path of the history database
func (sm *SettingsManager) HistoryPath() string {
	return filepath.Join(sm.dir, historyFileName)
}

// EnvPath returns the path of the optional .env file
func (sm *SettingsManager) EnvPath() string {
	return filepath.Join(sm.dir, envFileName)
}

// Load reads the settings file on top of the defaults, then applies
// PAGECHAT_* overrides from the environment or, failing that, from the
// .env file in the state directory. Missing files are not an error.
func (sm *SettingsManager) Load() (Settings, error) {
	settings, err := sm.LoadFile()
	if err != nil {
		return settings, err
	}

	fileEnv, err := godotenv.Read(sm.EnvPath())
	if err != nil {
		if !os.IsNotExist(err) {
			LogWarn("ignoring %s: %v", sm.EnvPath(), err)
		}
		fileEnv = nil
	}
	applyEnvOverrides(&settings, fileEnv)
	return settings, nil
}

// LoadFile reads the settings file on top of the defaults, ignoring the environment
func (sm *SettingsManager) LoadFile() (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(sm.SettingsPath())
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return settings, &StoreError{Path: sm.SettingsPath(), Op: "load", Err: err}
		}
	case os.IsNotExist(err):
		LogDebug("no settings file at %s, using defaults", sm.SettingsPath())
	default:
		return settings, &StoreError{Path: sm.SettingsPath(), Op: "load", Err: err}
	}
	return settings, nil
}

// Save writes the settings file
func (sm *SettingsManager) Save(settings Settings) error {
	if err := sm.EnsureDir(); err != nil {
		return &StoreError{Path: sm.dir, Op: "save", Err: err}
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(sm.SettingsPath(), data, 0600); err != nil {
		return &StoreError{Path: sm.SettingsPath(), Op: "save", Err: err}
	}
	return nil
}

func applyEnvOverrides(s *Settings, fileEnv map[string]string) {
	lookup := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fileEnv[key]
	}
	if v := lookup("PAGECHAT_BASE_URL"); v != "" {
		s.BaseURL = v
	}
	if v := lookup("PAGECHAT_MODEL"); v != "" {
		s.ModelName = v
	}
	if v := lookup("PAGECHAT_API_KEY"); v != "" {
		s.APIKey = v
	}
}
