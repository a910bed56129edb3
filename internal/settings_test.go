package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iksnae/pagechat/testutil"
)

func TestSettingsManager_Paths(t *testing.T) {
	sm := NewSettingsManager("/state")
	if sm.Dir() != "/state" {
		t.Errorf("Dir() = %q", sm.Dir())
	}
	if sm.SettingsPath() != filepath.Join("/state", "config.yaml") {
		t.Errorf("SettingsPath() = %q", sm.SettingsPath())
	}
	if sm.HistoryPath() != filepath.Join("/state", "history.db") {
		t.Errorf("HistoryPath() = %q", sm.HistoryPath())
	}
}

func TestSettingsManager_LoadDefaults(t *testing.T) {
	t.Setenv("PAGECHAT_BASE_URL", "")
	t.Setenv("PAGECHAT_MODEL", "")
	t.Setenv("PAGECHAT_API_KEY", "")
	sm := NewSettingsManager(testutil.CreateTempDir(t))

	settings, err := sm.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if settings != DefaultSettings() {
		t.Errorf("Load() = %+v, want defaults", settings)
	}
	if settings.BaseURL != "http://localhost:11434" || settings.ModelName != "granite4:3b" {
		t.Errorf("unexpected defaults %+v", settings)
	}
}

func TestSettingsManager_LoadFileAndEnv(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	testutil.CreateSettingsFixture(t, dir, "base_url: http://gpu-box:8080/v1\nmodel_name: llama3\ninclude_page: false\n")

	t.Setenv("PAGECHAT_BASE_URL", "")
	t.Setenv("PAGECHAT_MODEL", "qwen")
	t.Setenv("PAGECHAT_API_KEY", "sk-test")

	settings, err := NewSettingsManager(dir).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if settings.BaseURL != "http://gpu-box:8080/v1" {
		t.Errorf("BaseURL = %q", settings.BaseURL)
	}
	if settings.ModelName != "qwen" {
		t.Errorf("ModelName = %q, env should win", settings.ModelName)
	}
	if settings.APIKey != "sk-test" {
		t.Errorf("APIKey = %q", settings.APIKey)
	}
	if settings.IncludePage {
		t.Error("IncludePage should be false from file")
	}
	if settings.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, missing keys keep defaults", settings.LogLevel)
	}
}

func TestSettingsManager_LoadEnvFile(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	testutil.CreateSettingsFixture(t, dir, "model_name: llama3\n")
	envFile := "# local endpoint\nPAGECHAT_BASE_URL=http://gpu-box:8080\nPAGECHAT_MODEL=qwen\nPAGECHAT_API_KEY=sk-file\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(envFile), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PAGECHAT_BASE_URL", "")
	t.Setenv("PAGECHAT_MODEL", "")
	t.Setenv("PAGECHAT_API_KEY", "sk-env")

	sm := NewSettingsManager(dir)
	if sm.EnvPath() != filepath.Join(dir, ".env") {
		t.Errorf("EnvPath() = %q", sm.EnvPath())
	}
	settings, err := sm.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if settings.BaseURL != "http://gpu-box:8080" || settings.ModelName != "qwen" {
		t.Errorf(".env values should override the file: %+v", settings)
	}
	if settings.APIKey != "sk-env" {
		t.Errorf("APIKey = %q, process env should win over .env", settings.APIKey)
	}

	fileOnly, err := sm.LoadFile()
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if fileOnly.ModelName != "llama3" || fileOnly.APIKey != "" {
		t.Errorf("LoadFile() should ignore .env: %+v", fileOnly)
	}
}

func TestSettingsManager_LoadInvalidYAML(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	testutil.CreateSettingsFixture(t, dir, "base_url: [unclosed\n")

	_, err := NewSettingsManager(dir).Load()
	if err == nil {
		t.Fatal("Load() should fail on invalid YAML")
	}
	if _, ok := err.(*StoreError); !ok {
		t.Errorf("Load() error = %T, want *StoreError", err)
	}
}

func TestSettingsManager_SaveAndLoad(t *testing.T) {
	t.Setenv("PAGECHAT_BASE_URL", "")
	t.Setenv("PAGECHAT_MODEL", "")
	t.Setenv("PAGECHAT_API_KEY", "")
	dir := filepath.Join(testutil.CreateTempDir(t), "nested")
	sm := NewSettingsManager(dir)

	settings := DefaultSettings()
	settings.ModelName = "mistral"
	settings.APIKey = "k"
	if err := sm.Save(settings); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := sm.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded != settings {
		t.Errorf("Load() = %+v, want %+v", loaded, settings)
	}
}

func TestSettings_Set(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		check   func(Settings) bool
		wantErr bool
	}{
		{key: "base_url", value: " http://x ", check: func(s Settings) bool { return s.BaseURL == "http://x" }},
		{key: "model_name", value: "llama3", check: func(s Settings) bool { return s.ModelName == "llama3" }},
		{key: "api_key", value: "", check: func(s Settings) bool { return s.APIKey == "" }},
		{key: "include_page", value: "false", check: func(s Settings) bool { return !s.IncludePage }},
		{key: "include_page", value: "maybe", wantErr: true},
		{key: "log_level", value: "debug", check: func(s Settings) bool { return s.LogLevel == "debug" }},
		{key: "log_level", value: "loud", wantErr: true},
		{key: "bridge_addr", value: ":9000", check: func(s Settings) bool { return s.BridgeAddr == ":9000" }},
		{key: "color", value: "blue", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			s := DefaultSettings()
			err := s.Set(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !tt.check(s) {
				t.Errorf("Set(%q, %q) gave %+v", tt.key, tt.value, s)
			}
		})
	}
}

func TestSettings_Endpoint(t *testing.T) {
	s := Settings{BaseURL: "u", ModelName: "m", APIKey: "k"}
	if got := s.Endpoint(); got != (EndpointConfig{BaseURL: "u", ModelName: "m", APIKey: "k"}) {
		t.Errorf("Endpoint() = %+v", got)
	}
}

func TestSettingsManager_LoadFileIgnoresEnv(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	testutil.CreateSettingsFixture(t, dir, "model_name: llama3\n")
	t.Setenv("PAGECHAT_MODEL", "qwen")

	settings, err := NewSettingsManager(dir).LoadFile()
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if settings.ModelName != "llama3" {
		t.Errorf("ModelName = %q, want value from file", settings.ModelName)
	}
}
