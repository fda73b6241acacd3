package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/text/language"
)

func validVocabularies() VocabularySettings {
	return VocabularySettings{
		Sources:      []string{"/data/vocabularies"},
		BaseDir:      "/tmp/vocab-mcp",
		SyncInterval: 15 * time.Minute,
		SyncTimeout:  60 * time.Second,
		MaxFileSize:  8 * 1024 * 1024,
		MaxResults:   20,
		Language:     "en",
	}
}

func validSettings() *Settings {
	return &Settings{
		Transport:    TransportStdio,
		LogLevel:     "info",
		Auth:         AuthSettings{Type: AuthTypeNone},
		Vocabularies: validVocabularies(),
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	_ = os.Unsetenv("VOCAB_MCP_PORT")
	_ = os.Unsetenv("VOCAB_MCP_AUTH_TYPE")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", settings.Port)
	}
	if settings.Auth.Type != AuthTypeNone {
		t.Errorf("Expected default auth type '%s', got '%s'", AuthTypeNone, settings.Auth.Type)
	}
	if settings.Transport != TransportStdio {
		t.Errorf("Expected default transport 'stdio', got '%s'", settings.Transport)
	}
	if settings.Host != "0.0.0.0" {
		t.Errorf("Expected default host '0.0.0.0', got '%s'", settings.Host)
	}
	if settings.LogLevel != "info" {
		t.Errorf("Expected default log level 'info', got '%s'", settings.LogLevel)
	}
	if settings.Metrics.Enabled {
		t.Error("Expected metrics to be disabled by default")
	}
}

func TestLoadSettings_VocabularyDefaults(t *testing.T) {
	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	v := settings.Vocabularies
	if len(v.Sources) != 0 {
		t.Errorf("Expected no default sources, got %v", v.Sources)
	}
	if !strings.HasSuffix(v.BaseDir, ".vocab-mcp") {
		t.Errorf("Expected base dir ending with .vocab-mcp, got %s", v.BaseDir)
	}
	if v.SyncInterval != 15*time.Minute {
		t.Errorf("Expected sync interval 15m, got %v", v.SyncInterval)
	}
	if v.SyncTimeout != 60*time.Second {
		t.Errorf("Expected sync timeout 60s, got %v", v.SyncTimeout)
	}
	if v.MaxFileSize != 8*1024*1024 {
		t.Errorf("Expected max file size 8MB, got %d", v.MaxFileSize)
	}
	if v.MaxResults != 20 {
		t.Errorf("Expected max results 20, got %d", v.MaxResults)
	}
	if v.Language != "en" {
		t.Errorf("Expected language 'en', got %s", v.Language)
	}
	if v.Watch {
		t.Error("Expected watch to be disabled by default")
	}
	if v.WatchDebounce != 500*time.Millisecond {
		t.Errorf("Expected watch debounce 500ms, got %v", v.WatchDebounce)
	}
}

func TestLoadSettings_EnvVars(t *testing.T) {
	t.Setenv("VOCAB_MCP_PORT", "9090")
	t.Setenv("VOCAB_MCP_AUTH_TYPE", "basic")
	t.Setenv("VOCAB_MCP_AUTH_BASIC_USERNAME", "admin")
	t.Setenv("VOCAB_MCP_VOCABULARIES_LANGUAGE", "cs")
	t.Setenv("VOCAB_MCP_VOCABULARIES_SYNC_INTERVAL", "5m")
	t.Setenv("VOCAB_MCP_METRICS_ENABLED", "true")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", settings.Port)
	}
	if settings.Auth.Type != AuthTypeBasic {
		t.Errorf("Expected auth type '%s', got '%s'", AuthTypeBasic, settings.Auth.Type)
	}
	if settings.Auth.Basic.Username != "admin" {
		t.Errorf("Expected username 'admin', got '%s'", settings.Auth.Basic.Username)
	}
	if settings.Vocabularies.Language != "cs" {
		t.Errorf("Expected language 'cs', got '%s'", settings.Vocabularies.Language)
	}
	if settings.Vocabularies.SyncInterval != 5*time.Minute {
		t.Errorf("Expected sync interval 5m, got %v", settings.Vocabularies.SyncInterval)
	}
	if !settings.Metrics.Enabled {
		t.Error("Expected metrics to be enabled")
	}
}

func TestLoadSettings_ListEnvVars(t *testing.T) {
	t.Setenv("VOCAB_MCP_AUTH_API_KEYS", "key1, key2,key3")
	t.Setenv("VOCAB_MCP_VOCABULARIES_SOURCES", " /data/a ,, /data/b")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if want := []string{"key1", "key2", "key3"}; !reflect.DeepEqual(settings.Auth.APIKeys, want) {
		t.Errorf("Expected API keys %v, got %v", want, settings.Auth.APIKeys)
	}
	if want := []string{"/data/a", "/data/b"}; !reflect.DeepEqual(settings.Vocabularies.Sources, want) {
		t.Errorf("Expected sources %v, got %v", want, settings.Vocabularies.Sources)
	}
}

func TestLoadSettings_APIKeys_SingleKey(t *testing.T) {
	t.Setenv("VOCAB_MCP_AUTH_API_KEYS", "singlekey")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if len(settings.Auth.APIKeys) != 1 {
		t.Fatalf("Expected 1 API key, got %d", len(settings.Auth.APIKeys))
	}
	if settings.Auth.APIKeys[0] != "singlekey" {
		t.Errorf("Expected singlekey, got '%s'", settings.Auth.APIKeys[0])
	}
}

func TestLoadSettings_EnvFile(t *testing.T) {
	content := []byte("host=127.0.0.2\nport=7000")
	tmpEnv := ".env"
	if err := os.WriteFile(tmpEnv, content, 0644); err != nil {
		t.Fatalf("Failed to create .env file: %v", err)
	}
	defer func() { _ = os.Remove(tmpEnv) }()

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Host != "127.0.0.2" {
		t.Errorf("Expected host 127.0.0.2, got %s", settings.Host)
	}
	if settings.Port != 7000 {
		t.Errorf("Expected port 7000, got %d", settings.Port)
	}
}

func TestLoadSettings_InvalidConfig(t *testing.T) {
	t.Setenv("VOCAB_MCP_PORT", "not-a-number")

	_, err := LoadSettings()
	if err == nil {
		t.Fatal("Expected error for invalid port type")
	}
}

func TestLoadSettings_ExpandsHomeDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("No home directory")
	}
	t.Setenv("VOCAB_MCP_VOCABULARIES_BASE_DIR", "~/indexes")
	t.Setenv("VOCAB_MCP_VOCABULARIES_SOURCES", "~/glossary")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if want := filepath.Join(home, "indexes"); settings.Vocabularies.BaseDir != want {
		t.Errorf("Expected base dir %s, got %s", want, settings.Vocabularies.BaseDir)
	}
	if want := filepath.Join(home, "glossary"); settings.Vocabularies.Sources[0] != want {
		t.Errorf("Expected source %s, got %s", want, settings.Vocabularies.Sources[0])
	}
}

func TestLoadSettingsWithFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("VOCAB_MCP_PORT", "9090")
	t.Setenv("VOCAB_MCP_TRANSPORT", "sse")
	t.Setenv("VOCAB_MCP_VOCABULARIES_MAX_RESULTS", "5")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 0, "")
	flags.String("transport", "", "")
	flags.Int("max-results", 0, "")
	_ = flags.Set("port", "7777")
	_ = flags.Set("transport", "stdio")
	_ = flags.Set("max-results", "50")

	settings, err := LoadSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 7777 {
		t.Errorf("Expected CLI port 7777, got %d", settings.Port)
	}
	if settings.Transport != TransportStdio {
		t.Errorf("Expected CLI transport 'stdio', got '%s'", settings.Transport)
	}
	if settings.Vocabularies.MaxResults != 50 {
		t.Errorf("Expected CLI max results 50, got %d", settings.Vocabularies.MaxResults)
	}
}

func TestLoadSettingsWithFlags_EnvOverridesDefault(t *testing.T) {
	t.Setenv("VOCAB_MCP_HOST", "192.168.1.1")

	settings, err := LoadSettingsWithFlags(nil)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Host != "192.168.1.1" {
		t.Errorf("Expected env host '192.168.1.1', got '%s'", settings.Host)
	}
}

func TestLoadSettingsWithFlags_UnsetFlagKeepsEnv(t *testing.T) {
	t.Setenv("VOCAB_MCP_VOCABULARIES_LANGUAGE", "de")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("language", "", "")

	settings, err := LoadSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Vocabularies.Language != "de" {
		t.Errorf("Expected env language 'de', got '%s'", settings.Vocabularies.Language)
	}
}

func TestLoadSettingsWithFlags_AllFlagTypes(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("transport", "", "")
	flags.String("host", "", "")
	flags.Int("port", 0, "")
	flags.String("log-level", "", "")
	flags.String("auth-type", "", "")
	flags.String("auth-basic-username", "", "")
	flags.String("auth-basic-password", "", "")
	flags.StringSlice("auth-api-keys", nil, "")
	flags.StringSlice("sources", nil, "")
	flags.String("base-dir", "", "")
	flags.Duration("sync-interval", 0, "")
	flags.Duration("sync-timeout", 0, "")
	flags.Int64("max-file-size", 0, "")
	flags.Int("max-results", 0, "")
	flags.String("language", "", "")
	flags.Bool("watch", false, "")
	flags.Duration("watch-debounce", 0, "")
	flags.Bool("metrics-enabled", false, "")

	_ = flags.Set("transport", "sse")
	_ = flags.Set("host", "localhost")
	_ = flags.Set("port", "3000")
	_ = flags.Set("log-level", "debug")
	_ = flags.Set("auth-type", "basic")
	_ = flags.Set("auth-basic-username", "testuser")
	_ = flags.Set("auth-basic-password", "testpass")
	_ = flags.Set("sources", "/data/a,/data/b")
	_ = flags.Set("base-dir", "/tmp/custom")
	_ = flags.Set("sync-interval", "30m")
	_ = flags.Set("sync-timeout", "2m")
	_ = flags.Set("max-file-size", "1024")
	_ = flags.Set("max-results", "7")
	_ = flags.Set("language", "cs")
	_ = flags.Set("watch", "true")
	_ = flags.Set("watch-debounce", "2s")
	_ = flags.Set("metrics-enabled", "true")

	settings, err := LoadSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Transport != TransportSSE {
		t.Errorf("Expected transport 'sse', got '%s'", settings.Transport)
	}
	if settings.Host != "localhost" {
		t.Errorf("Expected host 'localhost', got '%s'", settings.Host)
	}
	if settings.Port != 3000 {
		t.Errorf("Expected port 3000, got %d", settings.Port)
	}
	if settings.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug', got '%s'", settings.LogLevel)
	}
	if settings.Auth.Type != AuthTypeBasic {
		t.Errorf("Expected auth type 'basic', got '%s'", settings.Auth.Type)
	}
	if settings.Auth.Basic.Username != "testuser" || settings.Auth.Basic.Password != "testpass" {
		t.Errorf("Unexpected basic credentials: %+v", settings.Auth.Basic)
	}

	v := settings.Vocabularies
	if want := []string{"/data/a", "/data/b"}; !reflect.DeepEqual(v.Sources, want) {
		t.Errorf("Expected sources %v, got %v", want, v.Sources)
	}
	if v.BaseDir != "/tmp/custom" {
		t.Errorf("Expected base dir '/tmp/custom', got '%s'", v.BaseDir)
	}
	if v.SyncInterval != 30*time.Minute || v.SyncTimeout != 2*time.Minute {
		t.Errorf("Unexpected sync durations: %v, %v", v.SyncInterval, v.SyncTimeout)
	}
	if v.MaxFileSize != 1024 || v.MaxResults != 7 {
		t.Errorf("Unexpected limits: %d, %d", v.MaxFileSize, v.MaxResults)
	}
	if v.Language != "cs" {
		t.Errorf("Expected language 'cs', got '%s'", v.Language)
	}
	if !v.Watch || v.WatchDebounce != 2*time.Second {
		t.Errorf("Unexpected watch settings: %v, %v", v.Watch, v.WatchDebounce)
	}
	if !settings.Metrics.Enabled {
		t.Error("Expected metrics to be enabled")
	}
}

func TestEnvVar(t *testing.T) {
	tests := map[string]string{
		"port":                        "VOCAB_MCP_PORT",
		"auth.basic.username":         "VOCAB_MCP_AUTH_BASIC_USERNAME",
		"vocabularies.watch_debounce": "VOCAB_MCP_VOCABULARIES_WATCH_DEBOUNCE",
	}
	for key, want := range tests {
		if got := EnvVar(key); got != want {
			t.Errorf("EnvVar(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLogLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestVocabularySettings_LanguageTag(t *testing.T) {
	v := VocabularySettings{Language: "cs"}
	if got := v.LanguageTag(); got != language.Czech {
		t.Errorf("Expected Czech, got %v", got)
	}

	v = VocabularySettings{Language: "not a tag!"}
	if got := v.LanguageTag(); got != language.English {
		t.Errorf("Expected English fallback, got %v", got)
	}
}

func TestValidateSettings_Valid(t *testing.T) {
	if err := ValidateSettings(validSettings()); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
}

func TestValidateSettings_Auth(t *testing.T) {
	tests := []struct {
		name    string
		auth    AuthSettings
		wantErr string
	}{
		{name: "none", auth: AuthSettings{Type: AuthTypeNone}},
		{name: "empty type", auth: AuthSettings{Type: ""}},
		{name: "basic", auth: AuthSettings{Type: AuthTypeBasic, Basic: BasicAuthSettings{Username: "admin", Password: "secret"}}},
		{name: "apikey", auth: AuthSettings{Type: AuthTypeAPIKey, APIKeys: []string{"key1"}}},
		{
			name:    "none with basic credentials",
			auth:    AuthSettings{Type: AuthTypeNone, Basic: BasicAuthSettings{Username: "admin"}},
			wantErr: "incompatible",
		},
		{
			name:    "none with api keys",
			auth:    AuthSettings{Type: AuthTypeNone, APIKeys: []string{"key1"}},
			wantErr: "incompatible",
		},
		{
			name:    "basic missing username",
			auth:    AuthSettings{Type: AuthTypeBasic, Basic: BasicAuthSettings{Password: "secret"}},
			wantErr: "requires both username and password",
		},
		{
			name:    "basic missing password",
			auth:    AuthSettings{Type: AuthTypeBasic, Basic: BasicAuthSettings{Username: "admin"}},
			wantErr: "requires both username and password",
		},
		{
			name:    "basic with api keys",
			auth:    AuthSettings{Type: AuthTypeBasic, Basic: BasicAuthSettings{Username: "a", Password: "b"}, APIKeys: []string{"k"}},
			wantErr: "mutually exclusive",
		},
		{
			name:    "apikey missing keys",
			auth:    AuthSettings{Type: AuthTypeAPIKey},
			wantErr: "requires at least one API key",
		},
		{
			name:    "apikey with basic credentials",
			auth:    AuthSettings{Type: AuthTypeAPIKey, APIKeys: []string{"k"}, Basic: BasicAuthSettings{Username: "a"}},
			wantErr: "mutually exclusive",
		},
		{
			name:    "unknown type",
			auth:    AuthSettings{Type: "oauth"},
			wantErr: "unknown auth-type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			s.Auth = tt.auth
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestValidateSettings_Transport(t *testing.T) {
	for _, transport := range []string{TransportStdio, TransportSSE} {
		s := validSettings()
		s.Transport = transport
		if err := ValidateSettings(s); err != nil {
			t.Errorf("Expected transport %q to be valid, got: %v", transport, err)
		}
	}

	for _, transport := range []string{"", "http", "grpc", "STDIO"} {
		s := validSettings()
		s.Transport = transport
		err := ValidateSettings(s)
		if err == nil {
			t.Errorf("Expected error for transport %q", transport)
			continue
		}
		if !strings.Contains(err.Error(), "transport must be") {
			t.Errorf("Unexpected error for transport %q: %v", transport, err)
		}
	}
}

func TestValidateSettings_LogLevel(t *testing.T) {
	s := validSettings()
	s.LogLevel = "loud"
	if err := ValidateSettings(s); err == nil {
		t.Error("Expected error for unknown log level")
	}

	s.LogLevel = ""
	if err := ValidateSettings(s); err != nil {
		t.Errorf("Expected empty log level to be accepted, got: %v", err)
	}
}

func TestValidateVocabularySettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*VocabularySettings)
		wantErr string
	}{
		{name: "valid", mutate: func(*VocabularySettings) {}},
		{name: "no sources", mutate: func(v *VocabularySettings) { v.Sources = nil }, wantErr: "at least one vocabulary source"},
		{name: "empty base dir", mutate: func(v *VocabularySettings) { v.BaseDir = "" }, wantErr: "base-dir cannot be empty"},
		{name: "zero sync interval", mutate: func(v *VocabularySettings) { v.SyncInterval = 0 }, wantErr: "sync-interval must be positive"},
		{name: "negative sync timeout", mutate: func(v *VocabularySettings) { v.SyncTimeout = -time.Second }, wantErr: "sync-timeout must be positive"},
		{name: "zero max file size", mutate: func(v *VocabularySettings) { v.MaxFileSize = 0 }, wantErr: "max-file-size must be positive"},
		{name: "zero max results", mutate: func(v *VocabularySettings) { v.MaxResults = 0 }, wantErr: "max-results must be positive"},
		{name: "bad language", mutate: func(v *VocabularySettings) { v.Language = "not a tag!" }, wantErr: "invalid language"},
		{
			name:    "watch without debounce",
			mutate:  func(v *VocabularySettings) { v.Watch = true; v.WatchDebounce = 0 },
			wantErr: "watch-debounce must be positive",
		},
		{
			name:   "watch with debounce",
			mutate: func(v *VocabularySettings) { v.Watch = true; v.WatchDebounce = time.Second },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validVocabularies()
			tt.mutate(&v)
			err := ValidateVocabularySettings(&v)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestExpandHomeDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("No home directory")
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"~/data", filepath.Join(home, "data")},
		{"~", home},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"~user/data", "~user/data"},
	}

	for _, tt := range tests {
		if got := expandHomeDir(tt.input); got != tt.expected {
			t.Errorf("expandHomeDir(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		env    string
		want   []string
	}{
		{"no env", []string{" a ", "b"}, "", []string{"a", "b"}},
		{"env replaces joined value", []string{"a,b"}, "a,b", []string{"a", "b"}},
		{"env fills empty", nil, "x, y", []string{"x", "y"}},
		{"flag values kept", []string{"a", "b"}, "x,y", []string{"a", "b"}},
		{"empties dropped", []string{"", " "}, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitList(tt.values, tt.env); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitList(%v, %q) = %v, want %v", tt.values, tt.env, got, tt.want)
			}
		})
	}
}

func TestFilterEmptyStrings(t *testing.T) {
	got := filterEmptyStrings([]string{"a", "", "b", ""})
	if want := []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if filterEmptyStrings(nil) != nil {
		t.Error("Expected nil for nil input")
	}
}
