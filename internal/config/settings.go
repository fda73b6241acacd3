package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// EnvPrefix is the prefix of all environment variables read by the server.
const EnvPrefix = "VOCAB_MCP"

// Transport constants
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// AuthSettings configuration for authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// VocabularySettings configuration for loading and indexing vocabularies
type VocabularySettings struct {
	// Sources are JSON-LD files or directories containing them.
	Sources       []string      `mapstructure:"sources"`
	BaseDir       string        `mapstructure:"base_dir"`
	SyncInterval  time.Duration `mapstructure:"sync_interval"`
	SyncTimeout   time.Duration `mapstructure:"sync_timeout"`
	MaxFileSize   int64         `mapstructure:"max_file_size"`
	MaxResults    int           `mapstructure:"max_results"`
	Language      string        `mapstructure:"language"`
	Watch         bool          `mapstructure:"watch"`
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`
}

// LanguageTag returns the configured display language, English if unparsable.
func (v *VocabularySettings) LanguageTag() language.Tag {
	tag, err := language.Parse(v.Language)
	if err != nil {
		return language.English
	}
	return tag
}

// MetricsSettings configuration for the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool `mapstructure:"enabled"`
}

// Settings application settings
type Settings struct {
	Transport    string             `mapstructure:"transport"`
	Host         string             `mapstructure:"host"`
	Port         int                `mapstructure:"port"`
	LogLevel     string             `mapstructure:"log_level"`
	Auth         AuthSettings       `mapstructure:"auth"`
	Vocabularies VocabularySettings `mapstructure:"vocabularies"`
	Metrics      MetricsSettings    `mapstructure:"metrics"`
}

// keyBinding ties a settings key to its flag name. The environment variable is
// derived from the key.
type keyBinding struct {
	key  string
	flag string
}

var bindings = []keyBinding{
	{"transport", "transport"},
	{"host", "host"},
	{"port", "port"},
	{"log_level", "log-level"},
	{"auth.type", "auth-type"},
	{"auth.basic.username", "auth-basic-username"},
	{"auth.basic.password", "auth-basic-password"},
	{"auth.api_keys", "auth-api-keys"},
	{"vocabularies.sources", "sources"},
	{"vocabularies.base_dir", "base-dir"},
	{"vocabularies.sync_interval", "sync-interval"},
	{"vocabularies.sync_timeout", "sync-timeout"},
	{"vocabularies.max_file_size", "max-file-size"},
	{"vocabularies.max_results", "max-results"},
	{"vocabularies.language", "language"},
	{"vocabularies.watch", "watch"},
	{"vocabularies.watch_debounce", "watch-debounce"},
	{"metrics.enabled", "metrics-enabled"},
}

// EnvVar returns the environment variable name for a settings key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	v.SetDefault("transport", TransportStdio)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("auth.type", AuthTypeNone)

	v.SetDefault("vocabularies.base_dir", defaultBaseDir())
	v.SetDefault("vocabularies.sync_interval", 15*time.Minute)
	v.SetDefault("vocabularies.sync_timeout", 60*time.Second)
	v.SetDefault("vocabularies.max_file_size", int64(8*1024*1024)) // 8MB
	v.SetDefault("vocabularies.max_results", 20)
	v.SetDefault("vocabularies.language", "en")
	v.SetDefault("vocabularies.watch", false)
	v.SetDefault("vocabularies.watch_debounce", 500*time.Millisecond)
	v.SetDefault("metrics.enabled", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, b := range bindings {
		_ = v.BindEnv(b.key, EnvVar(b.key))
		if flags == nil {
			continue
		}
		// Unregistered flags are skipped so callers may register a subset
		if f := flags.Lookup(b.flag); f != nil {
			_ = v.BindPFlag(b.key, f)
		}
	}

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	settings.Auth.APIKeys = splitList(settings.Auth.APIKeys, os.Getenv(EnvVar("auth.api_keys")))
	settings.Vocabularies.Sources = splitList(settings.Vocabularies.Sources, os.Getenv(EnvVar("vocabularies.sources")))

	for i, src := range settings.Vocabularies.Sources {
		settings.Vocabularies.Sources[i] = expandHomeDir(src)
	}
	settings.Vocabularies.BaseDir = expandHomeDir(settings.Vocabularies.BaseDir)

	return &settings, nil
}

// splitList normalizes a list setting. Viper reads a comma-separated env var
// as a single element, so it is split here. Elements are trimmed and empty
// ones dropped.
func splitList(values []string, env string) []string {
	if env != "" && (len(values) == 0 || (len(values) == 1 && strings.Contains(values[0], ","))) {
		values = strings.Split(env, ",")
	}
	for i := range values {
		values[i] = strings.TrimSpace(values[i])
	}
	return filterEmptyStrings(values)
}

// defaultBaseDir returns the default directory for indexes and sync state
func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vocab-mcp"
	}
	return filepath.Join(home, ".vocab-mcp")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ParseLogLevel converts a level name (debug, info, warn, error) to a slog level.
func ParseLogLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", name)
	}
	return level, nil
}

// ValidateSettings checks for conflicting configurations.
// Returns an error if the settings contain mutually exclusive or incomplete auth config.
func ValidateSettings(s *Settings) error {
	switch s.Transport {
	case TransportStdio, TransportSSE:
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Transport)
	}

	if s.LogLevel != "" {
		if _, err := ParseLogLevel(s.LogLevel); err != nil {
			return err
		}
	}

	if err := validateAuthSettings(&s.Auth); err != nil {
		return err
	}

	return ValidateVocabularySettings(&s.Vocabularies)
}

func validateAuthSettings(a *AuthSettings) error {
	hasBasicCreds := a.Basic.Username != "" || a.Basic.Password != ""
	hasAPIKeys := len(a.APIKeys) > 0

	switch a.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if a.Basic.Username == "" || a.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + a.Type)
	}
	return nil
}

// ValidateVocabularySettings validates the vocabulary configuration
func ValidateVocabularySettings(v *VocabularySettings) error {
	if len(v.Sources) == 0 {
		return errors.New("at least one vocabulary source is required (sources)")
	}

	if v.BaseDir == "" {
		return errors.New("base-dir cannot be empty")
	}

	if v.SyncInterval <= 0 {
		return errors.New("sync-interval must be positive")
	}

	if v.SyncTimeout <= 0 {
		return errors.New("sync-timeout must be positive")
	}

	if v.MaxFileSize <= 0 {
		return errors.New("max-file-size must be positive")
	}

	if v.MaxResults <= 0 {
		return errors.New("max-results must be positive")
	}

	if _, err := language.Parse(v.Language); err != nil {
		return fmt.Errorf("invalid language %q: %w", v.Language, err)
	}

	if v.Watch && v.WatchDebounce <= 0 {
		return errors.New("watch-debounce must be positive when watching sources")
	}

	return nil
}
