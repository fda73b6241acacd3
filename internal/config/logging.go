package config

import (
	"context"
	"io"
	"log/slog"
)

// NewLogger creates the text logger used by the server. Unknown levels fall
// back to info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	lvl, _ := ParseLogLevel(level)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// Log logs the resolved settings in a granular way, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: transport", "value", s.Transport)
	if s.Transport == TransportSSE {
		logger.InfoContext(ctx, "Config: host", "value", s.Host)
		logger.InfoContext(ctx, "Config: port", "value", s.Port)
		logger.InfoContext(ctx, "Config: metrics.enabled", "value", s.Metrics.Enabled)
	}

	logger.InfoContext(ctx, "Config: auth.type", "value", s.Auth.Type)
	switch s.Auth.Type {
	case AuthTypeBasic:
		logger.InfoContext(ctx, "Config: auth.basic.username", "value", s.Auth.Basic.Username)
		logger.InfoContext(ctx, "Config: auth.basic.password", "value", "****")
	case AuthTypeAPIKey:
		logger.InfoContext(ctx, "Config: auth.api_keys", "count", len(s.Auth.APIKeys))
	}

	v := s.Vocabularies
	logger.InfoContext(ctx, "Config: vocabularies.sources", "value", v.Sources)
	logger.InfoContext(ctx, "Config: vocabularies.base_dir", "value", v.BaseDir)
	logger.InfoContext(ctx, "Config: vocabularies.language", "value", v.Language)
	logger.InfoContext(ctx, "Config: vocabularies.max_results", "value", v.MaxResults)
	logger.InfoContext(ctx, "Config: vocabularies.sync_interval", "value", v.SyncInterval)
	if v.Watch {
		logger.InfoContext(ctx, "Config: vocabularies.watch_debounce", "value", v.WatchDebounce)
	}
}

// AuthSettingsLogValue returns a slog.Value for AuthSettings with masked data
func AuthSettingsLogValue(s AuthSettings) slog.Value {
	keys := make([]string, len(s.APIKeys))
	for i := range s.APIKeys {
		keys[i] = "****"
	}
	return slog.GroupValue(
		slog.String("type", s.Type),
		slog.Any("basic", BasicAuthSettingsLogValue(s.Basic)),
		slog.Any("api_keys", keys),
	)
}

// BasicAuthSettingsLogValue returns a slog.Value for BasicAuthSettings with masked data
func BasicAuthSettingsLogValue(s BasicAuthSettings) slog.Value {
	return slog.GroupValue(
		slog.String("username", s.Username),
		slog.String("password", "****"),
	)
}

// VocabularySettingsLogValue returns a slog.Value for VocabularySettings
func VocabularySettingsLogValue(s VocabularySettings) slog.Value {
	return slog.GroupValue(
		slog.Any("sources", s.Sources),
		slog.String("base_dir", s.BaseDir),
		slog.String("language", s.Language),
		slog.Int("max_results", s.MaxResults),
		slog.Bool("watch", s.Watch),
	)
}

// SettingsLogValue returns a slog.Value for Settings with masked data
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.String("transport", s.Transport),
		slog.String("host", s.Host),
		slog.Int("port", s.Port),
		slog.String("log_level", s.LogLevel),
		slog.Any("auth", AuthSettingsLogValue(s.Auth)),
		slog.Any("vocabularies", VocabularySettingsLogValue(s.Vocabularies)),
	)
}
