package app

import "github.com/spf13/pflag"

// RegisterFlags registers all CLI flags on the given FlagSet.
// Zero defaults leave the viper defaults in effect.
func RegisterFlags(flags *pflag.FlagSet) {
	RegisterServerFlags(flags)
	RegisterVocabularyFlags(flags)
}

// RegisterServerFlags registers the transport, auth and observability flags.
func RegisterServerFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")
	flags.Bool("metrics-enabled", false, "Expose Prometheus metrics at /metrics (SSE only)")
}

// RegisterVocabularyFlags registers the flags shared by every command that
// reads vocabulary sources or indexes.
func RegisterVocabularyFlags(flags *pflag.FlagSet) {
	flags.StringP("log-level", "l", "", "Log level: debug, info, warn, or error")
	flags.StringSliceP("sources", "s", nil, "JSON-LD vocabulary files or directories (comma-separated)")
	flags.String("base-dir", "", "Directory for indexes and sync state")
	flags.Duration("sync-interval", 0, "Interval between periodic resyncs")
	flags.Duration("sync-timeout", 0, "Maximum time to wait for another instance's sync")
	flags.Int64("max-file-size", 0, "Maximum size in bytes of an indexed file")
	flags.Int("max-results", 0, "Maximum number of aggregated search results")
	flags.String("language", "", "Preferred display language (BCP 47 tag)")
	flags.BoolP("watch", "w", false, "Watch sources for changes and resync")
	flags.Duration("watch-debounce", 0, "Quiet period after a change before resyncing")
}
