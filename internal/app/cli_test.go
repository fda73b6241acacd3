package app

import (
	"slices"
	"testing"
	"time"

	"github.com/sha1n/mcp-vocab-server/internal/config"
	"github.com/spf13/pflag"
)

func TestRegisterFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)

	expectedFlags := []string{
		"transport",
		"host",
		"port",
		"log-level",
		"auth-type",
		"auth-basic-username",
		"auth-basic-password",
		"auth-api-keys",
		"sources",
		"base-dir",
		"sync-interval",
		"sync-timeout",
		"max-file-size",
		"max-results",
		"language",
		"watch",
		"watch-debounce",
		"metrics-enabled",
	}

	for _, name := range expectedFlags {
		if flags.Lookup(name) == nil {
			t.Errorf("Expected flag %q to be registered", name)
		}
	}
}

func TestRegisterVocabularyFlags_OmitsServerFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterVocabularyFlags(flags)

	for _, name := range []string{"transport", "port", "auth-type", "metrics-enabled"} {
		if flags.Lookup(name) != nil {
			t.Errorf("Flag %q should not be registered", name)
		}
	}
	if flags.Lookup("sources") == nil {
		t.Error("Expected flag \"sources\" to be registered")
	}
}

func TestRegisterFlags_Shorthand(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)

	shorthandFlags := map[string]string{
		"transport":           "t",
		"host":                "H",
		"port":                "p",
		"log-level":           "l",
		"auth-type":           "a",
		"auth-basic-username": "u",
		"auth-basic-password": "P",
		"auth-api-keys":       "k",
		"sources":             "s",
		"watch":               "w",
	}

	for name, shorthand := range shorthandFlags {
		flag := flags.Lookup(name)
		if flag == nil {
			t.Errorf("Flag %q not found", name)
			continue
		}
		if flag.Shorthand != shorthand {
			t.Errorf("Flag %q expected shorthand %q, got %q", name, shorthand, flag.Shorthand)
		}
	}
}

func TestRegisterFlags_OverrideSettings(t *testing.T) {
	t.Chdir(t.TempDir())

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)

	err := flags.Parse([]string{
		"--transport", "sse",
		"--port", "9090",
		"-s", "/data/a.jsonld,/data/glossaries",
		"--sync-interval", "5m",
		"--max-results", "7",
		"--language", "cs",
		"--watch",
		"--metrics-enabled",
	})
	if err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	settings, err := config.LoadSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("LoadSettingsWithFlags failed: %v", err)
	}

	if settings.Transport != config.TransportSSE {
		t.Errorf("Expected transport 'sse', got '%s'", settings.Transport)
	}
	if settings.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", settings.Port)
	}
	if want := []string{"/data/a.jsonld", "/data/glossaries"}; !slices.Equal(settings.Vocabularies.Sources, want) {
		t.Errorf("Expected sources %v, got %v", want, settings.Vocabularies.Sources)
	}
	if settings.Vocabularies.SyncInterval != 5*time.Minute {
		t.Errorf("Expected sync interval 5m, got %v", settings.Vocabularies.SyncInterval)
	}
	if settings.Vocabularies.MaxResults != 7 {
		t.Errorf("Expected max results 7, got %d", settings.Vocabularies.MaxResults)
	}
	if settings.Vocabularies.Language != "cs" {
		t.Errorf("Expected language 'cs', got '%s'", settings.Vocabularies.Language)
	}
	if !settings.Vocabularies.Watch || !settings.Metrics.Enabled {
		t.Error("Expected watch and metrics to be enabled")
	}
	// Unset flags keep their defaults
	if settings.Host != "0.0.0.0" {
		t.Errorf("Expected default host, got '%s'", settings.Host)
	}
}
