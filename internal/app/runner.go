package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-vocab-server/internal/config"
	mcputil "github.com/sha1n/mcp-vocab-server/internal/mcp"
	"github.com/sha1n/mcp-vocab-server/internal/metrics"
	"github.com/sha1n/mcp-vocab-server/internal/vocab"
	"github.com/spf13/pflag"
)

// ServerName is the implementation name reported to MCP clients.
const ServerName = "vocab-mcp"

// Components are the parts of a running server.
type Components struct {
	Server *mcp.Server
	// Service is nil when the server runs without vocabularies.
	Service *vocab.Service
	// Recorder is nil when metrics are disabled.
	Recorder *metrics.Recorder
}

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	StartSSEServer    func(context.Context, *Components, *config.Settings) error
	CreateServer      func(context.Context, *config.Settings, *slog.Logger, string) (*Components, func(), error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
	LogOutput         io.Writer     // Optional: defaults to stderr
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:   config.LoadSettingsWithFlags,
		ValidSettings:  config.ValidateSettings,
		StartSSEServer: StartSSEServer,
		CreateServer:   CreateMCPServer,
	}
}

// RunWithDeps executes the server with the provided dependencies
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Logs always go to stderr; stdout carries the stdio transport
	out := params.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger := config.NewLogger(out, settings.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Starting vocabulary MCP server", "version", version)
	config.LogWithLogger(settings, logger)

	components, cleanup, err := params.CreateServer(ctx, settings, logger, version)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if components.Service != nil {
		stop := startWatcher(ctx, components.Service, logger)
		defer stop()
	}

	if settings.Transport == config.TransportStdio {
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return components.Server.Run(ctx, transport)
	}

	logger.Info("Starting SSE server", "host", settings.Host, "port", settings.Port)
	return params.StartSSEServer(ctx, components, settings)
}

// startWatcher runs the source watcher in the background. The returned
// function stops it and waits for an in-flight resync to finish.
func startWatcher(ctx context.Context, svc *vocab.Service, logger *slog.Logger) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := svc.NewWatcher().Run(ctx); err != nil {
			logger.Error("Source watcher stopped", "error", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// CreateMCPServer creates the vocabulary service and the MCP server with
// registered tools. A failed initial sync is logged and the server starts
// anyway; the next resync may recover it.
func CreateMCPServer(ctx context.Context, settings *config.Settings, logger *slog.Logger, version string) (*Components, func(), error) {
	var recorder *metrics.Recorder
	if settings.Metrics.Enabled {
		recorder = metrics.NewRecorder()
	}

	svc, err := vocab.NewService(&settings.Vocabularies,
		vocab.WithRecorder(recorder),
		vocab.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create vocabulary service: %w", err)
	}

	if err := svc.Initialize(ctx); err != nil {
		logger.Error("Vocabulary initialization failed", "error", err)
	}

	cleanup := func() {
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close vocabulary service", "error", err)
		}
	}

	server := mcputil.CreateServer(mcputil.ServerConfig{
		Name:          ServerName,
		Version:       version,
		VocabularySvc: svc,
	})

	return &Components{Server: server, Service: svc, Recorder: recorder}, cleanup, nil
}
