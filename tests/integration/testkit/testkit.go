// Package testkit starts servers and other services for integration tests.
package testkit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sha1n/mcp-vocab-server/internal/app"
	"github.com/spf13/pflag"
)

// Service represents a test service that can be started and stopped
type Service interface {
	Start() (map[string]any, error)
	Stop() error
	GetName() string
}

// TestEnvContext provides access to properties collected during environment startup
type TestEnvContext interface {
	GetProperties() map[string]any
	GetProperty(name string) (any, bool)
}

// TestEnv manages the lifecycle of test services
type TestEnv interface {
	Start() (map[string]any, error)
	Stop() error
	GetContext() TestEnvContext
}

type testEnvContextImpl struct {
	properties map[string]any
}

func (c *testEnvContextImpl) GetProperties() map[string]any {
	return c.properties
}

func (c *testEnvContextImpl) GetProperty(name string) (any, bool) {
	val, ok := c.properties[name]
	return val, ok
}

type testEnvImpl struct {
	services []Service
	context  *testEnvContextImpl
}

// NewTestEnv creates a new test environment with the given services
func NewTestEnv(services ...Service) TestEnv {
	return &testEnvImpl{
		services: services,
		context:  &testEnvContextImpl{properties: make(map[string]any)},
	}
}

func (e *testEnvImpl) Start() (map[string]any, error) {
	for _, s := range e.services {
		props, err := s.Start()
		if err != nil {
			return nil, err
		}
		for k, v := range props {
			e.context.properties[k] = v
		}
	}
	return e.context.properties, nil
}

func (e *testEnvImpl) Stop() error {
	var lastErr error
	// Stop in reverse order
	for i := len(e.services) - 1; i >= 0; i-- {
		if err := e.services[i].Stop(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (e *testEnvImpl) GetContext() TestEnvContext {
	return e.context
}

// GetFreePort returns a free port from the kernel
func GetFreePort() (int, error) {
	return getFreePortWithAddr("localhost:0")
}

// MustGetFreePort returns a free port or fails the test
func MustGetFreePort(t testing.TB) int {
	t.Helper()
	port, err := GetFreePort()
	if err != nil {
		t.Fatalf("Failed to get free port: %v", err)
	}
	return port
}

func getFreePortWithAddr(addrStr string) (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", addrStr)
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// FlagOptions configures NewTestFlags
type FlagOptions struct {
	Port      int      // Uses free port if 0
	Transport string   // Defaults to "sse"
	AuthType  string   // Defaults to "none"
	Host      string   // Defaults to "localhost"
	APIKeys   []string // Sets auth-api-keys when not empty
	Sources   []string // Vocabulary sources
	BaseDir   string   // Uses a temp dir if empty
	Metrics   bool
}

// NewTestFlags creates a configured pflag.FlagSet for testing
func NewTestFlags(t testing.TB, opts *FlagOptions) *pflag.FlagSet {
	t.Helper()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	app.RegisterFlags(flags)

	o := FlagOptions{Transport: "sse", AuthType: "none", Host: "localhost"}
	if opts != nil {
		if opts.Port != 0 {
			o.Port = opts.Port
		}
		if opts.Transport != "" {
			o.Transport = opts.Transport
		}
		if opts.AuthType != "" {
			o.AuthType = opts.AuthType
		}
		if opts.Host != "" {
			o.Host = opts.Host
		}
		o.APIKeys = opts.APIKeys
		o.Sources = opts.Sources
		o.BaseDir = opts.BaseDir
		o.Metrics = opts.Metrics
	}

	if o.Port == 0 {
		o.Port = MustGetFreePort(t)
	}
	if o.BaseDir == "" {
		o.BaseDir = t.TempDir()
	}

	mustSet(t, flags, "port", strconv.Itoa(o.Port))
	mustSet(t, flags, "transport", o.Transport)
	mustSet(t, flags, "auth-type", o.AuthType)
	mustSet(t, flags, "host", o.Host)
	mustSet(t, flags, "base-dir", o.BaseDir)
	mustSet(t, flags, "log-level", "error")
	if len(o.APIKeys) > 0 {
		mustSet(t, flags, "auth-api-keys", strings.Join(o.APIKeys, ","))
	}
	if len(o.Sources) > 0 {
		mustSet(t, flags, "sources", strings.Join(o.Sources, ","))
	}
	if o.Metrics {
		mustSet(t, flags, "metrics-enabled", "true")
	}

	return flags
}

func mustSet(t testing.TB, flags *pflag.FlagSet, name, value string) {
	t.Helper()
	if err := flags.Set(name, value); err != nil {
		t.Fatalf("Failed to set flag %s: %v", name, err)
	}
}

// ServerStartTimeout bounds how long Start waits for the server to answer.
const ServerStartTimeout = 15 * time.Second

// server runs the SSE server in-process until stopped.
type server struct {
	flags   *pflag.FlagSet
	baseURL string
	cancel  context.CancelFunc
	done    chan error
}

// NewServer returns a Service that runs the SSE server configured by flags.
// Start publishes the "base_url" property.
func NewServer(flags *pflag.FlagSet) Service {
	return &server{flags: flags}
}

func (s *server) GetName() string {
	return "vocab-mcp"
}

func (s *server) Start() (map[string]any, error) {
	host, _ := s.flags.GetString("host")
	port, _ := s.flags.GetInt("port")
	s.baseURL = "http://" + net.JoinHostPort(host, strconv.Itoa(port))

	params := app.DefaultRunParams()
	params.LogOutput = io.Discard

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan error, 1)
	go func() {
		s.done <- app.RunWithDeps(ctx, params, s.flags, "test")
	}()

	if err := s.waitHealthy(); err != nil {
		_ = s.Stop()
		return nil, err
	}
	return map[string]any{"base_url": s.baseURL}, nil
}

func (s *server) waitHealthy() error {
	client := &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(ServerStartTimeout)
	for time.Now().Before(deadline) {
		select {
		case err := <-s.done:
			s.done <- err
			return fmt.Errorf("server exited during startup: %w", err)
		default:
		}

		resp, err := client.Get(s.baseURL + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(25 * time.Millisecond)
	}
	return fmt.Errorf("server at %s did not become healthy within %s", s.baseURL, ServerStartTimeout)
}

func (s *server) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	s.cancel = nil
	select {
	case err := <-s.done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case <-time.After(ServerStartTimeout):
		return errors.New("server did not stop")
	}
}
