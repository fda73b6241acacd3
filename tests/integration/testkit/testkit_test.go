package testkit

import (
	"errors"
	"net/http"
	"path/filepath"
	"slices"
	"testing"

	"github.com/sha1n/mcp-vocab-server/internal/vocab"
)

// fakeService records its lifecycle calls into a shared log.
type fakeService struct {
	name     string
	props    map[string]any
	startErr error
	stopErr  error
	log      *[]string
}

func (f *fakeService) Start() (map[string]any, error) {
	*f.log = append(*f.log, "start "+f.name)
	return f.props, f.startErr
}

func (f *fakeService) Stop() error {
	*f.log = append(*f.log, "stop "+f.name)
	return f.stopErr
}

func (f *fakeService) GetName() string {
	return f.name
}

func TestTestEnv_Lifecycle(t *testing.T) {
	var log []string
	env := NewTestEnv(
		&fakeService{name: "index", props: map[string]any{"base_dir": "/tmp/x"}, log: &log},
		&fakeService{name: "server", props: map[string]any{"base_url": "http://localhost:1"}, log: &log},
	)

	if props := env.GetContext().GetProperties(); len(props) != 0 {
		t.Errorf("Expected no properties before start, got %v", props)
	}

	props, err := env.Start()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if props["base_dir"] != "/tmp/x" || props["base_url"] != "http://localhost:1" {
		t.Errorf("Expected merged properties, got %v", props)
	}
	if val, ok := env.GetContext().GetProperty("base_url"); !ok || val != "http://localhost:1" {
		t.Errorf("GetProperty(base_url) = %v, %v", val, ok)
	}
	if _, ok := env.GetContext().GetProperty("missing"); ok {
		t.Error("Expected missing property not to be found")
	}

	if err := env.Stop(); err != nil {
		t.Fatalf("Unexpected stop error: %v", err)
	}

	want := []string{"start index", "start server", "stop server", "stop index"}
	if !slices.Equal(log, want) {
		t.Errorf("Expected lifecycle %v, got %v", want, log)
	}
}

func TestTestEnv_StartError(t *testing.T) {
	var log []string
	env := NewTestEnv(
		&fakeService{name: "a", startErr: errors.New("start failed"), log: &log},
		&fakeService{name: "b", log: &log},
	)

	if _, err := env.Start(); err == nil || err.Error() != "start failed" {
		t.Errorf("Expected 'start failed', got %v", err)
	}
	if !slices.Equal(log, []string{"start a"}) {
		t.Errorf("Expected start to stop at the failing service, got %v", log)
	}
}

func TestTestEnv_StopReturnsLastError(t *testing.T) {
	var log []string
	env := NewTestEnv(
		&fakeService{name: "a", stopErr: errors.New("error a"), log: &log},
		&fakeService{name: "b", stopErr: errors.New("error b"), log: &log},
	)

	// b stops first, so a's error is the last one
	if err := env.Stop(); err == nil || err.Error() != "error a" {
		t.Errorf("Expected 'error a', got %v", err)
	}
}

func TestGetFreePort(t *testing.T) {
	port, err := GetFreePort()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if port <= 0 {
		t.Errorf("Expected positive port, got %d", port)
	}
	if port := MustGetFreePort(t); port <= 0 {
		t.Errorf("Expected positive port, got %d", port)
	}
	if _, err := getFreePortWithAddr("invalid:address:format"); err == nil {
		t.Error("Expected error for invalid address")
	}
}

func TestNewTestFlags(t *testing.T) {
	flags := NewTestFlags(t, nil)

	for name, want := range map[string]string{"transport": "sse", "auth-type": "none", "host": "localhost", "log-level": "error"} {
		if got, _ := flags.GetString(name); got != want {
			t.Errorf("Expected %s %q, got %q", name, want, got)
		}
	}
	if port, _ := flags.GetInt("port"); port <= 0 {
		t.Errorf("Expected auto-assigned positive port, got %d", port)
	}

	flags = NewTestFlags(t, &FlagOptions{Port: 9999, Transport: "stdio", AuthType: "basic", Host: "127.0.0.1"})
	if port, _ := flags.GetInt("port"); port != 9999 {
		t.Errorf("Expected port 9999, got %d", port)
	}
	for name, want := range map[string]string{"transport": "stdio", "auth-type": "basic", "host": "127.0.0.1"} {
		if got, _ := flags.GetString(name); got != want {
			t.Errorf("Expected %s %q, got %q", name, want, got)
		}
	}
}

func TestNewTestFlags_Vocabulary(t *testing.T) {
	baseDir := t.TempDir()
	flags := NewTestFlags(t, &FlagOptions{
		AuthType: "apikey",
		APIKeys:  []string{"k1", "k2"},
		Sources:  []string{"/data/a.jsonld", "/data/b"},
		BaseDir:  baseDir,
		Metrics:  true,
	})

	keys, _ := flags.GetStringSlice("auth-api-keys")
	if !slices.Equal(keys, []string{"k1", "k2"}) {
		t.Errorf("Expected api keys [k1 k2], got %v", keys)
	}

	sources, _ := flags.GetStringSlice("sources")
	if !slices.Equal(sources, []string{"/data/a.jsonld", "/data/b"}) {
		t.Errorf("Expected two sources, got %v", sources)
	}

	if got, _ := flags.GetString("base-dir"); got != baseDir {
		t.Errorf("Expected base-dir %s, got %s", baseDir, got)
	}

	if enabled, _ := flags.GetBool("metrics-enabled"); !enabled {
		t.Error("Expected metrics to be enabled")
	}
}

func TestNewTestFlags_DefaultBaseDir(t *testing.T) {
	flags := NewTestFlags(t, nil)

	if got, _ := flags.GetString("base-dir"); got == "" {
		t.Error("Expected a temp base-dir")
	}
}

func TestServer_StartStop(t *testing.T) {
	t.Chdir(t.TempDir())

	dir := t.TempDir()
	flags := NewTestFlags(t, &FlagOptions{
		Sources: []string{vocab.WriteSampleSource(t, dir)},
		BaseDir: filepath.Join(dir, "base"),
	})

	env := NewTestEnv(NewServer(flags))
	props, err := env.Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	baseURL, ok := props["base_url"].(string)
	if !ok || baseURL == "" {
		t.Fatalf("Expected base_url property, got %v", props)
	}

	resp, err := http.Get(baseURL + "/ready")
	if err != nil {
		t.Fatalf("GET /ready failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected /ready to return 200, got %d", resp.StatusCode)
	}

	if err := env.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if _, err := http.Get(baseURL + "/health"); err == nil {
		t.Error("Expected the server to be stopped")
	}
}

func TestServer_StartFailsOnInvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	// No sources
	flags := NewTestFlags(t, nil)

	srv := NewServer(flags)
	if _, err := srv.Start(); err == nil {
		t.Error("Expected Start to fail without sources")
	}
	if err := srv.Stop(); err != nil {
		t.Errorf("Stop after failed start: %v", err)
	}
}
