package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"llamachat/internal/completion"
	"llamachat/internal/httpapi"
	"llamachat/internal/inference"
	"llamachat/internal/manager"
	"llamachat/internal/registry"
)

// createTempModelsDir creates a temporary directory populated with 1MB .gguf files
// and returns the directory path and the list of model IDs (filenames).
func createTempModelsDir(t *testing.T, names ...string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, make([]byte, 1<<20), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir, names
}

// scriptedAdapter replays tokens. When gate is non-nil every generation
// blocks on it before producing output.
type scriptedAdapter struct {
	tokens []string
	gate   chan struct{}
	loads  atomic.Int32
}

func (a *scriptedAdapter) Load(string) (manager.LoadedModel, error) {
	a.loads.Add(1)
	return &scriptedModel{a: a}, nil
}

type scriptedModel struct{ a *scriptedAdapter }

func (m *scriptedModel) Generate(ctx context.Context, _ string, _ inference.Params, onToken func(string) error) (manager.FinalResult, error) {
	if m.a.gate != nil {
		select {
		case <-m.a.gate:
		case <-ctx.Done():
			return manager.FinalResult{}, ctx.Err()
		}
	}
	for _, tok := range m.a.tokens {
		if err := onToken(tok); err != nil {
			return manager.FinalResult{}, err
		}
	}
	return manager.FinalResult{Content: strings.Join(m.a.tokens, ""), FinishReason: "stop"}, nil
}

func (m *scriptedModel) Close() error { return nil }

// newServer wires registry, manager, provider and HTTP API over dir.
func newServer(t *testing.T, dir string, cfg manager.ManagerConfig, a *scriptedAdapter) (*httptest.Server, *manager.Manager) {
	t.Helper()
	reg, err := registry.LoadDir(dir)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	cfg.Registry = reg
	cfg.Adapter = a
	mgr := manager.NewWithConfig(cfg)
	p, err := completion.NewWithConfig(completion.Config{Engine: mgr, DefaultModel: cfg.DefaultModel})
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	srv := httptest.NewServer(httpapi.NewMux(mgr, p))
	t.Cleanup(func() {
		srv.Close()
		_ = mgr.Close()
	})
	return srv, mgr
}

func post(t *testing.T, url, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewBufferString(body))
	if err != nil {
		t.Errorf("new req: %v", err)
		return 0, nil
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Errorf("do req: %v", err)
		return 0, nil
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}
