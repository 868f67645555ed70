package manager

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"llamachat/internal/inference"
	"llamachat/pkg/types"
)

// createModelFile creates a file of approximately sizeMB megabytes and returns its path.
func createModelFile(t *testing.T, dir, name string, sizeMB int) string {
	t.Helper()
	if sizeMB <= 0 {
		sizeMB = 1
	}
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()
	// write sizeMB megabytes (use 1MiB blocks)
	block := make([]byte, 1024*1024)
	for i := 0; i < sizeMB; i++ {
		if _, err := f.Write(block); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return p
}

// fakeAdapter is a lightweight in-memory adapter used for tests.
type fakeAdapter struct {
	loadErr error
	// failFor fails Load only for model files with these base names.
	failFor map[string]error
	// gate, when set, blocks Load until closed.
	gate   chan struct{}
	tokens []string
	genErr error
	// hold, when set, blocks Generate after the first token until closed.
	hold chan struct{}

	loads  atomic.Int32
	closed atomic.Int32
	mu     sync.Mutex
	paths  []string
}

func (f *fakeAdapter) Load(modelPath string) (LoadedModel, error) {
	f.loads.Add(1)
	f.mu.Lock()
	f.paths = append(f.paths, modelPath)
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if err := f.failFor[filepath.Base(modelPath)]; err != nil {
		return nil, err
	}
	return &fakeModel{f: f}, nil
}

type fakeModel struct {
	f *fakeAdapter
}

func (s *fakeModel) Generate(ctx context.Context, prompt string, p inference.Params, onToken func(string) error) (FinalResult, error) {
	if s.f.genErr != nil {
		return FinalResult{}, s.f.genErr
	}
	for i, tok := range s.f.tokens {
		if err := onToken(tok); err != nil {
			return FinalResult{}, err
		}
		if i == 0 && s.f.hold != nil {
			select {
			case <-s.f.hold:
			case <-ctx.Done():
				return FinalResult{}, ctx.Err()
			}
		}
	}
	n := len(s.f.tokens)
	return FinalResult{Usage: types.Usage{CompletionTokens: n, TotalTokens: n}}, nil
}

func (s *fakeModel) Close() error {
	s.f.closed.Add(1)
	return nil
}

// newTestManager registers one 1MB model file per id.
func newTestManager(t *testing.T, fa *fakeAdapter, cfg ManagerConfig, ids ...string) *Manager {
	t.Helper()
	dir := t.TempDir()
	for _, id := range ids {
		cfg.Registry = append(cfg.Registry, types.Model{ID: id, Name: id, Path: createModelFile(t, dir, id+".gguf", 1)})
	}
	cfg.Adapter = fa
	m := NewWithConfig(cfg)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// collect drains s and returns the joined fragments.
func collect(t *testing.T, s *inference.Stream) (string, error) {
	t.Helper()
	var out string
	for {
		frag, err := s.Next(testCtx(t))
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		out += frag
	}
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
