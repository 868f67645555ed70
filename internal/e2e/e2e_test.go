package e2e

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"llamachat/internal/manager"
	"llamachat/pkg/types"
)

const chatBody = `{"agent_id":"bot","instruction":"You are helpful.","history":[{"role":"User","content":"Hello"}]}`

func TestE2E_CompleteLoadsOnDemand(t *testing.T) {
	dir, models := createTempModelsDir(t, "alpha.gguf")
	a := &scriptedAdapter{tokens: []string{"Hi", " there", "User:"}}
	srv, mgr := newServer(t, dir, manager.ManagerConfig{DefaultModel: models[0]}, a)

	code, body := post(t, srv.URL+"/v1/complete", chatBody)
	if code != http.StatusOK {
		t.Fatalf("status=%d body=%s", code, body)
	}
	var resp types.CompleteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Message.Content != "Hi there" || resp.Message.Model != "alpha.gguf" || resp.Message.MessageID == "" {
		t.Fatalf("unexpected message: %+v", resp.Message)
	}
	if !mgr.IsLoaded("alpha.gguf") || a.loads.Load() != 1 {
		t.Fatalf("model should be resident after one load (loads=%d)", a.loads.Load())
	}

	var st types.StatusResponse
	getJSON(t, srv.URL+"/status", &st)
	if st.LoadsTotal != 1 || len(st.Instances) != 1 || st.Instances[0].State != "ready" {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestE2E_UnknownModel404(t *testing.T) {
	dir, _ := createTempModelsDir(t, "alpha.gguf")
	srv, _ := newServer(t, dir, manager.ManagerConfig{}, &scriptedAdapter{})
	code, _ := post(t, srv.URL+"/v1/complete", `{"instruction":"x","model":"ghost.gguf"}`)
	if code != http.StatusNotFound {
		t.Fatalf("status=%d", code)
	}
}

// TestE2E_Backpressure429 verifies we return 429 Too Many Requests when the
// queue is full and the wait timeout elapses.
func TestE2E_Backpressure429(t *testing.T) {
	dir, models := createTempModelsDir(t, "alpha.gguf")
	gate := make(chan struct{})
	a := &scriptedAdapter{tokens: []string{"ok"}, gate: gate}
	srv, mgr := newServer(t, dir, manager.ManagerConfig{
		DefaultModel:  models[0],
		MaxQueueDepth: 1,
		MaxWait:       20 * time.Millisecond,
	}, a)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		post(t, srv.URL+"/v1/complete", chatBody)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for {
		st := mgr.Status()
		if len(st.Instances) == 1 && st.Instances[0].Inflight == 1 {
			break
		}
		if time.Now().After(deadline) {
			close(gate)
			t.Fatalf("first request never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	code, _ := post(t, srv.URL+"/v1/complete", chatBody)
	close(gate)
	wg.Wait()
	if code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
}

func TestE2E_StreamNDJSON(t *testing.T) {
	dir, models := createTempModelsDir(t, "alpha.gguf")
	srv, _ := newServer(t, dir, manager.ManagerConfig{DefaultModel: models[0]}, &scriptedAdapter{tokens: []string{"A", "B"}})

	code, body := post(t, srv.URL+"/v1/complete/stream", `{"instruction":"Spell AB."}`)
	if code != http.StatusOK {
		t.Fatalf("status=%d", code)
	}
	var events []types.StreamEvent
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		var ev types.StreamEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		events = append(events, ev)
	}
	if len(events) != 3 || events[0].Message.Content != "A" || !events[2].Done || events[2].Message.Content != "AB" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestE2E_UnloadThenReload(t *testing.T) {
	dir, models := createTempModelsDir(t, "alpha.gguf")
	a := &scriptedAdapter{tokens: []string{"x"}}
	srv, mgr := newServer(t, dir, manager.ManagerConfig{DefaultModel: models[0]}, a)

	if code, _ := post(t, srv.URL+"/v1/complete", chatBody); code != http.StatusOK {
		t.Fatalf("first complete: %d", code)
	}
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/models/alpha.gguf", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent || mgr.IsLoaded("alpha.gguf") {
		t.Fatalf("unload status=%d loaded=%v", resp.StatusCode, mgr.IsLoaded("alpha.gguf"))
	}
	if code, _ := post(t, srv.URL+"/v1/complete", chatBody); code != http.StatusOK {
		t.Fatalf("second complete: %d", code)
	}
	if a.loads.Load() != 2 {
		t.Fatalf("expected reload, loads=%d", a.loads.Load())
	}
}

func TestE2E_BudgetEviction(t *testing.T) {
	dir, _ := createTempModelsDir(t, "alpha.gguf", "beta.gguf")
	srv, mgr := newServer(t, dir, manager.ManagerConfig{BudgetMB: 1}, &scriptedAdapter{tokens: []string{"x"}})

	for _, m := range []string{"alpha.gguf", "beta.gguf"} {
		if code, body := post(t, srv.URL+"/v1/complete", `{"instruction":"x","model":"`+m+`"}`); code != http.StatusOK {
			t.Fatalf("%s: status=%d body=%s", m, code, body)
		}
	}
	if mgr.IsLoaded("alpha.gguf") || !mgr.IsLoaded("beta.gguf") {
		t.Fatalf("alpha should have been evicted for beta")
	}
	var st types.StatusResponse
	getJSON(t, srv.URL+"/status", &st)
	if st.EvictionsTotal != 1 || st.UsedMB != 1 {
		t.Fatalf("unexpected status: %+v", st)
	}
}
