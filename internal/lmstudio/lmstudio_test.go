package lmstudio_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/signalnine/mcpbench/internal/lmstudio"
)

type fakeStudio struct {
	mu       sync.Mutex
	unloaded []string
	loadReq  map[string]any
	loadCode int
}

func (f *fakeStudio) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v0/models", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"id":"qwen3-8b","type":"llm","state":"loaded","capabilities":["tool_use"]},
			{"id":"nomic-embed","type":"embeddings","state":"not-loaded"},
			{"id":"gemma-3","type":"llm","state":"not-loaded"}]}`))
	})
	mux.HandleFunc("GET /api/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[
			{"key":"qwen3-8b","loaded_instances":[{"instance_id":"qwen3-8b:1"},{"id":"qwen3-8b:2"}]},
			{"key":"gemma-3","loaded_instances":[{"id":"gemma-3"}]},
			{"key":"idle","loaded_instances":[]}]}`))
	})
	mux.HandleFunc("POST /api/v1/models/unload", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.unloaded = append(f.unloaded, body["instance_id"])
		f.mu.Unlock()
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("POST /api/v1/models/load", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		json.NewDecoder(r.Body).Decode(&f.loadReq)
		code := f.loadCode
		f.mu.Unlock()
		if code != 0 {
			http.Error(w, "out of memory", code)
			return
		}
		w.Write([]byte(`{"instance_id":"qwen3-8b:3","load_config":{"context_length":8192}}`))
	})
	return mux
}

func newClient(t *testing.T, f *fakeStudio) *lmstudio.Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return lmstudio.NewClient(strings.TrimPrefix(srv.URL, "http://"))
}

func TestListModels(t *testing.T) {
	c := newClient(t, &fakeStudio{})
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(models) != 2 {
		t.Fatalf("got %d models, want 2 llms", len(models))
	}
	if !models[0].ToolUse() || models[1].ToolUse() {
		t.Errorf("tool_use: got %v/%v, want true/false", models[0].ToolUse(), models[1].ToolUse())
	}
}

func TestLoadModelUnloadsExisting(t *testing.T) {
	f := &fakeStudio{}
	c := newClient(t, f)
	inst, err := c.LoadModel(context.Background(), "qwen3-8b")
	if err != nil {
		t.Fatal(err)
	}
	if inst.ID != "qwen3-8b:3" || inst.ContextLength != 8192 {
		t.Errorf("instance: got %+v", inst)
	}
	if !slices.Equal(f.unloaded, []string{"qwen3-8b:1", "qwen3-8b:2"}) {
		t.Errorf("unloaded: got %v", f.unloaded)
	}
	if f.loadReq["context_length"] != float64(8192) || f.loadReq["flash_attention"] != true {
		t.Errorf("load request: got %v", f.loadReq)
	}
}

func TestLoadModelFailure(t *testing.T) {
	f := &fakeStudio{loadCode: http.StatusInternalServerError}
	c := newClient(t, f)
	if _, err := c.LoadModel(context.Background(), "qwen3-8b"); err == nil {
		t.Fatal("expected load error")
	}
}

func TestUnloadAll(t *testing.T) {
	f := &fakeStudio{}
	c := newClient(t, f)
	if n := c.UnloadAll(context.Background()); n != 3 {
		t.Errorf("unloaded %d, want 3", n)
	}
}

func TestWaitReady(t *testing.T) {
	c := newClient(t, &fakeStudio{})
	if err := c.WaitReady(context.Background(), 2*time.Second); err != nil {
		t.Errorf("WaitReady: %v", err)
	}
}

func TestInferenceURL(t *testing.T) {
	if got := lmstudio.InferenceURL("box:1234"); got != "http://box:1234/v1" {
		t.Errorf("got %q", got)
	}
	if got := lmstudio.InferenceURL(""); got != "http://localhost:1234/v1" {
		t.Errorf("got %q", got)
	}
}
