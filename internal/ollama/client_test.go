package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_New(t *testing.T) {
	c := New("", time.Second)
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("expected default base URL, got %q", c.BaseURL())
	}
	c = New("http://example:11434/", time.Second)
	if c.BaseURL() != "http://example:11434" {
		t.Errorf("expected trailing slash trimmed, got %q", c.BaseURL())
	}
}

func TestClient_Probe_AnyStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL, time.Second)
	if !c.Probe(context.Background()) {
		t.Error("expected probe to succeed on any HTTP response")
	}
}

func TestClient_Probe_Refused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	c := New("http://"+addr, 500*time.Millisecond)
	if c.Probe(context.Background()) {
		t.Error("expected probe to fail against a closed port")
	}
}

func TestClient_Probe_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := New(server.URL, 50*time.Millisecond)
	if c.Probe(context.Background()) {
		t.Error("expected probe to fail after the connect timeout")
	}
}

func TestClient_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Model != "llama3" {
			t.Errorf("expected model 'llama3', got %q", req.Model)
		}
		if req.Stream {
			t.Error("expected stream=false")
		}
		if req.Prompt != "Plural of gat in Catalan:" {
			t.Errorf("unexpected prompt %q", req.Prompt)
		}
		if req.Options["temperature"] != 0.2 || req.Options["num_ctx"] != float64(4096) {
			t.Errorf("options not passed through: %v", req.Options)
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "  Plural: gats\n"})
	}))
	defer server.Close()

	c := New(server.URL, time.Second)
	got, err := c.Generate(context.Background(), "llama3", "Plural of gat in Catalan:", map[string]any{"temperature": 0.2, "num_ctx": 4096})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Plural: gats" {
		t.Errorf("expected trimmed response, got %q", got)
	}
}

func TestClient_Generate_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model 'missing' not found"}`)
	}))
	defer server.Close()

	c := New(server.URL, time.Second)
	_, err := c.Generate(context.Background(), "missing", "hi", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsGenerationError(err) {
		t.Errorf("expected GenerationError, got %T", err)
	}
	if want := "generate with missing: status 404 Not Found: model 'missing' not found"; err.Error() != want {
		t.Errorf("unexpected message:\n got %q\nwant %q", err.Error(), want)
	}
}

func TestClient_Generate_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	}))
	defer server.Close()

	c := New(server.URL, time.Second)
	if _, err := c.Generate(context.Background(), "m", "p", nil); !IsGenerationError(err) {
		t.Errorf("expected GenerationError, got %v", err)
	}
}

func TestClient_Generate_RequestTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := New(server.URL, time.Second, WithRequestTimeout(50*time.Millisecond))
	if _, err := c.Generate(context.Background(), "m", "p", nil); !IsGenerationError(err) {
		t.Errorf("expected GenerationError on timeout, got %v", err)
	}
}

func pullServer(t *testing.T, events ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pull" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req pullRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "llama3" || !req.Stream {
			t.Errorf("unexpected pull request %+v", req)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, e := range events {
			fmt.Fprintln(w, e)
		}
	}))
}

func TestClient_EnsureModel_Progress(t *testing.T) {
	server := pullServer(t,
		`{"status":"pulling manifest"}`,
		`{"status":"downloading","digest":"sha256:abc","total":200,"completed":50}`,
		`{"status":"downloading","digest":"sha256:abc","total":200,"completed":200}`,
		`{"status":"success"}`,
	)
	defer server.Close()

	var got []PullProgress
	c := New(server.URL, time.Second)
	if err := c.EnsureModel(context.Background(), "llama3", func(p PullProgress) { got = append(got, p) }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 progress events, got %d", len(got))
	}
	if _, ok := got[0].Percent(); ok {
		t.Error("expected no percentage without a total")
	}
	if pct, ok := got[1].Percent(); !ok || pct != 25 {
		t.Errorf("expected 25%%, got %d (%v)", pct, ok)
	}
	if got[3].Status != "success" {
		t.Errorf("expected final status 'success', got %q", got[3].Status)
	}
}

func TestClient_EnsureModel_StreamError(t *testing.T) {
	server := pullServer(t,
		`{"status":"pulling manifest"}`,
		`{"error":"pull model manifest: file does not exist"}`,
	)
	defer server.Close()

	c := New(server.URL, time.Second)
	err := c.EnsureModel(context.Background(), "llama3", nil)
	if !IsModelUnavailable(err) {
		t.Fatalf("expected ModelUnavailableError, got %v", err)
	}
}

func TestClient_EnsureModel_Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"disk full"}`)
	}))
	defer server.Close()

	c := New(server.URL, time.Second)
	if err := c.EnsureModel(context.Background(), "llama3", nil); !IsModelUnavailable(err) {
		t.Fatalf("expected ModelUnavailableError, got %v", err)
	}
}

func TestClient_EnsureModel_Unreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	c := New("http://"+addr, time.Second)
	if err := c.EnsureModel(context.Background(), "llama3", nil); !IsModelUnavailable(err) {
		t.Fatalf("expected ModelUnavailableError, got %v", err)
	}
}

func TestClient_Pull_StopEarly(t *testing.T) {
	server := pullServer(t,
		`{"status":"one"}`,
		`{"status":"two"}`,
		`{"status":"three"}`,
	)
	defer server.Close()

	c := New(server.URL, time.Second)
	n := 0
	for p, err := range c.Pull(context.Background(), "llama3") {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		n++
		if p.Status == "two" {
			break
		}
	}
	if n != 2 {
		t.Errorf("expected iteration to stop after 2 events, got %d", n)
	}
}
