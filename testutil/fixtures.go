package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// SampleStream is a complete chat completions event stream answering "Hello world"
const SampleStream = "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\" world\"}}]}\n\n" +
	"data: {\"choices\":[],\"usage\":{\"prompt_tokens\":5,\"completion_tokens\":2,\"total_tokens\":7}}\n\n" +
	"data: [DONE]\n\n"

// SamplePage is a small HTML document used for page context tests
const SamplePage = `<!DOCTYPE html>
<html>
<head><title>Release Notes</title></head>
<body>
<h1>Version 2.0</h1>
<p>Adds <strong>streaming</strong> replies.</p>
<ul><li>Faster startup</li><li>Smaller binary</li></ul>
</body>
</html>`

// CreateSettingsFixture writes a config.yaml into dir
func CreateSettingsFixture(t *testing.T, dir, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("Failed to create settings directory: %v", err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write settings: %v", err)
	}
	return path
}

// CreatePageFixture writes an HTML file and returns its path
func CreatePageFixture(t *testing.T, dir, html string) string {
	t.Helper()
	path := filepath.Join(dir, "page.html")
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		t.Fatalf("Failed to write page: %v", err)
	}
	return path
}

// CompletionServer is a fake OpenAI-compatible endpoint
type CompletionServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []RecordedRequest
}

// RecordedRequest is a request received by a CompletionServer
type RecordedRequest struct {
	Path          string
	Authorization string
	Body          string
}

// NewCompletionServer serves stream on /v1/chat/completions with the given
// status, and a fixed model list on /v1/models
func NewCompletionServer(t *testing.T, status int, stream string) *CompletionServer {
	t.Helper()
	cs := &CompletionServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		cs.record(r)
		if status == http.StatusOK {
			w.Header().Set("Content-Type", "text/event-stream")
		}
		w.WriteHeader(status)
		fmt.Fprint(w, stream)
	})
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		cs.record(r)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[{"id":"granite4:3b"},{"id":"llama3"}]}`)
	})
	cs.Server = httptest.NewServer(mux)
	t.Cleanup(cs.Close)
	return cs
}

func (cs *CompletionServer) record(r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.requests = append(cs.requests, RecordedRequest{
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		Body:          string(body),
	})
}

// Requests returns the requests received so far
func (cs *CompletionServer) Requests() []RecordedRequest {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]RecordedRequest(nil), cs.requests...)
}
