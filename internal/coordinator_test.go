package internal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/pagechat/testutil"
)

// collect drains a session's events until the channel is closed
func collect(t *testing.T, s *StreamSession) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("session %s did not finish; got %+v", s.ID, events)
		}
	}
}

// newHangingServer writes one chunk and then holds the stream open until the client goes away
func newHangingServer(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, SSEData(DeltaPayload("first")))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})
	return server
}

func TestCoordinator_StreamsChunksThenComplete(t *testing.T) {
	server := testutil.NewCompletionServer(t, http.StatusOK, testutil.SampleStream)
	c := NewCoordinator(server.Client())

	s := c.Start(context.Background(), EndpointConfig{BaseURL: server.URL, ModelName: "m"}, []Message{{Role: RoleUser, Content: "hi"}})
	events := collect(t, s)

	if len(events) != 3 {
		t.Fatalf("events = %+v", events)
	}
	for _, ev := range events {
		if ev.SessionID != s.ID {
			t.Errorf("event carries session %q, want %q", ev.SessionID, s.ID)
		}
	}
	if events[0].Text != "Hello" || events[1].Text != " world" {
		t.Errorf("chunks = %q, %q", events[0].Text, events[1].Text)
	}
	final := events[2]
	if final.Type != EventComplete || final.FullResponse != "Hello world" || final.Stats.TotalTokens != 7 {
		t.Errorf("complete event = %+v", final)
	}

	<-s.Done()
	if id := c.ActiveID(); id != "" {
		t.Errorf("ActiveID() = %q after completion, want empty", id)
	}

	reqs := server.Requests()
	if len(reqs) != 1 || !strings.Contains(reqs[0].Body, `"stream":true`) {
		t.Errorf("requests = %+v", reqs)
	}
}

func TestCoordinator_HTTPError(t *testing.T) {
	server := testutil.NewCompletionServer(t, http.StatusNotFound, `{"error":"model 'x' not found"}`)
	c := NewCoordinator(server.Client())

	events := collect(t, c.Start(context.Background(), EndpointConfig{BaseURL: server.URL}, nil))

	if len(events) != 1 || events[0].Type != EventError {
		t.Fatalf("events = %+v", events)
	}
	want := `404 Not Found - {"error":"model 'x' not found"}`
	if events[0].Err != want {
		t.Errorf("Err = %q, want %q", events[0].Err, want)
	}
}

func TestCoordinator_TransportError(t *testing.T) {
	c := NewCoordinator(&http.Client{Timeout: 2 * time.Second})

	events := collect(t, c.Start(context.Background(), EndpointConfig{BaseURL: "http://127.0.0.1:1"}, nil))

	if len(events) != 1 || events[0].Type != EventError || events[0].Err == "" {
		t.Fatalf("events = %+v", events)
	}
}

func TestCoordinator_StopEmitsNothing(t *testing.T) {
	server := newHangingServer(t)
	c := NewCoordinator(server.Client())

	s := c.Start(context.Background(), EndpointConfig{BaseURL: server.URL}, nil)

	select {
	case ev := <-s.Events():
		if ev.Type != EventChunk || ev.Text != "first" {
			t.Fatalf("first event = %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no chunk received")
	}

	c.Stop()
	if rest := collect(t, s); len(rest) != 0 {
		t.Errorf("events after Stop = %+v, want none", rest)
	}
	if id := c.ActiveID(); id != "" {
		t.Errorf("ActiveID() = %q after Stop", id)
	}
}

func TestCoordinator_StopWhenIdle(t *testing.T) {
	c := NewCoordinator(nil)
	c.Stop()
	if c.ActiveID() != "" {
		t.Error("idle coordinator should have no active stream")
	}
}

func TestCoordinator_StopSession(t *testing.T) {
	server := newHangingServer(t)
	c := NewCoordinator(server.Client())

	s := c.Start(context.Background(), EndpointConfig{BaseURL: server.URL}, nil)

	if c.StopSession("") || c.StopSession("someone-else") {
		t.Fatal("StopSession() stopped a stream it does not own")
	}
	if c.ActiveID() != s.ID {
		t.Fatalf("ActiveID() = %q, want %q", c.ActiveID(), s.ID)
	}

	if !c.StopSession(s.ID) {
		t.Fatal("StopSession() should stop the matching stream")
	}
	for _, ev := range collect(t, s) {
		if ev.Type != EventChunk {
			t.Errorf("terminal event after StopSession: %+v", ev)
		}
	}
	if c.ActiveID() != "" || c.StopSession(s.ID) {
		t.Error("stream should no longer be active")
	}
}

func TestCoordinator_StartReplacesActive(t *testing.T) {
	hanging := newHangingServer(t)
	finishing := testutil.NewCompletionServer(t, http.StatusOK, testutil.SampleStream)
	c := NewCoordinator(&http.Client{})

	first := c.Start(context.Background(), EndpointConfig{BaseURL: hanging.URL}, nil)
	select {
	case <-first.Events():
	case <-time.After(5 * time.Second):
		t.Fatal("first stream never produced a chunk")
	}

	second := c.Start(context.Background(), EndpointConfig{BaseURL: finishing.URL}, nil)
	if first.ID == second.ID {
		t.Fatal("sessions should have distinct ids")
	}

	for _, ev := range collect(t, first) {
		if ev.IsTerminal() {
			t.Errorf("replaced session emitted terminal event %+v", ev)
		}
	}

	events := collect(t, second)
	if len(events) == 0 || events[len(events)-1].Type != EventComplete {
		t.Fatalf("second session events = %+v", events)
	}
	<-second.Done()
	if id := c.ActiveID(); id != "" {
		t.Errorf("ActiveID() = %q, want empty", id)
	}
}

func TestCoordinator_ParentContextCancel(t *testing.T) {
	server := newHangingServer(t)
	c := NewCoordinator(server.Client())
	ctx, cancel := context.WithCancel(context.Background())

	s := c.Start(ctx, EndpointConfig{BaseURL: server.URL}, nil)
	<-s.Events()
	cancel()

	if rest := collect(t, s); len(rest) != 0 {
		t.Errorf("events after cancel = %+v", rest)
	}
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		resp *http.Response
		want string
	}{
		{&http.Response{StatusCode: 404, Status: "404 Not Found"}, "Not Found"},
		{&http.Response{StatusCode: 500, Status: "500 Oops"}, "Oops"},
		{&http.Response{StatusCode: 503, Status: ""}, "Service Unavailable"},
		{&http.Response{StatusCode: 418, Status: "418"}, "I'm a teapot"},
	}
	for _, tt := range tests {
		if got := statusText(tt.resp); got != tt.want {
			t.Errorf("statusText(%q) = %q, want %q", tt.resp.Status, got, tt.want)
		}
	}
}
