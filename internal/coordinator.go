package internal

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	defaultEventBuffer = 64
	readBlockSize      = 4096
)

// StreamSession is one in-flight completion stream.
// Its event channel is closed after the terminal event, or right away on cancellation.
type StreamSession struct {
	ID     string
	ctx    context.Context
	cancel context.CancelFunc
	events chan Event
	done   chan struct{}
}

// Events returns the channel the session's events are relayed on
func (s *StreamSession) Events() <-chan Event {
	return s.events
}

// Done is closed once the session's worker has exited
func (s *StreamSession) Done() <-chan struct{} {
	return s.done
}

func (s *StreamSession) cancelled() bool {
	return s.ctx.Err() != nil
}

// emit delivers ev unless the session was cancelled
func (s *StreamSession) emit(ev Event) bool {
	if s.cancelled() {
		return false
	}
	select {
	case s.events <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *StreamSession) fail(err error) {
	s.emit(Event{SessionID: s.ID, Type: EventError, Err: err.Error()})
}

// Coordinator owns at most one active stream. Starting a new stream while one
// is active cancels the old one first.
type Coordinator struct {
	client     *http.Client
	bufferSize int

	mu     sync.Mutex
	active *StreamSession
}

// NewCoordinator creates a coordinator. A nil client means an http.Client
// without timeout; a hung stream only ends when it is stopped.
func NewCoordinator(client *http.Client) *Coordinator {
	if client == nil {
		client = &http.Client{}
	}
	return &Coordinator{
		client:     client,
		bufferSize: defaultEventBuffer,
	}
}

// Start issues the completion request and relays its events on the returned session
func (c *Coordinator) Start(ctx context.Context, cfg EndpointConfig, messages []Message) *StreamSession {
	sessCtx, cancel := context.WithCancel(ctx)
	s := &StreamSession{
		ID:     uuid.NewString(),
		ctx:    sessCtx,
		cancel: cancel,
		events: make(chan Event, c.bufferSize),
		done:   make(chan struct{}),
	}

	c.mu.Lock()
	prev := c.active
	c.active = s
	c.mu.Unlock()

	if prev != nil {
		LogDebug("replacing active stream %s with %s", prev.ID, s.ID)
		prev.cancel()
	}

	go c.run(s, cfg, messages)
	return s
}

// Stop cancels the active stream, if any. No event is emitted for the cancellation.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	s := c.active
	c.active = nil
	c.mu.Unlock()

	if s != nil {
		LogDebug("stopping stream %s", s.ID)
		s.cancel()
	}
}

// StopSession cancels the active stream only if its id is id. It reports
// whether a stream was stopped.
func (c *Coordinator) StopSession(id string) bool {
	c.mu.Lock()
	s := c.active
	if s == nil || id == "" || s.ID != id {
		c.mu.Unlock()
		return false
	}
	c.active = nil
	c.mu.Unlock()

	LogDebug("stopping stream %s", s.ID)
	s.cancel()
	return true
}

// ActiveID returns the id of the active stream, or "" when idle
func (c *Coordinator) ActiveID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return ""
	}
	return c.active.ID
}

// release clears the active slot only if it still belongs to s
func (c *Coordinator) release(s *StreamSession) {
	c.mu.Lock()
	if c.active == s {
		c.active = nil
	}
	c.mu.Unlock()
	s.cancel()
}

func (c *Coordinator) run(s *StreamSession, cfg EndpointConfig, messages []Message) {
	defer close(s.done)
	defer close(s.events)
	defer c.release(s)

	req, err := NewCompletionRequest(s.ctx, cfg, messages)
	if err != nil {
		s.fail(err)
		return
	}

	LogDebug("stream %s: POST %s (%d messages)", s.ID, req.URL, len(messages))
	resp, err := c.client.Do(req)
	if err != nil {
		if s.cancelled() {
			LogDebug("stream %s: %v before response", s.ID, ErrCancelled)
			return
		}
		s.fail(&TransportError{URL: req.URL.String(), Err: err})
		return
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		if s.cancelled() {
			return
		}
		LogWarn("stream %s: %v", s.ID, err)
		s.fail(err)
		return
	}

	c.decode(s, resp.Body)
}

func (c *Coordinator) decode(s *StreamSession, body io.Reader) {
	dec := NewSSEDecoder(s.ID)
	buf := make([]byte, readBlockSize)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			for _, ev := range dec.Feed(buf[:n]) {
				if !s.emit(ev) {
					dec.Cancel()
					return
				}
			}
			if dec.State() == StateDone {
				LogDebug("stream %s: [DONE] received", s.ID)
				return
			}
		}
		if err == nil {
			continue
		}

		if s.cancelled() {
			dec.Cancel()
			LogDebug("stream %s: %v after %d bytes of text", s.ID, ErrCancelled, len(dec.Response()))
			return
		}
		if errors.Is(err, io.EOF) {
			for _, ev := range dec.Close() {
				s.emit(ev)
			}
			return
		}
		s.fail(&TransportError{Err: err})
		return
	}
}

// checkStatus turns a non-2xx response into a ProtocolError carrying the body
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		LogDebug("failed to read error body: %v", err)
	}
	return &ProtocolError{
		StatusCode: resp.StatusCode,
		StatusText: statusText(resp),
		Body:       string(body),
	}
}

func statusText(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if text := strings.TrimPrefix(resp.Status, code+" "); text != resp.Status && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
