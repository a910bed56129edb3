package internal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNothingToRetry is returned by RetryLast when history holds no user message
var ErrNothingToRetry = errors.New("no user message to retry")

// EntryID identifies an entry shown by a View
type EntryID int

// View renders the conversation. Implementations are called with the panel's
// lock held and must not call back into the panel.
type View interface {
	AddEntry(role Role, text string) EntryID
	UpdateEntry(id EntryID, text string)
	FinalizeEntry(id EntryID, stats TokenStats)
	RemoveEntry(id EntryID)
	ShowError(id EntryID, message string)
	Reset()
}

// Streamer is the coordinator side of the panel
type Streamer interface {
	Start(ctx context.Context, cfg EndpointConfig, messages []Message) *StreamSession
	Stop()
}

// HistoryStore persists the conversation
type HistoryStore interface {
	Save(ctx context.Context, conv *Conversation) error
	Clear(ctx context.Context, id string) error
}

// pendingReply is the in-progress assistant entry of one stream session
type pendingReply struct {
	sessionID string
	entry     EntryID
	text      strings.Builder
	finished  bool
	done      chan struct{}
}

// Panel keeps the chat history, starts and stops streams and renders the
// growing reply as chunk events arrive.
type Panel struct {
	streamer Streamer
	view     View
	store    HistoryStore

	mu        sync.Mutex
	cfg       EndpointConfig
	conv      *Conversation
	current   *pendingReply
	lastEntry EntryID
	lastRole  Role
}

// NewPanel creates a panel. conv may be nil to start an empty conversation;
// store may be nil to keep history in memory only.
func NewPanel(streamer Streamer, view View, store HistoryStore, cfg EndpointConfig, conv *Conversation) *Panel {
	if conv == nil {
		now := time.Now()
		conv = &Conversation{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	}
	return &Panel{
		streamer: streamer,
		view:     view,
		store:    store,
		cfg:      cfg,
		conv:     conv,
	}
}

// SetConfig replaces the endpoint configuration used by the next stream
func (p *Panel) SetConfig(cfg EndpointConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
}

// History returns a copy of the chat history
func (p *Panel) History() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, len(p.conv.Messages))
	copy(out, p.conv.Messages)
	return out
}

// Conversation returns a snapshot of the conversation
func (p *Panel) Conversation() Conversation {
	p.mu.Lock()
	defer p.mu.Unlock()
	snapshot := *p.conv
	snapshot.Messages = append([]Message(nil), p.conv.Messages...)
	return snapshot
}

// Busy reports whether a reply is streaming
func (p *Panel) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

// Render redraws the view from history
func (p *Panel) Render() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view.Reset()
	p.lastEntry, p.lastRole = 0, ""
	for _, msg := range p.conv.Messages {
		if msg.Role == RoleUser || msg.Role == RoleAssistant {
			p.addEntryLocked(msg.Role, msg.Content)
		}
	}
}

// SendMessage appends the user's message, optionally grounded in page, and
// streams the reply. Empty input is ignored.
func (p *Panel) SendMessage(ctx context.Context, userText string, page *PageContext) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.abandonLocked()
	p.addEntryLocked(RoleUser, userText)

	full := userText
	if page != nil && page.Markdown != "" {
		full = BuildPagePrompt(userText, page.Markdown)
	}
	p.conv.Messages = append(p.conv.Messages, Message{Role: RoleUser, Content: full})
	p.startLocked(ctx, full)
	p.persistLocked()
}

// RetryLast resends the most recent user message, dropping a trailing
// assistant reply from history and view first
func (p *Panel) RetryLast(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.abandonLocked()

	lastUser := ""
	found := false
	for i := len(p.conv.Messages) - 1; i >= 0; i-- {
		if p.conv.Messages[i].Role == RoleUser {
			lastUser = p.conv.Messages[i].Content
			found = true
			break
		}
	}
	if !found {
		return ErrNothingToRetry
	}

	if n := len(p.conv.Messages); n > 0 && p.conv.Messages[n-1].Role == RoleAssistant {
		p.conv.Messages = p.conv.Messages[:n-1]
		if p.lastEntry != 0 && p.lastRole == RoleAssistant {
			p.view.RemoveEntry(p.lastEntry)
			p.lastEntry, p.lastRole = 0, ""
		}
	}

	p.startLocked(ctx, lastUser)
	p.persistLocked()
	return nil
}

// Stop cancels the stream and finalizes the reply from the text received so
// far, without waiting for the coordinator
func (p *Panel) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streamer.Stop()
	p.abandonLocked()
}

// Clear stops any stream and forgets the whole conversation
func (p *Panel) Clear(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		p.current.finished = true
		p.current = nil
	}
	p.streamer.Stop()

	p.conv.Messages = nil
	p.conv.Stats = TokenStats{}
	p.conv.UpdatedAt = time.Now()
	p.view.Reset()
	p.lastEntry, p.lastRole = 0, ""

	if p.store == nil {
		return nil
	}
	return p.store.Clear(ctx, p.conv.ID)
}

// Wait blocks until the current reply's listener has detached
func (p *Panel) Wait(ctx context.Context) error {
	p.mu.Lock()
	reply := p.current
	p.mu.Unlock()
	if reply == nil {
		return nil
	}
	select {
	case <-reply.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Panel) startLocked(ctx context.Context, userText string) {
	messages := RequestMessages(p.conv.Messages)
	if len(messages) == 0 || messages[len(messages)-1].Content != userText {
		messages = append(messages, Message{Role: RoleUser, Content: userText})
	}

	entry := p.addEntryLocked(RoleAssistant, "")
	session := p.streamer.Start(ctx, p.cfg, messages)
	reply := &pendingReply{
		sessionID: session.ID,
		entry:     entry,
		done:      make(chan struct{}),
	}
	p.current = reply
	go p.listen(session, reply)
}

func (p *Panel) listen(session *StreamSession, reply *pendingReply) {
	defer close(reply.done)
	for ev := range session.Events() {
		if !p.handle(reply, ev) {
			return
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !reply.finished && p.current == reply {
		LogDebug("stream %s ended without terminal event", reply.sessionID)
		p.abandonLocked()
	}
}

// handle applies one event; it returns false once the listener should detach
func (p *Panel) handle(reply *pendingReply, ev Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if reply.finished || p.current != reply {
		return false
	}
	if ev.SessionID != reply.sessionID {
		LogDebug("ignoring event for session %s", ev.SessionID)
		return true
	}

	switch ev.Type {
	case EventChunk:
		reply.text.WriteString(ev.Text)
		p.view.UpdateEntry(reply.entry, reply.text.String())
		return true
	case EventComplete:
		full := ev.FullResponse
		if full == "" {
			full = reply.text.String()
		}
		p.view.UpdateEntry(reply.entry, full)
		p.view.FinalizeEntry(reply.entry, ev.Stats)
		p.conv.Messages = append(p.conv.Messages, Message{Role: RoleAssistant, Content: full})
		p.conv.Stats = ev.Stats
		p.detachLocked(reply)
		p.persistLocked()
		return false
	case EventError:
		p.view.ShowError(reply.entry, "Error: "+ev.Err)
		p.detachLocked(reply)
		return false
	default:
		LogWarn("ignoring unknown event type %q", ev.Type)
		return true
	}
}

// abandonLocked finalizes the current reply from the text received so far
func (p *Panel) abandonLocked() {
	reply := p.current
	if reply == nil {
		return
	}
	p.detachLocked(reply)

	text := reply.text.String()
	if text == "" {
		p.view.RemoveEntry(reply.entry)
		if p.lastEntry == reply.entry {
			p.lastEntry, p.lastRole = 0, ""
		}
		return
	}
	p.view.FinalizeEntry(reply.entry, TokenStats{})
	p.conv.Messages = append(p.conv.Messages, Message{Role: RoleAssistant, Content: text})
	p.persistLocked()
}

func (p *Panel) detachLocked(reply *pendingReply) {
	reply.finished = true
	if p.current == reply {
		p.current = nil
	}
}

func (p *Panel) addEntryLocked(role Role, text string) EntryID {
	id := p.view.AddEntry(role, text)
	p.lastEntry, p.lastRole = id, role
	return id
}

func (p *Panel) persistLocked() {
	p.conv.UpdatedAt = time.Now()
	if p.store == nil {
		return
	}
	if err := p.store.Save(context.Background(), p.conv); err != nil {
		LogWarn("failed to save chat history: %v", err)
	}
}
