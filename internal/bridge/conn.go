package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/iksnae/pagechat/internal"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 8 << 20
	outboxSize     = 64
)

// panelConn is one connected panel. The coordinator is shared with every
// other panel; current is the stream this panel started, and only its events
// are relayed here.
type panelConn struct {
	conn     *websocket.Conn
	coord    *internal.Coordinator
	defaults internal.EndpointConfig
	outbox   chan Reply

	mu      sync.Mutex
	current string
}

func newPanelConn(conn *websocket.Conn, coord *internal.Coordinator, defaults internal.EndpointConfig) *panelConn {
	return &panelConn{
		conn:     conn,
		coord:    coord,
		defaults: defaults,
		outbox:   make(chan Reply, outboxSize),
	}
}

// serve runs the read and write pumps until either side goes away
func (p *panelConn) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return p.readPump(ctx)
	})
	g.Go(func() error {
		return p.writePump(ctx)
	})

	if err := g.Wait(); err != nil {
		internal.LogDebug("bridge: connection ended: %v", err)
	}
	p.coord.StopSession(p.swapCurrent(""))
}

func (p *panelConn) readPump(ctx context.Context) error {
	p.conn.SetReadLimit(maxMessageSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return fmt.Errorf("read failed: %w", err)
			}
			return nil
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			internal.LogWarn("bridge: invalid message: %v", err)
			p.send(ctx, Reply{Action: ActionStreamError, Error: "invalid message: " + err.Error()})
			continue
		}
		p.dispatch(ctx, req)
	}
}

func (p *panelConn) dispatch(ctx context.Context, req Request) {
	switch req.Action {
	case ActionStreamLLM:
		cfg := req.endpoint(p.defaults)
		session := p.coord.Start(ctx, cfg, req.Messages)
		p.setCurrent(session.ID)
		internal.LogDebug("bridge: stream %s started for model %s", session.ID, cfg.ModelName)
		go p.relay(ctx, session)
	case ActionStopStream:
		if !p.coord.StopSession(p.swapCurrent("")) {
			internal.LogDebug("bridge: stopStream with no stream of this panel active")
		}
	default:
		internal.LogWarn("bridge: unknown action %q", req.Action)
		p.send(ctx, Reply{Action: ActionStreamError, Error: fmt.Sprintf("unknown action: %s", req.Action)})
	}
}

// relay forwards a session's events while it is the connection's current stream
func (p *panelConn) relay(ctx context.Context, session *internal.StreamSession) {
	for ev := range session.Events() {
		if !p.isCurrent(ev.SessionID) {
			continue
		}
		if !p.send(ctx, replyFor(ev)) {
			return
		}
	}
}

func (p *panelConn) send(ctx context.Context, reply Reply) bool {
	select {
	case p.outbox <- reply:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *panelConn) writePump(ctx context.Context) error {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = p.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = p.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return nil
		case reply := <-p.outbox:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteJSON(reply); err != nil {
				return fmt.Errorf("write failed: %w", err)
			}
		case <-ticker.C:
			if err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				if errors.Is(err, websocket.ErrCloseSent) {
					return nil
				}
				return fmt.Errorf("ping failed: %w", err)
			}
		}
	}
}

func (p *panelConn) setCurrent(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = id
}

// swapCurrent replaces the current stream id and returns the previous one
func (p *panelConn) swapCurrent(id string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev := p.current
	p.current = id
	return prev
}

func (p *panelConn) isCurrent(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return id != "" && p.current == id
}
