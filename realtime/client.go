package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/deproudfoot/contextboard-server/board"
)

const (
	// DefaultUpdateInterval bounds board_update frequency per client.
	DefaultUpdateInterval = 90 * time.Millisecond
	// DefaultCursorInterval debounces presence cursor broadcasts.
	DefaultCursorInterval = 60 * time.Millisecond

	writeWait = 10 * time.Second
)

// Options configure a sync client for one open board.
type Options struct {
	BoardID int64
	Role    Role
	// Label is shown next to this client's cursor; empty means "Guest".
	Label string

	UpdateInterval time.Duration
	CursorInterval time.Duration

	// OnUpdate receives board states from other collaborators. The client
	// has already filtered its own echoes.
	OnUpdate func(board.Data)
	// OnPresence receives another collaborator's cursor.
	OnPresence func(sender, label string, cursor Cursor)
	// OnRoster receives the full room membership snapshot.
	OnRoster func([]RoomUser)

	Logger *slog.Logger
}

// Client is a headless sync client: one websocket per open board, with
// outbound throttling, presence debounce and echo suppression. Local
// state lives in the caller's editor; the client only moves snapshots.
type Client struct {
	conn   *websocket.Conn
	selfID string
	opts   Options
	log    *slog.Logger

	writeMu sync.Mutex

	updates *throttle
	cursors *throttle

	mu           sync.Mutex
	latestUpdate json.RawMessage
	latestCursor *Cursor
	suppressNext bool

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to a board's realtime endpoint. The credential (session
// cookie or share-link token) travels in the URL/header the caller built.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	// on a rejected handshake the response is set and err is non-nil;
	// the body must be closed either way
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return NewClient(conn, opts), nil
}

// NewClient wraps an established connection; Dial is the usual entry.
func NewClient(conn *websocket.Conn, opts Options) *Client {
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = DefaultUpdateInterval
	}
	if opts.CursorInterval <= 0 {
		opts.CursorInterval = DefaultCursorInterval
	}
	if opts.Label == "" {
		opts.Label = "Guest"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	c := &Client{
		conn:   conn,
		selfID: uuid.NewString(),
		opts:   opts,
		log:    opts.Logger,
		done:   make(chan struct{}),
	}
	c.updates = newThrottle(opts.UpdateInterval, c.sendLatestUpdate)
	c.cursors = newThrottle(opts.CursorInterval, c.sendLatestCursor)
	go c.readLoop()
	return c
}

// ID is this client's sender id, tagged onto every outbound message.
func (c *Client) ID() string { return c.selfID }

// QueueUpdate coalesces a changed board state for broadcast: at most one
// send per update interval, always carrying the latest state. Viewer and
// comment roles never send. The first call after a remote update was
// applied is a no-op, so reactive re-broadcast loops cannot form.
func (c *Client) QueueUpdate(data board.Data) {
	if !c.opts.Role.CanEdit() {
		return
	}
	c.mu.Lock()
	if c.suppressNext {
		c.suppressNext = false
		c.mu.Unlock()
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		c.mu.Unlock()
		c.log.Error("marshal board state", "err", err)
		return
	}
	c.latestUpdate = raw
	c.mu.Unlock()
	c.updates.trigger()
}

// QueueCursor debounces this client's cursor position; only the latest
// point within a window is broadcast.
func (c *Client) QueueCursor(x, y float64) {
	c.mu.Lock()
	c.latestCursor = &Cursor{X: x, Y: y}
	c.mu.Unlock()
	c.cursors.trigger()
}

func (c *Client) sendLatestUpdate() {
	c.mu.Lock()
	raw := c.latestUpdate
	c.latestUpdate = nil
	c.mu.Unlock()
	if raw == nil {
		return
	}
	c.write(Message{
		Type:    TypeBoardUpdate,
		BoardID: c.opts.BoardID,
		Sender:  c.selfID,
		Data:    raw,
	})
}

func (c *Client) sendLatestCursor() {
	c.mu.Lock()
	cur := c.latestCursor
	c.latestCursor = nil
	c.mu.Unlock()
	if cur == nil {
		return
	}
	c.write(Message{
		Type:    TypePresence,
		BoardID: c.opts.BoardID,
		Sender:  c.selfID,
		Cursor:  cur,
		Label:   c.opts.Label,
	})
}

func (c *Client) write(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("marshal message", "err", err)
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.log.Error("write message", "err", err)
	}
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Error("realtime read", "err", err)
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			// malformed messages are dropped, connection stays open
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg Message) {
	switch msg.Type {
	case TypeBoardUpdate:
		// Echo suppression: even a broker that mistakenly relays our own
		// message back must not re-render or re-broadcast it.
		if msg.Sender == c.selfID {
			return
		}
		var data board.Data
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		c.mu.Lock()
		c.suppressNext = true
		c.mu.Unlock()
		if c.opts.OnUpdate != nil {
			c.opts.OnUpdate(data)
		}
	case TypePresence:
		if msg.Sender == c.selfID || msg.Cursor == nil {
			return
		}
		if c.opts.OnPresence != nil {
			c.opts.OnPresence(msg.Sender, msg.Label, *msg.Cursor)
		}
	case TypePresenceState:
		if c.opts.OnRoster != nil {
			c.opts.OnRoster(msg.Users)
		}
	}
}

// Close stops the throttle timers and closes the connection. Pending
// unsent states are discarded; the channel is fire-and-forget.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.updates.stop()
		c.cursors.stop()
		c.writeMu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// Done is closed once the connection has shut down.
func (c *Client) Done() <-chan struct{} { return c.done }
