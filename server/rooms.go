package main

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/deproudfoot/contextboard-server/realtime"
)

const (
	// Time allowed to write a message to the peer
	wsWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	wsPongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than wsPongWait)
	wsPingPeriod = (wsPongWait * 9) / 10

	// Board snapshots can carry data URLs for media content
	wsMaxMessageSize = 4 << 20

	wsSendBuffer = 64
)

// Rooms is the in-memory room registry, keyed by board id. A room exists
// while it has members: created on first join, destroyed on last leave.
// Process-local only; scaling out would need an external pub/sub layer.
type Rooms struct {
	log *slog.Logger

	mu    sync.Mutex
	rooms map[int64]map[*roomMember]bool
}

func NewRooms(log *slog.Logger) *Rooms {
	return &Rooms{log: log, rooms: map[int64]map[*roomMember]bool{}}
}

// roomMember is one websocket connection inside a board's room, with its
// resolved role and presence label. The send channel decouples relay from
// slow sockets; a member that can't keep up is dropped.
type roomMember struct {
	id      string
	label   string
	role    realtime.Role
	boardID int64
	conn    *websocket.Conn
	send    chan []byte
	// done signals the write pump to exit. The send channel itself is
	// never closed: relay and roster broadcasts deliver to membership
	// snapshots taken before a concurrent leave, and a send on a closed
	// channel would panic the process.
	done  chan struct{}
	rooms *Rooms
}

// Join admits an authorized connection to a board's room, announces the
// new roster to every member and starts the connection's pumps.
func (rs *Rooms) Join(boardID int64, conn *websocket.Conn, role realtime.Role, label string) *roomMember {
	m := &roomMember{
		id:      uuid.NewString(),
		label:   label,
		role:    role,
		boardID: boardID,
		conn:    conn,
		send:    make(chan []byte, wsSendBuffer),
		done:    make(chan struct{}),
		rooms:   rs,
	}
	rs.mu.Lock()
	if rs.rooms[boardID] == nil {
		rs.rooms[boardID] = map[*roomMember]bool{}
	}
	rs.rooms[boardID][m] = true
	rs.mu.Unlock()

	rs.log.Info("room join", "board", boardID, "conn", m.id, "role", role, "label", label)
	rs.broadcastRoster(boardID)

	go m.writePump()
	go m.readPump()
	return m
}

// leave removes a member; idempotent so the read pump and a relay-side
// drop can both trigger it. Remaining members get a fresh roster.
func (rs *Rooms) leave(m *roomMember) {
	rs.mu.Lock()
	members, ok := rs.rooms[m.boardID]
	if !ok || !members[m] {
		rs.mu.Unlock()
		return
	}
	delete(members, m)
	if len(members) == 0 {
		delete(rs.rooms, m.boardID)
	}
	rs.mu.Unlock()
	close(m.done)

	rs.log.Info("room leave", "board", m.boardID, "conn", m.id)
	rs.broadcastRoster(m.boardID)
}

// Count reports a room's current membership.
func (rs *Rooms) Count(boardID int64) int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.rooms[boardID])
}

// relay forwards an inbound message verbatim to every other member of the
// sender's room. Undecodable messages are dropped with the connection
// left open, and a board_update from a non-editing role is dropped the
// same silent way so the socket channel can't bypass the connect-time
// authorization.
func (rs *Rooms) relay(m *roomMember, raw []byte) {
	var msg realtime.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	if msg.Type == realtime.TypeBoardUpdate && !m.role.CanEdit() {
		return
	}
	for _, peer := range rs.peers(m) {
		peer.deliver(raw)
	}
}

// peers snapshots the sender's room membership minus the sender.
func (rs *Rooms) peers(m *roomMember) []*roomMember {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	members := rs.rooms[m.boardID]
	out := make([]*roomMember, 0, len(members))
	for peer := range members {
		if peer != m {
			out = append(out, peer)
		}
	}
	return out
}

// broadcastRoster sends the full membership snapshot to every member of
// the room. Always a full roster, never a diff.
func (rs *Rooms) broadcastRoster(boardID int64) {
	rs.mu.Lock()
	members := make([]*roomMember, 0, len(rs.rooms[boardID]))
	users := make([]realtime.RoomUser, 0, len(rs.rooms[boardID]))
	for m := range rs.rooms[boardID] {
		members = append(members, m)
		users = append(users, realtime.RoomUser{ID: m.id, Label: m.label})
	}
	rs.mu.Unlock()
	if len(members) == 0 {
		return
	}
	payload, err := json.Marshal(realtime.Message{
		Type:    realtime.TypePresenceState,
		BoardID: boardID,
		Users:   users,
	})
	if err != nil {
		rs.log.Error("marshal roster", "err", err)
		return
	}
	for _, m := range members {
		m.deliver(payload)
	}
}

// deliver queues a payload without blocking; a member whose buffer is
// full is closed and removed.
func (m *roomMember) deliver(payload []byte) {
	select {
	case m.send <- payload:
	default:
		m.rooms.log.Warn("dropping slow connection", "board", m.boardID, "conn", m.id)
		go func() {
			m.rooms.leave(m)
			m.conn.Close()
		}()
	}
}

// readPump pumps messages from the socket into the room until the
// connection dies, then tears the membership down.
func (m *roomMember) readPump() {
	defer func() {
		m.rooms.leave(m)
		m.conn.Close()
	}()
	m.conn.SetReadLimit(wsMaxMessageSize)
	m.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	m.conn.SetPongHandler(func(string) error {
		m.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	for {
		_, raw, err := m.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.rooms.log.Error("ws read", "conn", m.id, "err", err)
			}
			return
		}
		m.rooms.relay(m, raw)
	}
}

// writePump drains the send channel to the socket and keeps the
// connection alive with pings.
func (m *roomMember) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		m.conn.Close()
	}()
	for {
		select {
		case payload := <-m.send:
			m.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := m.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-m.done:
			m.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			m.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			m.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := m.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
