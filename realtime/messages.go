// Package realtime carries the board synchronization protocol: the wire
// message shapes shared by broker and clients, and a headless sync client
// that throttles outbound snapshots and suppresses echoes.
package realtime

import "encoding/json"

const (
	TypeBoardUpdate   = "board_update"
	TypePresence      = "presence"
	TypePresenceState = "presence_state"
)

// Role is the access level resolved at connect time.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleEditor  Role = "editor"
	RoleViewer  Role = "viewer"
	RoleComment Role = "comment"
	RoleNone    Role = ""
)

// CanEdit reports whether the role may publish board_update messages.
func (r Role) CanEdit() bool { return r == RoleOwner || r == RoleEditor }

type Cursor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type RoomUser struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Message is the envelope for everything on the realtime channel. Unused
// fields stay empty; decoding tolerates unknown fields so clients and
// broker can evolve independently.
type Message struct {
	Type    string          `json:"type"`
	BoardID int64           `json:"boardId"`
	Sender  string          `json:"sender,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Cursor  *Cursor         `json:"cursor,omitempty"`
	Label   string          `json:"label,omitempty"`
	Users   []RoomUser      `json:"users,omitempty"`
}
