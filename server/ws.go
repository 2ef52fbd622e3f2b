package main

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/deproudfoot/contextboard-server/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Credentials are checked per-board below; the UI may be served from
	// a different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleBoardWS upgrades a connection into a board's room. The requester
// must resolve to a role (session cookie or ?token= share link); with no
// access the socket is closed with a policy-violation reason and the
// server never retries — the client may reconnect with fresh credentials.
func (a *api) handleBoardWS(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	role, label := a.roleForRequest(r, id)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Error("ws upgrade", "err", err)
		return
	}
	if role == realtime.RoleNone {
		closePolicyViolation(conn, "no board access")
		return
	}
	a.rooms.Join(id, conn, role, label)
}

func closePolicyViolation(conn *websocket.Conn, reason string) {
	deadline := time.Now().Add(wsWriteWait)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
	conn.Close()
}
