package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deproudfoot/contextboard-server/board"
)

// dialTestBroker runs a capture broker: every frame a client sends lands
// on the returned channel, and the returned conn lets a test impersonate
// the broker pushing frames back down.
func dialTestBroker(t *testing.T, opts Options) (*Client, chan Message, *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	received := make(chan Message, 16)
	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			received <- msg
		}
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, err := Dial(context.Background(), url, opts)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	select {
	case conn := <-conns:
		return c, received, conn
	case <-time.After(2 * time.Second):
		t.Fatal("broker never saw the connection")
		return nil, nil, nil
	}
}

func recv(t *testing.T, ch chan Message) Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
		return Message{}
	}
}

func assertSilent(t *testing.T, ch chan Message) {
	t.Helper()
	select {
	case m := <-ch:
		t.Fatalf("unexpected message %q", m.Type)
	case <-time.After(150 * time.Millisecond):
	}
}

func stateText(text string) board.Data {
	return board.Data{Hexagons: []board.Hexagon{{ID: "a", Number: 1, Text: text}}}
}

func decodeState(t *testing.T, msg Message) board.Data {
	t.Helper()
	var d board.Data
	require.NoError(t, json.Unmarshal(msg.Data, &d))
	return d
}

func TestQueueUpdateThrottles(t *testing.T) {
	c, received, _ := dialTestBroker(t, Options{
		BoardID:        7,
		Role:           RoleEditor,
		UpdateInterval: 300 * time.Millisecond,
	})

	// first change after idle goes out immediately
	c.QueueUpdate(stateText("v1"))
	msg := recv(t, received)
	assert.Equal(t, TypeBoardUpdate, msg.Type)
	assert.Equal(t, int64(7), msg.BoardID)
	assert.Equal(t, c.ID(), msg.Sender)
	assert.Equal(t, "v1", decodeState(t, msg).Hexagons[0].Text)

	// a burst inside the window collapses to one send with the last state
	for _, v := range []string{"v2", "v3", "v4", "v5", "v6"} {
		c.QueueUpdate(stateText(v))
	}
	msg = recv(t, received)
	assert.Equal(t, "v6", decodeState(t, msg).Hexagons[0].Text)
	assertSilent(t, received)
}

func TestViewerNeverPublishesUpdates(t *testing.T) {
	c, received, _ := dialTestBroker(t, Options{Role: RoleViewer})

	c.QueueUpdate(stateText("v1"))
	assertSilent(t, received)

	// presence is not edit-gated: a viewer's cursor is still visible
	c.QueueCursor(10, 20)
	msg := recv(t, received)
	assert.Equal(t, TypePresence, msg.Type)
	require.NotNil(t, msg.Cursor)
	assert.Equal(t, 10.0, msg.Cursor.X)
	assert.Equal(t, "Guest", msg.Label, "empty label defaults to Guest")
}

func TestCursorDebounceKeepsLatest(t *testing.T) {
	c, received, _ := dialTestBroker(t, Options{
		Role:           RoleEditor,
		CursorInterval: 300 * time.Millisecond,
		Label:          "Ada",
	})

	c.QueueCursor(1, 1)
	msg := recv(t, received)
	require.NotNil(t, msg.Cursor)
	assert.Equal(t, 1.0, msg.Cursor.X)
	assert.Equal(t, "Ada", msg.Label)

	c.QueueCursor(2, 2)
	c.QueueCursor(3, 3)
	c.QueueCursor(4, 4)
	msg = recv(t, received)
	assert.Equal(t, 4.0, msg.Cursor.X)
	assertSilent(t, received)
}

func TestEchoSuppression(t *testing.T) {
	updates := make(chan board.Data, 4)
	c, _, broker := dialTestBroker(t, Options{
		Role:     RoleEditor,
		OnUpdate: func(d board.Data) { updates <- d },
	})

	raw, err := json.Marshal(stateText("mine"))
	require.NoError(t, err)
	require.NoError(t, broker.WriteJSON(Message{Type: TypeBoardUpdate, Sender: c.ID(), Data: raw}))

	raw, err = json.Marshal(stateText("theirs"))
	require.NoError(t, err)
	require.NoError(t, broker.WriteJSON(Message{Type: TypeBoardUpdate, Sender: "other", Data: raw}))

	select {
	case d := <-updates:
		assert.Equal(t, "theirs", d.Hexagons[0].Text, "own echo must be filtered")
	case <-time.After(2 * time.Second):
		t.Fatal("remote update never delivered")
	}
	assert.Empty(t, updates)
}

func TestRemoteApplyDoesNotRebroadcast(t *testing.T) {
	updates := make(chan board.Data, 1)
	c, received, broker := dialTestBroker(t, Options{
		Role:     RoleEditor,
		OnUpdate: func(d board.Data) { updates <- d },
	})

	raw, err := json.Marshal(stateText("remote"))
	require.NoError(t, err)
	require.NoError(t, broker.WriteJSON(Message{Type: TypeBoardUpdate, Sender: "other", Data: raw}))
	remote := <-updates

	// the reactive queue call a change listener makes after applying the
	// remote state is swallowed
	c.QueueUpdate(remote)
	assertSilent(t, received)

	// a genuine local edit afterwards still goes out
	c.QueueUpdate(stateText("local"))
	msg := recv(t, received)
	assert.Equal(t, "local", decodeState(t, msg).Hexagons[0].Text)
}

func TestPresenceAndRosterCallbacks(t *testing.T) {
	type seen struct {
		sender, label string
		cursor        Cursor
	}
	presences := make(chan seen, 4)
	rosters := make(chan []RoomUser, 4)
	c, _, broker := dialTestBroker(t, Options{
		Role: RoleViewer,
		OnPresence: func(sender, label string, cur Cursor) {
			presences <- seen{sender, label, cur}
		},
		OnRoster: func(users []RoomUser) { rosters <- users },
	})

	// own presence echoes and cursor-less presence frames are ignored
	require.NoError(t, broker.WriteJSON(Message{Type: TypePresence, Sender: c.ID(), Cursor: &Cursor{X: 1}}))
	require.NoError(t, broker.WriteJSON(Message{Type: TypePresence, Sender: "other", Label: "Bo"}))
	require.NoError(t, broker.WriteJSON(Message{Type: TypePresence, Sender: "other", Label: "Bo", Cursor: &Cursor{X: 5, Y: 6}}))
	require.NoError(t, broker.WriteJSON(Message{Type: TypePresenceState, Users: []RoomUser{{ID: "u1", Label: "Bo"}}}))

	select {
	case p := <-presences:
		assert.Equal(t, "other", p.sender)
		assert.Equal(t, "Bo", p.label)
		assert.Equal(t, Cursor{X: 5, Y: 6}, p.cursor)
	case <-time.After(2 * time.Second):
		t.Fatal("presence never delivered")
	}
	select {
	case users := <-rosters:
		assert.Equal(t, []RoomUser{{ID: "u1", Label: "Bo"}}, users)
	case <-time.After(2 * time.Second):
		t.Fatal("roster never delivered")
	}
	assert.Empty(t, presences)
}

func TestDialRejectedHandshake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no access", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	c, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), Options{})
	require.Error(t, err)
	assert.Nil(t, c)
}

func TestMalformedFrameKeepsConnectionAlive(t *testing.T) {
	updates := make(chan board.Data, 1)
	_, _, broker := dialTestBroker(t, Options{
		Role:     RoleViewer,
		OnUpdate: func(d board.Data) { updates <- d },
	})

	require.NoError(t, broker.WriteMessage(websocket.TextMessage, []byte("not json{{")))

	raw, err := json.Marshal(stateText("after"))
	require.NoError(t, err)
	require.NoError(t, broker.WriteJSON(Message{Type: TypeBoardUpdate, Sender: "other", Data: raw}))

	select {
	case d := <-updates:
		assert.Equal(t, "after", d.Hexagons[0].Text)
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not survive the malformed frame")
	}
}
