package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/deproudfoot/contextboard-server/realtime"
)

func (a *api) handleBoardComments(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	role, _ := a.roleForRequest(r, id)
	if role == realtime.RoleNone {
		writeError(w, 403, "forbidden")
		return
	}
	comments, err := a.store.BoardComments(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("board comments", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, comments)
}

// handleAddBoardComment appends to the flat comment list inside the board
// data. Any resolved role may comment, including comment-link guests;
// that is the whole point of the comment role.
func (a *api) handleAddBoardComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	role, label := a.roleForRequest(r, id)
	if role == realtime.RoleNone || role == realtime.RoleViewer {
		writeError(w, 403, "forbidden")
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := readJSON(w, r, &req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeError(w, 400, "invalid payload")
		return
	}
	c, err := a.store.AddBoardComment(r.Context(), id, label, strings.TrimSpace(req.Text))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("add comment", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 201, c)
}
