package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/deproudfoot/contextboard-server/realtime"
)

// requireBoardOwner resolves the board id and enforces that the session
// user owns it; sharing is an owner-only capability.
func (a *api) requireBoardOwner(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return 0, false
	}
	u, errU := a.currentUser(r)
	if errU != nil {
		writeError(w, 401, "unauthorized")
		return 0, false
	}
	role, err := a.store.BoardRole(r.Context(), id, u.ID)
	if err != nil {
		a.log.Error("board role", "err", err)
		writeError(w, 500, "internal error")
		return 0, false
	}
	if role != realtime.RoleOwner {
		writeError(w, 403, "forbidden")
		return 0, false
	}
	return id, true
}

func (a *api) handleListShares(w http.ResponseWriter, r *http.Request) {
	id, ok := a.requireBoardOwner(w, r)
	if !ok {
		return
	}
	shares, err := a.store.ListShares(r.Context(), id)
	if err != nil {
		a.log.Error("list shares", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	links, err := a.store.ListShareLinks(r.Context(), id)
	if err != nil {
		a.log.Error("list share links", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, map[string]any{"shares": shares, "links": links})
}

func (a *api) handleShareBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := a.requireBoardOwner(w, r)
	if !ok {
		return
	}
	var req struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := readJSON(w, r, &req); err != nil || strings.TrimSpace(req.Email) == "" {
		writeError(w, 400, "invalid payload")
		return
	}
	sh, err := a.store.ShareBoard(r.Context(), id, strings.TrimSpace(req.Email), req.Role)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "no such user")
			return
		}
		a.log.Error("share board", "err", err)
		writeError(w, 400, "invalid share")
		return
	}
	writeJSON(w, 201, sh)
}

func (a *api) handleUnshareBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := a.requireBoardOwner(w, r)
	if !ok {
		return
	}
	uid, err := parseID(r.PathValue("uid"))
	if err != nil {
		writeError(w, 400, "bad user id")
		return
	}
	if err := a.store.Unshare(r.Context(), id, uid); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("unshare board", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (a *api) handleCreateShareLink(w http.ResponseWriter, r *http.Request) {
	id, ok := a.requireBoardOwner(w, r)
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	l, err := a.store.CreateShareLink(r.Context(), id, req.Role)
	if err != nil {
		a.log.Error("create share link", "err", err)
		writeError(w, 400, "invalid link role")
		return
	}
	writeJSON(w, 201, l)
}

func (a *api) handleRevokeShareLink(w http.ResponseWriter, r *http.Request) {
	id, ok := a.requireBoardOwner(w, r)
	if !ok {
		return
	}
	token := r.PathValue("token")
	if token == "" {
		writeError(w, 400, "bad token")
		return
	}
	if err := a.store.RevokeShareLink(r.Context(), id, token); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("revoke share link", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}
