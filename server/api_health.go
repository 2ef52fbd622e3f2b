package main

import "net/http"

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.store.db.PingContext(r.Context()); err != nil {
		writeError(w, 500, "db unreachable")
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}
