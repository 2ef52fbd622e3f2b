package main

import (
	"net/http"
	"time"
)

func (a *api) routes(mux *http.ServeMux) {
	// Auth
	mux.HandleFunc("POST /api/auth/register", a.withRateLimit("auth", 20, time.Minute, a.handleRegister))
	mux.HandleFunc("POST /api/auth/login", a.withRateLimit("auth", 30, time.Minute, a.handleLogin))
	mux.HandleFunc("POST /api/auth/logout", a.handleLogout)
	mux.HandleFunc("GET /api/auth/me", a.handleMe)

	mux.HandleFunc("GET /api/health", a.handleHealth)

	// Boards. GET and the socket resolve roles themselves because share
	// link guests have no session.
	mux.HandleFunc("GET /api/boards", a.handleListBoards)
	mux.HandleFunc("POST /api/boards", a.requireAuth(a.handleCreateBoard))
	mux.HandleFunc("GET /api/boards/{id}", a.handleGetBoard)
	mux.HandleFunc("PATCH /api/boards/{id}", a.handleUpdateBoard)
	mux.HandleFunc("DELETE /api/boards/{id}", a.requireAuth(a.handleDeleteBoard))
	mux.HandleFunc("GET /api/boards/{id}/ws", a.handleBoardWS)

	// Comments
	mux.HandleFunc("GET /api/boards/{id}/comments", a.handleBoardComments)
	mux.HandleFunc("POST /api/boards/{id}/comments", a.handleAddBoardComment)

	// Sharing (owner only)
	mux.HandleFunc("GET /api/boards/{id}/shares", a.requireAuth(a.handleListShares))
	mux.HandleFunc("POST /api/boards/{id}/shares", a.requireAuth(a.handleShareBoard))
	mux.HandleFunc("DELETE /api/boards/{id}/shares/{uid}", a.requireAuth(a.handleUnshareBoard))
	mux.HandleFunc("POST /api/boards/{id}/links", a.requireAuth(a.handleCreateShareLink))
	mux.HandleFunc("DELETE /api/boards/{id}/links/{token}", a.requireAuth(a.handleRevokeShareLink))
}
