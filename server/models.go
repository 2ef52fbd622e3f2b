package main

import (
	"encoding/json"
	"time"
)

type Board struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	OwnerID int64  `json:"owner_id"`
	// Data is the canvas payload (hexagons, viewport, comments). The
	// store never looks inside it; clients own its meaning.
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BoardSummary is a listing row: the caller's own boards plus boards
// shared with them, each tagged with the caller's role. OwnerEmail is set
// only on shared boards.
type BoardSummary struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Role       string    `json:"role"`
	OwnerEmail string    `json:"owner_email,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Label is the display name shown next to this user's cursor.
func (u *User) Label() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Share is a per-board collaborator grant (editor or viewer).
type Share struct {
	BoardID   int64     `json:"board_id"`
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ShareLink grants anonymous access by token, either "view" or "comment".
type ShareLink struct {
	Token     string    `json:"token"`
	BoardID   int64     `json:"board_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
