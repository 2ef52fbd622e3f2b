package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/deproudfoot/contextboard-server/board"
	"github.com/deproudfoot/contextboard-server/realtime"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

// Auth & Users

func (s *Store) CreateUser(ctx context.Context, email, password, name string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	var u User
	err = s.db.QueryRowContext(ctx, `insert into users(email, password_hash, name) values($1,$2,$3)
		returning id, email, name, is_active, created_at`, email, string(hash), name).
		Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// get user creds by email, including password hash
func (s *Store) userCredsByEmail(ctx context.Context, email string) (User, string, error) {
	var u User
	var hash string
	err := s.db.QueryRowContext(ctx, `select id, email, name, is_active, created_at, password_hash
		from users where lower(email)=lower($1)`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, "", ErrNotFound
	}
	return u, hash, err
}

// Authenticate verifies the password and returns the user if ok.
func (s *Store) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, hash, err := s.userCredsByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrNotFound
	}
	if !u.IsActive {
		return User{}, errors.New("user_inactive")
	}
	return u, nil
}

func (s *Store) userByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `select id, email, name, is_active, created_at
		from users where lower(email)=lower($1)`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *Store) CreateSession(ctx context.Context, userID int64, ttl time.Duration) (string, time.Time, error) {
	// 32 random bytes, base64 URL encoded
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", time.Time{}, err
	}
	token := base64.RawURLEncoding.EncodeToString(b)
	expires := time.Now().Add(ttl)
	_, err := s.db.ExecContext(ctx, `insert into sessions(user_id, token, expires_at) values($1,$2,$3)`, userID, token, expires)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

func (s *Store) UserBySession(ctx context.Context, token string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `select u.id, u.email, u.name, u.is_active, u.created_at
		from sessions s join users u on u.id=s.user_id
		where s.token=$1 and s.expires_at > now()`, token).
		Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `delete from sessions where token=$1`, token)
	return err
}

// Boards

func (s *Store) CreateBoard(ctx context.Context, ownerID int64, title string, data json.RawMessage) (Board, error) {
	if len(data) == 0 {
		data = json.RawMessage(`{"hexagons":[]}`)
	}
	var b Board
	err := s.db.QueryRowContext(ctx,
		`insert into boards(owner_id, title, data) values($1,$2,$3)
		 returning id, title, owner_id, data, created_at, updated_at`,
		ownerID, title, []byte(data)).
		Scan(&b.ID, &b.Title, &b.OwnerID, &b.Data, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (s *Store) GetBoard(ctx context.Context, id int64) (Board, error) {
	var b Board
	err := s.db.QueryRowContext(ctx,
		`select id, title, owner_id, data, created_at, updated_at from boards where id=$1`, id).
		Scan(&b.ID, &b.Title, &b.OwnerID, &b.Data, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Board{}, ErrNotFound
	}
	return b, err
}

// UpdateBoard saves title and/or data; nil fields are left untouched.
func (s *Store) UpdateBoard(ctx context.Context, id int64, title *string, data json.RawMessage) error {
	if title == nil && data == nil {
		return nil
	}
	var res sql.Result
	var err error
	switch {
	case title != nil && data != nil:
		res, err = s.db.ExecContext(ctx, `update boards set title=$1, data=$2, updated_at=now() where id=$3`, *title, []byte(data), id)
	case title != nil:
		res, err = s.db.ExecContext(ctx, `update boards set title=$1, updated_at=now() where id=$2`, *title, id)
	default:
		res, err = s.db.ExecContext(ctx, `update boards set data=$1, updated_at=now() where id=$2`, []byte(data), id)
	}
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteBoard(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from boards where id=$1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBoardsForUser returns the user's own boards plus boards shared with
// them, each tagged with the caller's role; shared rows carry the owner's
// email as a contact label.
func (s *Store) ListBoardsForUser(ctx context.Context, userID int64) ([]BoardSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		select b.id, b.title, 'owner', '', b.created_at, b.updated_at
		from boards b where b.owner_id=$1
		union all
		select b.id, b.title, bs.role, u.email, b.created_at, b.updated_at
		from board_shares bs
		join boards b on b.id=bs.board_id
		join users u on u.id=b.owner_id
		where bs.user_id=$1
		order by 6 desc, 1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BoardSummary
	for rows.Next() {
		var b BoardSummary
		if err := rows.Scan(&b.ID, &b.Title, &b.Role, &b.OwnerEmail, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Roles & sharing

// BoardRole resolves the user's role on a board: owner, a shared role, or
// none. A missing board also reports none.
func (s *Store) BoardRole(ctx context.Context, boardID, userID int64) (realtime.Role, error) {
	var ownerID int64
	err := s.db.QueryRowContext(ctx, `select owner_id from boards where id=$1`, boardID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return realtime.RoleNone, nil
	}
	if err != nil {
		return realtime.RoleNone, err
	}
	if ownerID == userID {
		return realtime.RoleOwner, nil
	}
	var role string
	err = s.db.QueryRowContext(ctx, `select role from board_shares where board_id=$1 and user_id=$2`, boardID, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return realtime.RoleNone, nil
	}
	if err != nil {
		return realtime.RoleNone, err
	}
	return realtime.Role(role), nil
}

// ShareBoard grants a user (looked up by email) a role on the board.
// Re-sharing updates the role.
func (s *Store) ShareBoard(ctx context.Context, boardID int64, email, role string) (Share, error) {
	if role != string(realtime.RoleEditor) && role != string(realtime.RoleViewer) {
		return Share{}, errors.New("invalid role")
	}
	u, err := s.userByEmail(ctx, email)
	if err != nil {
		return Share{}, err
	}
	var sh Share
	err = s.db.QueryRowContext(ctx, `insert into board_shares(board_id, user_id, role) values($1,$2,$3)
		on conflict (board_id, user_id) do update set role=excluded.role
		returning board_id, user_id, role, created_at`, boardID, u.ID, role).
		Scan(&sh.BoardID, &sh.UserID, &sh.Role, &sh.CreatedAt)
	if err != nil {
		return Share{}, err
	}
	sh.Email = u.Email
	sh.Name = u.Name
	return sh, nil
}

func (s *Store) Unshare(ctx context.Context, boardID, userID int64) error {
	res, err := s.db.ExecContext(ctx, `delete from board_shares where board_id=$1 and user_id=$2`, boardID, userID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListShares(ctx context.Context, boardID int64) ([]Share, error) {
	rows, err := s.db.QueryContext(ctx, `select bs.board_id, bs.user_id, u.email, u.name, bs.role, bs.created_at
		from board_shares bs join users u on u.id=bs.user_id
		where bs.board_id=$1 order by bs.created_at, bs.user_id`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Share
	for rows.Next() {
		var sh Share
		if err := rows.Scan(&sh.BoardID, &sh.UserID, &sh.Email, &sh.Name, &sh.Role, &sh.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

// Share links

func (s *Store) CreateShareLink(ctx context.Context, boardID int64, role string) (ShareLink, error) {
	if role != "view" && role != "comment" {
		return ShareLink{}, errors.New("invalid role")
	}
	var l ShareLink
	err := s.db.QueryRowContext(ctx, `insert into board_links(token, board_id, role) values($1,$2,$3)
		returning token, board_id, role, created_at`, uuid.NewString(), boardID, role).
		Scan(&l.Token, &l.BoardID, &l.Role, &l.CreatedAt)
	return l, err
}

func (s *Store) RevokeShareLink(ctx context.Context, boardID int64, token string) error {
	res, err := s.db.ExecContext(ctx, `delete from board_links where board_id=$1 and token=$2`, boardID, token)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ResolveShareLink(ctx context.Context, token string) (ShareLink, error) {
	var l ShareLink
	err := s.db.QueryRowContext(ctx, `select token, board_id, role, created_at from board_links where token=$1`, token).
		Scan(&l.Token, &l.BoardID, &l.Role, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ShareLink{}, ErrNotFound
	}
	return l, err
}

func (s *Store) ListShareLinks(ctx context.Context, boardID int64) ([]ShareLink, error) {
	rows, err := s.db.QueryContext(ctx, `select token, board_id, role, created_at from board_links where board_id=$1 order by created_at`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ShareLink
	for rows.Next() {
		var l ShareLink
		if err := rows.Scan(&l.Token, &l.BoardID, &l.Role, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Comments live inside the board's data blob; appending is a
// read-modify-write under a row lock.

func (s *Store) AddBoardComment(ctx context.Context, boardID int64, author, text string) (board.Comment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return board.Comment{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var raw []byte
	err = tx.QueryRowContext(ctx, `select data from boards where id=$1 for update`, boardID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return board.Comment{}, ErrNotFound
	}
	if err != nil {
		return board.Comment{}, err
	}
	var data board.Data
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return board.Comment{}, err
		}
	}
	c := board.Comment{
		ID:        uuid.NewString(),
		Author:    author,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	data.Comments = append(data.Comments, c)
	next, err := json.Marshal(data)
	if err != nil {
		return board.Comment{}, err
	}
	if _, err := tx.ExecContext(ctx, `update boards set data=$1, updated_at=now() where id=$2`, next, boardID); err != nil {
		return board.Comment{}, err
	}
	if err := tx.Commit(); err != nil {
		return board.Comment{}, err
	}
	return c, nil
}

func (s *Store) BoardComments(ctx context.Context, boardID int64) ([]board.Comment, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `select data from boards where id=$1`, boardID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var data board.Data
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, err
		}
	}
	return data.Comments, nil
}

const schema = `
create table if not exists users(
    id bigserial primary key,
    email text unique not null,
    password_hash text not null default '',
    name text not null default '',
    is_active boolean not null default true,
    created_at timestamptz not null default now()
);

create table if not exists sessions(
    id bigserial primary key,
    user_id bigint not null references users(id) on delete cascade,
    token text unique not null,
    created_at timestamptz not null default now(),
    expires_at timestamptz not null
);

create table if not exists boards(
    id bigserial primary key,
    owner_id bigint not null references users(id) on delete cascade,
    title text not null check (length(title) > 0),
    data jsonb not null default '{"hexagons":[]}',
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
create index if not exists boards_owner_idx on boards(owner_id);

create table if not exists board_shares(
    board_id bigint not null references boards(id) on delete cascade,
    user_id bigint not null references users(id) on delete cascade,
    role text not null check (role in ('editor','viewer')),
    created_at timestamptz not null default now(),
    primary key(board_id, user_id)
);
create index if not exists board_shares_user_idx on board_shares(user_id);

create table if not exists board_links(
    token text primary key,
    board_id bigint not null references boards(id) on delete cascade,
    role text not null check (role in ('view','comment')),
    created_at timestamptz not null default now()
);
create index if not exists board_links_board_idx on board_links(board_id);
`
