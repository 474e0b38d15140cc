// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	migrate "github.com/rubenv/sql-migrate"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/socratic-tui/internal/model"
	"github.com/jeranaias/socratic-tui/internal/util"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotFound      = errors.New("conversation not found")
	ErrDatabaseError = errors.New("database error")
)

// MaxTitleRunes bounds conversation titles.
const MaxTitleRunes = 50

// =============================================================================
// STORE
// =============================================================================

// Store persists conversations for the dev backend. Every read is scoped to
// a user; another user's conversation is reported as ErrNotFound.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the SQLite database at path and applies
// pending migrations. Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := migrate.Exec(db, "sqlite3", migrations, migrate.Up); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// CreateConversation starts a conversation for userID titled from its first message.
func (s *Store) CreateConversation(ctx context.Context, userID, firstMessage string) (model.ConversationRef, error) {
	created := s.now().UTC()
	ref := model.ConversationRef{
		ID:        uuid.NewString(),
		Title:     Title(firstMessage),
		CreatedAt: &created,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, title, created_at) VALUES (?, ?, ?, ?)`,
		ref.ID, userID, ref.Title, created.UnixNano())
	if err != nil {
		return model.ConversationRef{}, fmt.Errorf("%w: insert conversation: %v", ErrDatabaseError, err)
	}
	return ref, nil
}

// Conversation returns the conversation id owned by userID.
func (s *Store) Conversation(ctx context.Context, userID, id string) (model.ConversationRef, error) {
	var (
		ref     model.ConversationRef
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at FROM conversations WHERE id = ? AND user_id = ?`,
		id, userID).Scan(&ref.ID, &ref.Title, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ConversationRef{}, ErrNotFound
	}
	if err != nil {
		return model.ConversationRef{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	t := time.Unix(0, created).UTC()
	ref.CreatedAt = &t
	return ref, nil
}

// ListConversations returns userID's conversations, newest first.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]model.ConversationRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at FROM conversations WHERE user_id = ? ORDER BY created_at DESC, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	refs := []model.ConversationRef{}
	for rows.Next() {
		var (
			ref     model.ConversationRef
			created int64
		)
		if err := rows.Scan(&ref.ID, &ref.Title, &created); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		t := time.Unix(0, created).UTC()
		ref.CreatedAt = &t
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return refs, nil
}

// DeleteConversation removes a conversation and its messages.
func (s *Store) DeleteConversation(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// MESSAGES
// =============================================================================

// Messages returns the history of conversation id in arrival order.
func (s *Store) Messages(ctx context.Context, userID, id string) ([]model.Message, error) {
	if _, err := s.Conversation(ctx, userID, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, source FROM messages WHERE conversation_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		var m model.Message
		var role string
		if err := rows.Scan(&role, &m.Content, &m.Source); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		m.Role = model.Role(role)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return msgs, nil
}

// AppendMessages adds msgs to conversation id in one transaction.
func (s *Store) AppendMessages(ctx context.Context, id string, msgs ...model.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	now := s.now().UTC().UnixNano()
	for _, m := range msgs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (conversation_id, role, content, source, created_at) VALUES (?, ?, ?, ?, ?)`,
			id, string(m.Role), m.Content, m.Source, now); err != nil {
			return fmt.Errorf("%w: insert message: %v", ErrDatabaseError, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrDatabaseError, err)
	}
	return nil
}

// UserMessages returns every user-role message userID has sent, oldest first.
// It feeds project suggestions.
func (s *Store) UserMessages(ctx context.Context, userID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT m.content FROM messages m
JOIN conversations c ON c.id = m.conversation_id
WHERE c.user_id = ? AND m.role = ?
ORDER BY m.id DESC LIMIT ?`, userID, string(model.RoleUser), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	// Oldest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Title derives a conversation title from its first message: NFC-normalized,
// first line only, whitespace collapsed, at most MaxTitleRunes runes.
func Title(first string) string {
	t := norm.NFC.String(first)
	t = util.CollapseWhitespace(util.FirstLine(t))
	t = strings.TrimSpace(t)
	if t == "" {
		return model.UntitledConversation
	}
	return util.TruncateRunes(t, MaxTitleRunes)
}
