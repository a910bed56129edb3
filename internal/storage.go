package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ConversationSummary is a row of the conversation listing
type ConversationSummary struct {
	ID           string
	MessageCount int
	TotalTokens  int
	Preview      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Storage persists conversations in the history database
type Storage struct {
	db   *sql.DB
	path string
}

// NewStorage creates a new Storage instance. path is only used in errors.
func NewStorage(db *sql.DB, path string) *Storage {
	return &Storage{db: db, path: path}
}

// Save replaces the stored conversation with conv in one transaction
func (s *Storage) Save(ctx context.Context, conv *Conversation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Path: s.path, Op: "save", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	created := conv.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := conv.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, prompt_tokens, completion_tokens, total_tokens, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			prompt_tokens = excluded.prompt_tokens,
			completion_tokens = excluded.completion_tokens,
			total_tokens = excluded.total_tokens,
			updated_at = excluded.updated_at`,
		conv.ID, conv.Stats.PromptTokens, conv.Stats.CompletionTokens, conv.Stats.TotalTokens,
		created.UnixMilli(), updated.UnixMilli())
	if err != nil {
		return &StoreError{Path: s.path, Op: "save", Err: err}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", conv.ID); err != nil {
		return &StoreError{Path: s.path, Op: "save", Err: err}
	}
	for i, msg := range conv.Messages {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO messages (conversation_id, position, role, content) VALUES (?, ?, ?, ?)",
			conv.ID, i, string(msg.Role), msg.Content)
		if err != nil {
			return &StoreError{Path: s.path, Op: "save", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StoreError{Path: s.path, Op: "save", Err: err}
	}
	return nil
}

// Load returns the conversation with the given id, or nil when it does not exist
func (s *Storage) Load(ctx context.Context, id string) (*Conversation, error) {
	conv := &Conversation{ID: id}
	var created, updated int64
	err := s.db.QueryRowContext(ctx, `
		SELECT prompt_tokens, completion_tokens, total_tokens, created_at, updated_at
		FROM conversations WHERE id = ?`, id).
		Scan(&conv.Stats.PromptTokens, &conv.Stats.CompletionTokens, &conv.Stats.TotalTokens, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{Path: s.path, Op: "load", Err: err}
	}
	conv.CreatedAt = time.UnixMilli(created)
	conv.UpdatedAt = time.UnixMilli(updated)

	messages, err := s.loadMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	conv.Messages = messages
	return conv, nil
}

// Latest returns the most recently updated conversation, or nil when there is none
func (s *Storage) Latest(ctx context.Context) (*Conversation, error) {
	var id string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM conversations ORDER BY updated_at DESC LIMIT 1").Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{Path: s.path, Op: "load", Err: err}
	}
	return s.Load(ctx, id)
}

// List returns a summary of every stored conversation, most recent first.
// Preview is the first user message.
func (s *Storage) List(ctx context.Context) ([]ConversationSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.total_tokens, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id),
			COALESCE((SELECT content FROM messages m
				WHERE m.conversation_id = c.id AND m.role = 'user'
				ORDER BY m.position LIMIT 1), '')
		FROM conversations c
		ORDER BY c.updated_at DESC`)
	if err != nil {
		return nil, &StoreError{Path: s.path, Op: "load", Err: fmt.Errorf("query failed: %w", err)}
	}
	defer rows.Close()

	var summaries []ConversationSummary
	for rows.Next() {
		var sum ConversationSummary
		var created, updated int64
		if err := rows.Scan(&sum.ID, &sum.TotalTokens, &created, &updated, &sum.MessageCount, &sum.Preview); err != nil {
			return nil, &StoreError{Path: s.path, Op: "load", Err: fmt.Errorf("scan failed: %w", err)}
		}
		sum.CreatedAt = time.UnixMilli(created)
		sum.UpdatedAt = time.UnixMilli(updated)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Path: s.path, Op: "load", Err: fmt.Errorf("rows iteration error: %w", err)}
	}
	return summaries, nil
}

// Clear removes a conversation and its messages
func (s *Storage) Clear(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id); err != nil {
		return &StoreError{Path: s.path, Op: "clear", Err: err}
	}
	// the cascade needs foreign_keys on this connection; delete explicitly as well
	if _, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", id); err != nil {
		return &StoreError{Path: s.path, Op: "clear", Err: err}
	}
	return nil
}

func (s *Storage) loadMessages(ctx context.Context, id string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content FROM messages WHERE conversation_id = ? ORDER BY position", id)
	if err != nil {
		return nil, &StoreError{Path: s.path, Op: "load", Err: fmt.Errorf("query failed: %w", err)}
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, &StoreError{Path: s.path, Op: "load", Err: fmt.Errorf("scan failed: %w", err)}
		}
		messages = append(messages, Message{Role: Role(role), Content: content})
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Path: s.path, Op: "load", Err: fmt.Errorf("rows iteration error: %w", err)}
	}
	return messages, nil
}
