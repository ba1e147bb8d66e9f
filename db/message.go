package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const messageColumns = "id, chat_id, role, content, status, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*ChatMessage, error) {
	var msg ChatMessage
	if err := row.Scan(&msg.ID, &msg.ChatID, &msg.Role, &msg.Content, &msg.Status, &msg.CreatedAt); err != nil {
		return nil, err
	}
	return &msg, nil
}

// CreateMessage creates a new message in a chat and bumps the chat's updated_at
func (db *DB) CreateMessage(chatID string, role Role, content string, status MessageStatus) (*ChatMessage, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid message role %q", role)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("invalid message status %q", status)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow("SELECT COUNT(*) FROM chats WHERE id = ?", chatID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to look up chat: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("chat %s: %w", chatID, ErrNotFound)
	}

	now := db.now()
	msg := &ChatMessage{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		Status:    status,
		CreatedAt: now,
	}

	_, err = tx.Exec(
		"INSERT INTO chat_messages ("+messageColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		msg.ID, msg.ChatID, msg.Role, msg.Content, msg.Status, msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	if _, err := tx.Exec("UPDATE chats SET updated_at = ? WHERE id = ?", now, chatID); err != nil {
		return nil, fmt.Errorf("failed to touch chat: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}

	return msg, nil
}

// GetMessage retrieves a message by ID
func (db *DB) GetMessage(id string) (*ChatMessage, error) {
	msg, err := scanMessage(db.conn.QueryRow(
		"SELECT "+messageColumns+" FROM chat_messages WHERE id = ?", id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// ListMessages retrieves all messages in a chat in creation order
func (db *DB) ListMessages(chatID string) ([]*ChatMessage, error) {
	rows, err := db.conn.Query(
		"SELECT "+messageColumns+" FROM chat_messages WHERE chat_id = ? ORDER BY created_at ASC, rowid ASC",
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*ChatMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// LastMessage returns the most recent message of a chat
func (db *DB) LastMessage(chatID string) (*ChatMessage, error) {
	msg, err := scanMessage(db.conn.QueryRow(
		"SELECT "+messageColumns+" FROM chat_messages WHERE chat_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1",
		chatID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chat %s has no messages: %w", chatID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last message: %w", err)
	}
	return msg, nil
}

// UpdateLoadingContent replaces the content of a message that is still loading
func (db *DB) UpdateLoadingContent(id, content string) error {
	result, err := db.conn.Exec(
		"UPDATE chat_messages SET content = ? WHERE id = ? AND status = ?",
		content, id, StatusLoading,
	)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	return db.checkTransition(result, id)
}

// CompleteMessage stores the final content and moves the message from loading to sent
func (db *DB) CompleteMessage(id, content string) error {
	result, err := db.conn.Exec(
		"UPDATE chat_messages SET content = ?, status = ? WHERE id = ? AND status = ?",
		content, StatusSent, id, StatusLoading,
	)
	if err != nil {
		return fmt.Errorf("failed to complete message: %w", err)
	}
	return db.checkTransition(result, id)
}

// FailMessage moves the message from loading to failed, keeping any partial content
func (db *DB) FailMessage(id string) error {
	result, err := db.conn.Exec(
		"UPDATE chat_messages SET status = ? WHERE id = ? AND status = ?",
		StatusFailed, id, StatusLoading,
	)
	if err != nil {
		return fmt.Errorf("failed to mark message as failed: %w", err)
	}
	return db.checkTransition(result, id)
}

// checkTransition tells a missing message apart from one that already left the loading state
func (db *DB) checkTransition(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	msg, err := db.GetMessage(id)
	if err != nil {
		return err
	}
	return fmt.Errorf("message %s is %s: %w", id, msg.Status, ErrInvalidStatusTransition)
}

// DeleteMessage deletes a message
func (db *DB) DeleteMessage(id string) error {
	if _, err := db.conn.Exec("DELETE FROM chat_messages WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// ClearMessages deletes every message of a chat but keeps the chat itself
func (db *DB) ClearMessages(chatID string) (int64, error) {
	result, err := db.conn.Exec("DELETE FROM chat_messages WHERE chat_id = ?", chatID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear messages: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if err := db.TouchChat(chatID); err != nil {
		return n, err
	}
	return n, nil
}
