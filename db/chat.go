package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const chatColumns = "id, title, created_at, updated_at"

// CreateChat creates a new chat. An empty title means the chat has not been named yet.
func (db *DB) CreateChat(title string) (*Chat, error) {
	now := db.now()
	chat := &Chat{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := db.conn.Exec(
		"INSERT INTO chats (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)",
		chat.ID, chat.Title, chat.CreatedAt, chat.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	return chat, nil
}

// GetChat retrieves a chat by ID
func (db *DB) GetChat(id string) (*Chat, error) {
	var chat Chat
	err := db.conn.QueryRow(
		"SELECT "+chatColumns+" FROM chats WHERE id = ?", id,
	).Scan(&chat.ID, &chat.Title, &chat.CreatedAt, &chat.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chat %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}

	return &chat, nil
}

// ListChats retrieves all chats, most recently updated first
func (db *DB) ListChats() ([]*Chat, error) {
	rows, err := db.conn.Query(
		"SELECT " + chatColumns + " FROM chats ORDER BY updated_at DESC, rowid DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var chats []*Chat
	for rows.Next() {
		var chat Chat
		if err := rows.Scan(&chat.ID, &chat.Title, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, &chat)
	}

	return chats, rows.Err()
}

// UpdateChatTitle renames a chat
func (db *DB) UpdateChatTitle(id, title string) error {
	result, err := db.conn.Exec(
		"UPDATE chats SET title = ?, updated_at = ? WHERE id = ?",
		title, db.now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update chat: %w", err)
	}
	return expectAffected(result, "chat", id)
}

// TouchChat updates the chat's updated_at timestamp
func (db *DB) TouchChat(id string) error {
	_, err := db.conn.Exec("UPDATE chats SET updated_at = ? WHERE id = ?", db.now(), id)
	if err != nil {
		return fmt.Errorf("failed to touch chat: %w", err)
	}
	return nil
}

// DeleteChat deletes a chat and all its messages
func (db *DB) DeleteChat(id string) error {
	if _, err := db.conn.Exec("DELETE FROM chats WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	return nil
}

func expectAffected(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
