package db

import (
	"fmt"
	"strings"
)

const snippetRadius = 32

// SearchResult represents a search result
type SearchResult struct {
	Message *ChatMessage
	ChatID  string
	Snippet string
}

// SearchMessages performs a case-insensitive substring search over message content
func (db *DB) SearchMessages(query string, limit int) ([]*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	rows, err := db.conn.Query(
		"SELECT "+messageColumns+` FROM chat_messages
		WHERE content LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		"%"+escapeLike(query)+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	defer rows.Close()

	var results []*SearchResult
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, &SearchResult{
			Message: msg,
			ChatID:  msg.ChatID,
			Snippet: snippet(msg.Content, query),
		})
	}

	return results, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// snippet cuts a window of runes around the first match, marking elided text with "..."
func snippet(content, query string) string {
	runes := []rune(content)
	lower := []rune(strings.ToLower(content))
	needle := []rune(strings.ToLower(query))

	at := -1
	for i := 0; i+len(needle) <= len(lower); i++ {
		if string(lower[i:i+len(needle)]) == string(needle) {
			at = i
			break
		}
	}
	if at < 0 {
		at = 0
	}

	start := at - snippetRadius
	if start < 0 {
		start = 0
	}
	end := at + len(needle) + snippetRadius
	if end > len(runes) {
		end = len(runes)
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(string(runes[start:end]))
	if end < len(runes) {
		b.WriteString("...")
	}
	return b.String()
}
