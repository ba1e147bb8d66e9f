package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bugeai-chat/db"
)

// AppName is shown in shared text and exports
const AppName = "BugeAI Chat"

// ExportNames are the display names used for each role in an export
type ExportNames struct {
	User      string
	Assistant string
}

// FormatShareText builds the text handed to the platform share sheet for a single message
func FormatShareText(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	return fmt.Sprintf("%s\n\n—— 来自 %s", content, AppName)
}

// ExportChatMarkdown renders a chat as Markdown. Failed and still-loading messages are skipped.
func ExportChatMarkdown(chat *db.Chat, messages []*db.ChatMessage, names ExportNames, now time.Time) string {
	var sb strings.Builder

	title := chat.Title
	if title == "" {
		title = "新对话"
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("**创建时间**: %s\n", chat.CreatedAt.Local().Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("**更新时间**: %s\n\n", chat.UpdatedAt.Local().Format("2006-01-02 15:04:05")))
	sb.WriteString("---\n\n")

	written := 0
	for _, msg := range messages {
		if msg.Status != db.StatusSent {
			continue
		}
		if written > 0 {
			sb.WriteString("---\n\n")
		}

		name := names.User
		if msg.Role == db.RoleAssistant {
			name = names.Assistant
		}
		sb.WriteString(fmt.Sprintf("## %s\n\n", name))
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n")
		written++
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*导出时间: %s*\n", now.Local().Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("*导出工具: %s*\n", AppName))

	return sb.String()
}

// WriteChatExport writes the Markdown export of a chat into dir and returns the file path
func WriteChatExport(dir string, chat *db.Chat, messages []*db.ChatMessage, names ExportNames) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	now := time.Now()
	path := filepath.Join(dir, GenerateExportFilename(chat.Title, now))
	content := ExportChatMarkdown(chat, messages, names, now)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

// GenerateExportFilename generates a filename for a Markdown export
func GenerateExportFilename(title string, now time.Time) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\n', '\r':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))

	if runes := []rune(sanitized); len(runes) > 50 {
		sanitized = string(runes[:50])
	}
	if sanitized == "" {
		sanitized = "chat"
	}

	return fmt.Sprintf("%s_%s.md", sanitized, now.Format("20060102_150405"))
}
