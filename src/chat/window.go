package chat

import (
	"github.com/elee1766/chatrelay/src/aisdk"
	"github.com/elee1766/chatrelay/src/storage"
)

// BuildContextWindow returns the system prompt followed by the last size
// messages, oldest first. Only role and content are carried over.
func BuildContextWindow(systemPrompt string, messages []storage.Message, size int) []*aisdk.Message {
	if size < 0 {
		size = 0
	}
	start := len(messages) - size
	if start < 0 {
		start = 0
	}
	history := messages[start:]

	window := make([]*aisdk.Message, 0, len(history)+1)
	if systemPrompt != "" {
		window = append(window, &aisdk.Message{Role: aisdk.RoleSystem, Content: systemPrompt})
	}
	for _, m := range history {
		window = append(window, &aisdk.Message{Role: m.Role, Content: m.Content})
	}
	return window
}

// TruncateTitle returns the first n characters of text. Characters are
// counted as runes so multi-byte text is never split.
func TruncateTitle(text string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}
