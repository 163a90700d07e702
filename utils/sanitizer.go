package utils

import "strings"

const (
	// BodyTruncationSuffix marks message content cut at the length limit
	BodyTruncationSuffix = "\n[message truncated]"
	// TopicTruncationSuffix marks a topic cut at the length limit
	TopicTruncationSuffix = "..."
)

// TruncateContent shortens s to at most maxLength runes. When s is too long the
// tail is replaced by suffix so that the result is exactly maxLength runes.
func TruncateContent(s string, maxLength int, suffix string) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	keep := maxLength - len([]rune(suffix))
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + suffix
}

// TruncateBody truncates message content to maxLength runes
func TruncateBody(content string, maxLength int) string {
	return TruncateContent(content, maxLength, BodyTruncationSuffix)
}

// TruncateTopic truncates a topic name to maxLength runes
func TruncateTopic(topic string, maxLength int) string {
	return TruncateContent(topic, maxLength, TopicTruncationSuffix)
}

// ContainsNullByte reports whether s contains a NUL character
func ContainsNullByte(s string) bool {
	return strings.ContainsRune(s, '\x00')
}
