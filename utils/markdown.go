package utils

import "strings"

// Characters Telegram requires escaping inside MarkdownV2 text.
const markdownV2Special = "_*[]()~`>#+-=|{}.!"

// EscapeMarkdownV2 escapes all MarkdownV2 special characters in text so it can
// be embedded in a formatted Telegram message without breaking the markup.
func EscapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(markdownV2Special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
