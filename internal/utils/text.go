// internal/utils/text.go
package utils

import (
	"strings"
	"unicode/utf8"
)

// TruncateRunes 按字符截断
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

// TruncateWithEllipsis 超过 limit 时截断并追加 " ..."
func TruncateWithEllipsis(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return TruncateRunes(s, limit) + " ..."
}

// IsBlank 字符串是否只包含空白
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
