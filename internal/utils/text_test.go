package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "한국", TruncateRunes("한국어", 2), "按字符而不是字节截断")
	assert.Equal(t, "abc", TruncateRunes("abc", 5))
	assert.Equal(t, "", TruncateRunes("abc", 0))

	assert.Equal(t, "ab ...", TruncateWithEllipsis("abcdef", 2))
	assert.Equal(t, "abc", TruncateWithEllipsis("abc", 3))

	assert.True(t, IsBlank(" \n\t"))
	assert.False(t, IsBlank(" x "))
}
