package telegram

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitByBytes(t *testing.T) {
	assert.Equal(t, []string{"short"}, SplitByBytes("short", 10))

	parts := SplitByBytes(strings.Repeat("ab", 5), 4)
	assert.Equal(t, []string{"abab", "abab", "ab"}, parts)

	parts = SplitByBytes("ééé", 3)
	assert.Equal(t, []string{"é", "é", "é"}, parts)
}

func TestTruncateByBytes(t *testing.T) {
	assert.Equal(t, "abc", TruncateByBytes("abc", 5))
	assert.Equal(t, "ab", TruncateByBytes("abcdef", 2))
	assert.Equal(t, "é", TruncateByBytes("éé", 3))
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{HTTPClient: http.DefaultClient})
	assert.Error(t, err)
	_, err = New(Options{Token: "x"})
	assert.Error(t, err)
}
