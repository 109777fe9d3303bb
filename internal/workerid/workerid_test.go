package workerid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewReturnsNonEmptyID(t *testing.T) {
	id := New()
	require.NotEmpty(t, id)
}

func TestNewIncludesASuffixSeparator(t *testing.T) {
	id := New()
	require.Contains(t, id, "-")
}

func TestNewIsUnlikelyToCollide(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		id := New()
		require.False(t, seen[id], "unexpected collision: %s", id)
		seen[id] = true
	}
}

func TestNewSuffixIsEightHexChars(t *testing.T) {
	id := New()
	idx := strings.LastIndex(id, "-")
	require.GreaterOrEqual(t, idx, 0)
	require.Len(t, id[idx+1:], 8)
	require.Regexp(t, `^[0-9a-f]{8}$`, id[idx+1:])
}
