package embedding

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOpProvider(t *testing.T) {
	p := NewNoOpProvider(8)

	vec, err := p.Embed(context.Background(), "anything")
	require.NoError(t, err)

	assert.Len(t, vec, 8)
	assert.Equal(t, 8, p.Dimension())
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestTruncate(t *testing.T) {
	short := "hello"
	assert.Equal(t, short, truncate(short))

	long := strings.Repeat("a", maxInputChars+100)
	assert.Len(t, truncate(long), maxInputChars)
}
