package metacache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatlist-service/internal/models"
)

func TestPutGetInvalidate(t *testing.T) {
	c := New()

	_, ok := c.Get("a")
	require.False(t, ok)

	c.Put("a", Meta{LastMessagePreview: "hi", MessageCount: 2})
	meta, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "hi", meta.LastMessagePreview)
	assert.Equal(t, 1, c.Len())

	c.Invalidate("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestStaleByVersionCounters(t *testing.T) {
	c := New()
	chat := models.Chat{ID: "a", TitleVersion: 2, DraftVersion: 1}

	assert.True(t, c.Stale(chat), "missing entry is stale")

	c.Put("a", Meta{TitleVersion: 2, DraftVersion: 1})
	assert.False(t, c.Stale(chat))

	chat.DraftVersion = 2
	assert.True(t, c.Stale(chat))
}
