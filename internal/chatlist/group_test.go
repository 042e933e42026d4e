package chatlist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatlist-service/internal/models"
)

func TestGroupChatsBuckets(t *testing.T) {
	now := time.Date(2024, time.March, 20, 15, 0, 0, 0, time.UTC)

	chats := []models.Chat{
		chatFixture("today", now.Add(-time.Hour)),
		chatFixture("yesterday", now.Add(-24*time.Hour)),
		chatFixture("week", now.Add(-4*24*time.Hour)),
		chatFixture("month", now.Add(-10*24*time.Hour)),
		chatFixture("older", now.Add(-60*24*time.Hour)),
	}

	groups := GroupChats(chats, now)

	require.Len(t, groups, 5)
	assert.Equal(t, GroupToday, groups[0].Label)
	assert.Equal(t, GroupYesterday, groups[1].Label)
	assert.Equal(t, GroupThisWeek, groups[2].Label)
	assert.Equal(t, GroupThisMonth, groups[3].Label)
	assert.Equal(t, GroupOlder, groups[4].Label)
	for i, g := range groups {
		assert.Len(t, g.Chats, 1, "group %d", i)
	}
}

func TestGroupChatsPinnedLeads(t *testing.T) {
	now := time.Date(2024, time.March, 20, 15, 0, 0, 0, time.UTC)

	pinned := chatFixture("pinned", now.Add(-60*24*time.Hour))
	pinned.Pinned = true
	chats := []models.Chat{chatFixture("today", now), pinned}

	groups := GroupChats(chats, now)

	require.Len(t, groups, 2)
	assert.Equal(t, GroupPinned, groups[0].Label)
	assert.Equal(t, "pinned", groups[0].Chats[0].ID)
	assert.Equal(t, GroupToday, groups[1].Label)
}

func TestGroupChatsOmitsEmptyBuckets(t *testing.T) {
	now := time.Date(2024, time.March, 20, 15, 0, 0, 0, time.UTC)

	groups := GroupChats([]models.Chat{chatFixture("today", now)}, now)

	require.Len(t, groups, 1)
	assert.Equal(t, GroupToday, groups[0].Label)
}

func TestGroupChatsEdgeOfDay(t *testing.T) {
	now := time.Date(2024, time.March, 20, 0, 30, 0, 0, time.UTC)

	chats := []models.Chat{
		chatFixture("just-today", now.Add(-29*time.Minute)),
		chatFixture("just-yesterday", now.Add(-31*time.Minute)),
	}

	groups := GroupChats(chats, now)

	require.Len(t, groups, 2)
	assert.Equal(t, GroupToday, groups[0].Label)
	assert.Equal(t, "just-today", groups[0].Chats[0].ID)
	assert.Equal(t, GroupYesterday, groups[1].Label)
	assert.Equal(t, "just-yesterday", groups[1].Chats[0].ID)
}
