package chatlist

import (
	"time"

	"chatlist-service/internal/models"
)

// Group labels, in display order.
const (
	GroupPinned    = "Pinned"
	GroupToday     = "Today"
	GroupYesterday = "Yesterday"
	GroupThisWeek  = "This Week"
	GroupThisMonth = "This Month"
	GroupOlder     = "Older"
)

var groupOrder = []string{GroupPinned, GroupToday, GroupYesterday, GroupThisWeek, GroupThisMonth, GroupOlder}

// GroupChats partitions the visible chats into calendar-relative buckets.
// Pinned chats collect into their own leading bucket regardless of age.
// Empty buckets are omitted. The partition is recomputed on every call and
// never persisted.
func GroupChats(chats []models.Chat, now time.Time) []models.ChatGroup {
	buckets := make(map[string][]models.Chat, len(groupOrder))
	for _, chat := range chats {
		label := bucketLabel(chat, now)
		buckets[label] = append(buckets[label], chat)
	}

	groups := make([]models.ChatGroup, 0, len(buckets))
	for _, label := range groupOrder {
		if chats, ok := buckets[label]; ok {
			groups = append(groups, models.ChatGroup{Label: label, Chats: chats})
		}
	}
	return groups
}

func bucketLabel(chat models.Chat, now time.Time) string {
	if chat.Pinned {
		return GroupPinned
	}

	ts := chat.RecencyTime().In(now.Location())
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case !ts.Before(startOfDay):
		return GroupToday
	case !ts.Before(startOfDay.AddDate(0, 0, -1)):
		return GroupYesterday
	case !ts.Before(startOfDay.AddDate(0, 0, -6)):
		return GroupThisWeek
	case ts.Year() == now.Year() && ts.Month() == now.Month():
		return GroupThisMonth
	default:
		return GroupOlder
	}
}
