package chatlist

import (
	"sort"

	"chatlist-service/internal/models"
)

// OrderIndex turns the server chat order list into a rank lookup.
func OrderIndex(order []string) map[string]int {
	index := make(map[string]int, len(order))
	for i, id := range order {
		if _, ok := index[id]; !ok {
			index[id] = i
		}
	}
	return index
}

// SortChats orders chats in place. Chats present in the server order sort by
// their rank; chats the server does not know about yet sort by recency and
// come first, so fresh local activity surfaces at the top. The sort is stable,
// and server order is only an ordering hint: presence is decided by the store.
func SortChats(chats []models.Chat, rank map[string]int) {
	sort.SliceStable(chats, func(i, j int) bool {
		ri, iRanked := rank[chats[i].ID]
		rj, jRanked := rank[chats[j].ID]
		if iRanked && jRanked {
			return ri < rj
		}
		if iRanked != jRanked {
			return !iRanked
		}
		return chats[i].RecencyTime().After(chats[j].RecencyTime())
	})
}
