package relay

import "strconv"

// AllowList is the set of chat ids permitted to issue commands.
// An empty list allows every chat.
type AllowList map[string]struct{}

// NewAllowList builds an allow-list from chat id strings.
func NewAllowList(ids []string) AllowList {
	a := make(AllowList, len(ids))
	for _, id := range ids {
		if id != "" {
			a[id] = struct{}{}
		}
	}
	return a
}

// Allows reports whether chatID may issue commands.
func (a AllowList) Allows(chatID int64) bool {
	if len(a) == 0 {
		return true
	}
	_, ok := a[strconv.FormatInt(chatID, 10)]
	return ok
}

// Len returns the number of allowed chats (0 means everyone).
func (a AllowList) Len() int {
	return len(a)
}
