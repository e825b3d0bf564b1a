package mutate

import (
	"github.com/Manav0411/askbase-go/api"
	"github.com/Manav0411/askbase-go/cache"
)

// RemoveDocument returns a transform that removes the document with the
// given ID from a cached api.DocumentList and decrements the reported total.
// Item order is preserved. Rollback restores the item at its original
// position and the original total from the snapshot, atomically.
//
// The transform is total: an unexpected value or a missing ID passes through
// unchanged.
func RemoveDocument(id string) cache.Transform {
	return func(current any) any {
		list, ok := current.(api.DocumentList)
		if !ok {
			return current
		}

		items := make([]api.Document, 0, len(list.Items))
		removed := false
		for _, d := range list.Items {
			if d.ID == id && !removed {
				removed = true
				continue
			}
			items = append(items, d)
		}
		if !removed {
			return current
		}

		list.Items = items
		list.Pagination.Total--
		return list
	}
}

// RemoveConversation is the conversation-list analogue of RemoveDocument.
func RemoveConversation(id string) cache.Transform {
	return func(current any) any {
		list, ok := current.(api.ConversationList)
		if !ok {
			return current
		}

		items := make([]api.Conversation, 0, len(list.Items))
		removed := false
		for _, c := range list.Items {
			if c.ID == id && !removed {
				removed = true
				continue
			}
			items = append(items, c)
		}
		if !removed {
			return current
		}

		list.Items = items
		list.Pagination.Total--
		return list
	}
}
