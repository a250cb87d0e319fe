package subscription

// maxSubscriptionHistory is the number of removed subscription ids
// remembered to tell late publish responses from stale subscriptions.
const maxSubscriptionHistory = 10

// idHistory is a fixed-size FIFO of subscription ids. Not safe for
// concurrent use; the manager guards it with its registry lock.
type idHistory struct {
	ids  []uint32
	next int
}

func (h *idHistory) add(id uint32) {
	if len(h.ids) < maxSubscriptionHistory {
		h.ids = append(h.ids, id)
		return
	}
	h.ids[h.next] = id
	h.next = (h.next + 1) % maxSubscriptionHistory
}

func (h *idHistory) contains(id uint32) bool {
	for _, v := range h.ids {
		if v == id {
			return true
		}
	}
	return false
}

func (h *idHistory) clear() {
	h.ids = h.ids[:0]
	h.next = 0
}
