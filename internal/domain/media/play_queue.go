package media

// PlayQueue is the server-side ordered list of items for a playback session.
type PlayQueue struct {
	ID             int64   `json:"playQueueID"`
	SelectedItemID int64   `json:"playQueueSelectedItemID"`
	Shuffled       bool    `json:"playQueueShuffled"`
	Version        int     `json:"playQueueVersion"`
	Items          []*Item `json:"Metadata"`
}

// ItemIDs returns the play queue item IDs in order.
func (q *PlayQueue) ItemIDs() []int64 {
	ids := make([]int64, 0, len(q.Items))
	for _, item := range q.Items {
		ids = append(ids, item.PlayQueueItemID)
	}
	return ids
}

// IndexOf returns the position of the item with the given play queue item ID, or -1.
func (q *PlayQueue) IndexOf(itemID int64) int {
	for i, item := range q.Items {
		if item.PlayQueueItemID == itemID {
			return i
		}
	}
	return -1
}
