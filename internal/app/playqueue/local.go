// Package playqueue provides the ordered item lists the player walks through:
// a local playlist built on the client and a remote play queue owned by the server.
package playqueue

import (
	"sync"

	"github.com/osa030/plexplayer/internal/domain/media"
)

// Local is a client-side playlist.
type Local struct {
	mu       sync.RWMutex
	items    []*media.Item
	pos      int
	shuffled bool
}

// NewLocal creates a playlist positioned at its first item.
func NewLocal(items []*media.Item, shuffled bool) *Local {
	return &Local{
		items:    append([]*media.Item(nil), items...),
		shuffled: shuffled,
	}
}

func (l *Local) Current() *media.Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.pos < 0 || l.pos >= len(l.items) {
		return nil
	}
	return l.items[l.pos]
}

func (l *Local) Next() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pos+1 >= len(l.items) {
		return false
	}
	l.pos++
	return true
}

func (l *Local) Prev() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pos <= 0 {
		return false
	}
	l.pos--
	return true
}

func (l *Local) SetCurrent(pos int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if pos < 0 || pos >= len(l.items) {
		return false
	}
	l.pos = pos
	return true
}

func (l *Local) HasNext() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pos+1 < len(l.items)
}

func (l *Local) IsRemote() bool { return false }
func (l *Local) StartShuffled() bool { return l.shuffled }

func (l *Local) Items() []*media.Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*media.Item(nil), l.items...)
}

// Refresh is a no-op: local playlists never change behind the player's back.
func (l *Local) Refresh(bool) {}

func (l *Local) OnItemsChanged(func()) {}

// SetSelectedID moves the cursor to the item with the given play queue item ID, if present.
func (l *Local) SetSelectedID(id int64) {
	if id == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, item := range l.items {
		if item.PlayQueueItemID == id {
			l.pos = i
			return
		}
	}
}

func (l *Local) MarkRefreshOnTimeline() {}
