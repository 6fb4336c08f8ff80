package playqueue

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/plexplayer/internal/domain/media"
)

// ErrNoSelection is returned when the server reports a selection that is not in the queue.
var ErrNoSelection = errors.New("play queue has no selected item")

// Fetcher loads a play queue from the server.
type Fetcher interface {
	FetchPlayQueue(ctx context.Context, id int64) (*media.PlayQueue, error)
}

// RemoteConfig holds remote queue configuration.
type RemoteConfig struct {
	RefreshDelay time.Duration // Delay applied to deferred refreshes
}

// Remote mirrors a server-owned play queue.
type Remote struct {
	ctx     context.Context
	fetcher Fetcher
	config  RemoteConfig

	mu                sync.Mutex
	queue             *media.PlayQueue
	pos               int
	listeners         []func()
	refreshOnTimeline bool
	refreshPending    bool
}

// NewRemote fetches the play queue with the given ID and positions it at the server's selection.
func NewRemote(ctx context.Context, fetcher Fetcher, id int64, config RemoteConfig) (*Remote, error) {
	if config.RefreshDelay <= 0 {
		config.RefreshDelay = time.Second
	}
	r := &Remote{
		ctx:     ctx,
		fetcher: fetcher,
		config:  config,
		queue:   &media.PlayQueue{ID: id},
	}
	if _, err := r.RefreshNow(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queue.SelectedItemID != 0 && r.queue.IndexOf(r.queue.SelectedItemID) < 0 {
		return nil, errors.Wrapf(ErrNoSelection, "play queue %d selects %d", id, r.queue.SelectedItemID)
	}
	return r, nil
}

// ID returns the play queue ID.
func (r *Remote) ID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queue.ID
}

// Version returns the last fetched play queue version.
func (r *Remote) Version() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queue.Version
}

func (r *Remote) Current() *media.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pos < 0 || r.pos >= len(r.queue.Items) {
		return nil
	}
	return r.queue.Items[r.pos]
}

func (r *Remote) Next() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pos+1 >= len(r.queue.Items) {
		return false
	}
	r.pos++
	r.queue.SelectedItemID = r.queue.Items[r.pos].PlayQueueItemID
	return true
}

func (r *Remote) Prev() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pos <= 0 {
		return false
	}
	r.pos--
	r.queue.SelectedItemID = r.queue.Items[r.pos].PlayQueueItemID
	return true
}

func (r *Remote) SetCurrent(pos int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pos < 0 || pos >= len(r.queue.Items) {
		return false
	}
	r.pos = pos
	r.queue.SelectedItemID = r.queue.Items[r.pos].PlayQueueItemID
	return true
}

func (r *Remote) HasNext() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos+1 < len(r.queue.Items)
}

func (r *Remote) IsRemote() bool { return true }

func (r *Remote) StartShuffled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queue.Shuffled
}

func (r *Remote) Items() []*media.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*media.Item(nil), r.queue.Items...)
}

// SetSelectedID records the item the player is on.
func (r *Remote) SetSelectedID(id int64) {
	if id == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue.SelectedItemID = id
	if idx := r.queue.IndexOf(id); idx >= 0 {
		r.pos = idx
	}
}

// OnItemsChanged registers fn to be called after a refresh changed the queue's items.
func (r *Remote) OnItemsChanged(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// MarkRefreshOnTimeline asks for a refresh once the next timeline was posted.
func (r *Remote) MarkRefreshOnTimeline() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshOnTimeline = true
}

// TakeRefreshOnTimeline reports and clears the refresh-on-timeline mark.
func (r *Remote) TakeRefreshOnTimeline() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	marked := r.refreshOnTimeline
	r.refreshOnTimeline = false
	return marked
}

// Refresh re-fetches the queue in the background, optionally after the configured delay.
// Deferred refreshes coalesce.
func (r *Remote) Refresh(delay bool) {
	if !delay {
		go r.refreshLogged()
		return
	}

	r.mu.Lock()
	if r.refreshPending {
		r.mu.Unlock()
		return
	}
	r.refreshPending = true
	r.mu.Unlock()

	go func() {
		timer := time.NewTimer(r.config.RefreshDelay)
		defer timer.Stop()
		select {
		case <-r.ctx.Done():
		case <-timer.C:
			r.mu.Lock()
			r.refreshPending = false
			r.mu.Unlock()
			r.refreshLogged()
		}
	}()
}

func (r *Remote) refreshLogged() {
	if _, err := r.RefreshNow(r.ctx); err != nil {
		zlog.Warn().Err(err).Msgf("playqueue: refresh of %d failed", r.ID())
	}
}

// RefreshNow fetches the queue and reports whether its items changed.
// Items-changed listeners run before it returns.
func (r *Remote) RefreshNow(ctx context.Context) (bool, error) {
	id := r.ID()
	pq, err := r.fetcher.FetchPlayQueue(ctx, id)
	if err != nil {
		return false, errors.Wrapf(err, "failed to fetch play queue %d", id)
	}

	r.mu.Lock()
	changed := !slices.Equal(r.queue.ItemIDs(), pq.ItemIDs())
	selected := pq.SelectedItemID
	r.queue = pq
	if idx := pq.IndexOf(selected); idx >= 0 {
		r.pos = idx
	} else if r.pos >= len(pq.Items) {
		r.pos = max(len(pq.Items)-1, 0)
	}
	listeners := slices.Clone(r.listeners)
	r.mu.Unlock()

	zlog.Debug().Msgf("playqueue: %d refreshed (version %d, %d items, changed=%t)", id, pq.Version, len(pq.Items), changed)
	if changed {
		for _, fn := range listeners {
			fn()
		}
	}
	return changed, nil
}
