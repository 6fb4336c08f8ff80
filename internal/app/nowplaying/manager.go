// Package nowplaying posts player timelines to the server off the player goroutine.
package nowplaying

import (
	"context"
	"sort"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/plexplayer/internal/app/playback"
	"github.com/osa030/plexplayer/internal/domain/media"
)

// Poster sends a timeline report to the server.
type Poster interface {
	PushTimeline(ctx context.Context, report media.TimelineReport) error
}

// Config holds manager configuration.
type Config struct {
	BufferSize int // Pending reports kept while a post is in flight
}

type queueIdentity interface {
	ID() int64
	Version() int
}

type timelineRefresher interface {
	TakeRefreshOnTimeline() bool
}

// Manager receives timelines from the player and posts them in order.
type Manager struct {
	poster  Poster
	reports chan playback.Timeline

	mu     sync.RWMutex
	latest map[string]media.TimelineReport
}

// NewManager creates a new now-playing manager.
func NewManager(poster Poster, config Config) *Manager {
	if config.BufferSize <= 0 {
		config.BufferSize = 16
	}
	return &Manager{
		poster:  poster,
		reports: make(chan playback.Timeline, config.BufferSize),
		latest:  make(map[string]media.TimelineReport),
	}
}

// ReportTimeline queues a timeline. It never blocks; reports are dropped when the buffer is full.
func (m *Manager) ReportTimeline(t playback.Timeline) {
	select {
	case m.reports <- t:
	default:
		zlog.Warn().Msgf("nowplaying: buffer full, dropping %s timeline", t.State)
	}
}

// Run posts queued timelines until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-m.reports:
			m.post(ctx, t)
		}
	}
}

func (m *Manager) post(ctx context.Context, t playback.Timeline) {
	report, ok := Convert(t)
	if !ok {
		return
	}

	m.mu.Lock()
	m.latest[report.Kind] = report
	m.mu.Unlock()

	if m.poster != nil {
		if err := m.poster.PushTimeline(ctx, report); err != nil {
			zlog.Warn().Err(err).Msgf("nowplaying: failed to post %s timeline for %s", report.State, report.RatingKey)
		}
	}

	if r, ok := t.Queue.(timelineRefresher); ok && r.TakeRefreshOnTimeline() {
		t.Queue.Refresh(false)
	}
}

// Latest returns the most recent report per media kind, ordered by kind.
func (m *Manager) Latest() []media.TimelineReport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reports := make([]media.TimelineReport, 0, len(m.latest))
	for _, r := range m.latest {
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Kind < reports[j].Kind })
	return reports
}

// Convert builds the server report for a player timeline.
func Convert(t playback.Timeline) (media.TimelineReport, bool) {
	if t.Object == nil || t.Object.Item == nil {
		return media.TimelineReport{}, false
	}
	item := t.Object.Item
	report := media.TimelineReport{
		Kind:            string(t.Kind),
		State:           string(t.State),
		RatingKey:       item.RatingKey,
		Key:             item.Key,
		TimeMs:          t.TimeMs,
		DurationMs:      item.Duration,
		PlayQueueItemID: item.PlayQueueItemID,
		Server:          item.Server,
	}
	if q, ok := t.Queue.(queueIdentity); ok {
		report.PlayQueueID = q.ID()
		report.PlayQueueVersion = q.Version()
	}
	return report, true
}
