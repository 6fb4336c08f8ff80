// Package session launches playback sessions from server keys and play queues.
package session

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/plexplayer/internal/app/notification"
	"github.com/osa030/plexplayer/internal/app/playback"
	"github.com/osa030/plexplayer/internal/app/playqueue"
	"github.com/osa030/plexplayer/internal/domain/media"
)

var (
	ErrUnsupportedType = errors.New("unsupported item type")
	ErrEmptyQueue      = errors.New("play queue is empty")
	ErrInvalidKey      = errors.New("invalid media key")
)

// Library loads items and play queues from the server.
type Library interface {
	FetchItem(ctx context.Context, ratingKey string) (*media.Item, error)
	FetchChildren(ctx context.Context, ratingKey string) ([]*media.Item, error)
	FetchPlayQueue(ctx context.Context, id int64) (*media.PlayQueue, error)
}

// Player starts playback.
type Player interface {
	PlayVideo(video *media.Item, resume, forceUpdate bool)
	PlayVideoPlaylist(q playback.Queue, resume bool)
	PlayAudio(track *media.Item, window playback.Window, fanart string)
	PlayAlbum(tracks []*media.Item, startPos int, window playback.Window, fanart string)
	PlayAudioPlaylist(q playback.Queue, startPos int, window playback.Window, fanart string)
}

// Config holds session manager configuration.
type Config struct {
	RefreshDelay time.Duration // Delay of deferred play queue refreshes
}

// PlayOptions modify how a launch starts.
type PlayOptions struct {
	Resume  bool   // Resume videos from their view offset
	Shuffle bool   // Shuffle albums
	Offset  int64  // ms; explicit start offset for videos, overrides the view offset
	Expect  string // Required kind ("video", "track" or "album"); empty accepts any
}

// KindVideo groups every video item type.
const KindVideo = "video"

func kindOf(item *media.Item) string {
	if item.IsVideo() {
		return KindVideo
	}
	return item.Type
}

// Manager resolves what to play and hands it to the player.
type Manager struct {
	ctx     context.Context
	library Library
	player  Player
	config  Config

	subID   string
	signals *notification.Manager

	mu       sync.Mutex
	launches int
	ended    chan struct{}
	endOnce  sync.Once
}

// NewManager creates a new session manager. It watches signals for the end of
// a launched session.
func NewManager(ctx context.Context, library Library, player Player, signals *notification.Manager, config Config) *Manager {
	m := &Manager{
		ctx:     ctx,
		library: library,
		player:  player,
		config:  config,
		signals: signals,
		ended:   make(chan struct{}),
	}
	if signals != nil {
		m.subID = signals.Subscribe(notification.StreamFunc(m.onSignal), playback.SignalSessionEnded)
	}
	return m
}

func (m *Manager) onSignal(n *notification.Notification) error {
	m.mu.Lock()
	launched := m.launches > 0
	m.mu.Unlock()
	if !launched {
		return nil
	}
	zlog.Debug().Msgf("session: %s (seq %d)", n.Name, n.SequenceNo)
	m.endOnce.Do(func() { close(m.ended) })
	return nil
}

// Ended is closed the first time a launched session ends.
func (m *Manager) Ended() <-chan struct{} {
	return m.ended
}

// Close stops watching signals.
func (m *Manager) Close() {
	if m.signals != nil && m.subID != "" {
		m.signals.Unsubscribe(m.subID)
	}
}

func (m *Manager) launched() {
	m.mu.Lock()
	m.launches++
	m.mu.Unlock()
}

// PlayKey plays the item with the given rating key: a video, a track or an album.
func (m *Manager) PlayKey(ctx context.Context, ratingKey string, opts PlayOptions) error {
	item, err := m.library.FetchItem(ctx, ratingKey)
	if err != nil {
		return errors.Wrapf(err, "failed to fetch item %s", ratingKey)
	}
	if opts.Expect != "" && kindOf(item) != opts.Expect {
		return errors.Wrapf(ErrUnsupportedType, "%s is a %q, not a %s", ratingKey, item.Type, opts.Expect)
	}

	switch {
	case item.IsVideo():
		resume := opts.Resume
		if opts.Offset > 0 {
			item.ViewOffset = opts.Offset
			resume = true
		}
		zlog.Info().Msgf("session: playing video %s %q", item.RatingKey, item.Title)
		m.launched()
		m.player.PlayVideo(item, resume, false)

	case item.Type == media.TypeTrack:
		zlog.Info().Msgf("session: playing track %s %q", item.RatingKey, item.Title)
		m.launched()
		m.player.PlayAudio(item, nil, "")

	case item.Type == media.TypeAlbum:
		tracks, err := m.library.FetchChildren(ctx, ratingKey)
		if err != nil {
			return errors.Wrapf(err, "failed to fetch tracks of %s", ratingKey)
		}
		if len(tracks) == 0 {
			return errors.Wrapf(ErrEmptyQueue, "album %s", ratingKey)
		}
		zlog.Info().Msgf("session: playing album %s %q (%d tracks, shuffle=%t)", item.RatingKey, item.Title, len(tracks), opts.Shuffle)
		m.launched()
		if opts.Shuffle {
			m.player.PlayAudioPlaylist(playqueue.NewLocal(tracks, true), 0, nil, item.Art)
		} else {
			m.player.PlayAlbum(tracks, 0, nil, item.Art)
		}

	default:
		return errors.Wrapf(ErrUnsupportedType, "%s is a %q", ratingKey, item.Type)
	}
	return nil
}

// PlayQueue attaches to a server play queue and plays its selected item.
func (m *Manager) PlayQueue(ctx context.Context, id int64, opts PlayOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// the queue refreshes in the background for the whole session, past the caller's ctx
	q, err := playqueue.NewRemote(m.ctx, m.library, id, playqueue.RemoteConfig{RefreshDelay: m.config.RefreshDelay})
	if err != nil {
		return errors.Wrapf(err, "failed to load play queue %d", id)
	}
	current := q.Current()
	if current == nil {
		return errors.Wrapf(ErrEmptyQueue, "play queue %d", id)
	}

	if current.IsVideo() {
		if opts.Offset > 0 {
			current.ViewOffset = opts.Offset
		}
		zlog.Info().Msgf("session: playing video queue %d from %s", id, current.RatingKey)
		m.launched()
		m.player.PlayVideoPlaylist(q, opts.Resume || opts.Offset > 0)
		return nil
	}

	startPos := 0
	for i, item := range q.Items() {
		if item.PlayQueueItemID == current.PlayQueueItemID {
			startPos = i
			break
		}
	}
	zlog.Info().Msgf("session: playing audio queue %d from position %d", id, startPos)
	m.launched()
	m.player.PlayAudioPlaylist(q, startPos, nil, "")
	return nil
}

// PlayMedia plays a media key, through its play queue when containerKey names one.
func (m *Manager) PlayMedia(ctx context.Context, key, containerKey string, offset int64) error {
	opts := PlayOptions{Offset: offset}
	if id, ok := PlayQueueID(containerKey); ok {
		return m.PlayQueue(ctx, id, opts)
	}
	ratingKey, err := RatingKey(key)
	if err != nil {
		return err
	}
	return m.PlayKey(ctx, ratingKey, opts)
}

// RatingKey extracts the rating key from a metadata key such as /library/metadata/42.
// A bare rating key is returned as is.
func RatingKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.Wrap(ErrInvalidKey, "empty key")
	}
	if !strings.Contains(key, "/") {
		return key, nil
	}
	rest, ok := strings.CutPrefix(key, "/library/metadata/")
	if !ok {
		return "", errors.Wrapf(ErrInvalidKey, "%q", key)
	}
	rk, _, _ := strings.Cut(rest, "/")
	if rk == "" {
		return "", errors.Wrapf(ErrInvalidKey, "%q", key)
	}
	return rk, nil
}

// PlayQueueID extracts the play queue ID from a container key such as /playQueues/9?own=1.
func PlayQueueID(containerKey string) (int64, bool) {
	rest, ok := strings.CutPrefix(containerKey, "/playQueues/")
	if !ok {
		return 0, false
	}
	if i := strings.IndexAny(rest, "?/"); i >= 0 {
		rest = rest[:i]
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
