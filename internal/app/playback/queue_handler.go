package playback

import (
	"strconv"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/plexplayer/internal/domain/media"
)

// QueueHandler drives audio playback and keeps the native playlist correlated with the play queue.
type QueueHandler struct {
	baseHandler

	window Window
}

func newQueueHandler(p *Player, window Window) *QueueHandler {
	h := &QueueHandler{
		baseHandler: newBaseHandler(p, KindMusic),
		window:      window,
	}
	h.clock = func() float64 {
		if t, err := p.renderer.Time(); err == nil {
			return t
		}
		return p.currentTime
	}
	return h
}

// extractTrackInfo recovers the currently loaded track from its correlation token.
func (h *QueueHandler) extractTrackInfo() (*media.Item, error) {
	p := h.player
	if !p.renderer.IsPlayingAudio() {
		return nil, errors.Wrap(ErrTrackInfoUnavailable, "not playing audio")
	}

	var token string
	for attempt := 0; attempt < p.cfg.TokenAttempts; attempt++ {
		if attempt > 0 && !p.sleep(p.cfg.TokenInterval) {
			return nil, ErrAborted
		}
		comment, err := p.renderer.CurrentItemInfo(InfoComment)
		if err != nil {
			zlog.Debug().Err(err).Msg("player: track comment not readable yet")
			continue
		}
		if comment != "" {
			token = comment
			break
		}
	}
	if token == "" {
		return nil, errors.Wrapf(ErrTrackInfoUnavailable, "no token after %d attempts", p.cfg.TokenAttempts)
	}

	item, err := media.ParseToken(token)
	if err != nil {
		return nil, err
	}
	p.playerObject = media.NewAudioPlayerObject(item)
	if h.playQueue != nil {
		h.playQueue.SetSelectedID(item.PlayQueueItemID)
	}
	return item, nil
}

func (h *QueueHandler) recoverTrack() {
	if _, err := h.extractTrackInfo(); err != nil {
		zlog.Warn().Err(err).Msg("player: failed to recover track identity")
	}
}

func (h *QueueHandler) setPlayQueue(pq Queue) {
	h.playQueue = pq
	pq.OnItemsChanged(func() {
		h.player.submit(func() {
			if h.player.handler != Handler(h) {
				return
			}
			if err := h.reconcilePlaylist(); err != nil {
				zlog.Error().Err(err).Msg("player: failed to reconcile playlist")
			}
		})
	})
}

// reconcilePlaylist rebuilds the native playlist from the play queue around the
// entry that is currently playing.
func (h *QueueHandler) reconcilePlaylist() error {
	p := h.player
	if h.playQueue == nil {
		return nil
	}
	plist := p.renderer.Playlist()

	comment, err := p.renderer.CurrentItemInfo(InfoComment)
	if err != nil {
		return errors.Wrap(err, "failed to read current track token")
	}
	anchorID, _, err := media.SplitToken(comment)
	if err != nil {
		return err
	}
	zlog.Debug().Msgf("player: updating playlist around %s", anchorID)

	current := plist.Position()
	for pos := plist.Size() - 1; pos > current; pos-- {
		if err := plist.Remove(pos); err != nil {
			return errors.Wrapf(err, "failed to remove native entry %d", pos)
		}
	}
	for i := 0; i < current; i++ {
		if err := plist.Remove(0); err != nil {
			return errors.Wrap(err, "failed to remove leading native entry")
		}
	}

	swap := -1
	for idx, track := range h.playQueue.Items() {
		item, err := p.createTrackListItem(track, "", idx+1)
		if err != nil {
			return err
		}
		if media.TokenID(track.RatingKey) == anchorID {
			swap = idx
		}
		if err := plist.Add(item); err != nil {
			return errors.Wrapf(err, "failed to add track %s", track.RatingKey)
		}
	}

	if swap >= 0 {
		zlog.Debug().Msgf("player: swapping anchor with %d", swap+1)
		if err := plist.SetInfo(0, InfoPlayCount, strconv.Itoa(swap+1)); err != nil {
			return errors.Wrap(err, "failed to set anchor position")
		}
		if err := plist.Swap(0, swap+1); err != nil {
			return errors.Wrap(err, "failed to swap anchor")
		}
	}
	// The anchor left the queue or its rebuilt duplicate now takes its place
	if err := plist.Remove(0); err != nil {
		return errors.Wrap(err, "failed to remove anchor duplicate")
	}

	p.emit(SignalPlaylistChanged)
	return nil
}

func (h *QueueHandler) updatePlayQueue(delay bool) {
	if h.playQueue == nil {
		return
	}
	h.playQueue.Refresh(delay)
}

func (h *QueueHandler) stampCurrentTime() {
	h.player.stampTime()
}

func (h *QueueHandler) closeWindow() {
	if h.window == nil {
		return
	}
	h.window.DoClose()
	h.window = nil
}

func (h *QueueHandler) OnMonitorInit() {
	h.recoverTrack()
	h.updateNowPlaying(reportOptions{state: StatePlaying})
}

func (h *QueueHandler) OnPlayBackStarted() {
	h.updatePlayQueue(true)
	h.recoverTrack()
	h.updateNowPlaying(reportOptions{state: StatePlaying})
}

func (h *QueueHandler) OnPlayBackResumed() {
	h.updateNowPlaying(reportOptions{state: StatePlaying})
}

func (h *QueueHandler) OnPlayBackPaused() {
	h.updateNowPlaying(reportOptions{state: StatePaused})
}

func (h *QueueHandler) OnPlayBackStopped() {
	h.updatePlayQueue(false)
	h.updateNowPlaying(reportOptions{state: StateStopped})
	h.closeWindow()
}

func (h *QueueHandler) OnPlayBackEnded() {
	h.updatePlayQueue(false)
	h.updateNowPlaying(reportOptions{state: StateStopped})
	h.closeWindow()
}

func (h *QueueHandler) OnPlayBackFailed() bool {
	return true
}

func (h *QueueHandler) Tick() {
	h.stampCurrentTime()
	h.updateNowPlaying(reportOptions{force: true})
}
