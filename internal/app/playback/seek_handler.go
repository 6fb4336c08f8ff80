package playback

import (
	zlog "github.com/rs/zerolog/log"
)

// SeekHandler drives video playback: the seek dialog, both seek modes and queue advancement.
type SeekHandler struct {
	baseHandler

	dialog   SeekDialog
	playlist Queue

	duration    int64 // ms
	offset      int64 // ms; pending requested offset
	seeking     SeekState
	seekOnStart int64 // ms
	mode        SeekMode
	stopping    bool // Stop was requested by the user; do not advance
}

func newSeekHandler(p *Player) *SeekHandler {
	h := &SeekHandler{
		baseHandler: newBaseHandler(p, KindVideo),
		dialog:      p.dialogs(),
	}
	h.reset()
	return h
}

func (h *SeekHandler) reset() {
	h.duration = 0
	h.offset = 0
	h.baseOffset = 0
	h.seeking = NoSeek
	h.seekOnStart = 0
	h.mode = ModeRelative
	h.stopping = false
}

// State returns the seek state.
func (h *SeekHandler) State() SeekState { return h.seeking }

// Mode returns the seek mode of the current stream.
func (h *SeekHandler) Mode() SeekMode { return h.mode }

// Offset returns the pending requested offset in milliseconds.
func (h *SeekHandler) Offset() int64 { return h.offset }

func (h *SeekHandler) setup(duration, offset int64, bifURL, title, title2 string, seeking SeekState) {
	h.baseOffset = float64(offset) / 1000.0
	h.seeking = seeking
	h.duration = duration
	h.stopping = false
	h.dialog.Setup(duration, offset, bifURL, title, title2)
}

// Next advances the queue and plays the new current item.
func (h *SeekHandler) Next() bool {
	if h.playlist == nil || !h.playlist.Next() {
		return false
	}
	return h.playCurrent()
}

// Prev steps the queue back and plays the new current item.
func (h *SeekHandler) Prev() bool {
	if h.playlist == nil || !h.playlist.Prev() {
		return false
	}
	return h.playCurrent()
}

// PlayAt repositions the queue and plays the item at pos.
func (h *SeekHandler) PlayAt(pos int) bool {
	if h.playlist == nil || !h.playlist.SetCurrent(pos) {
		return false
	}
	return h.playCurrent()
}

func (h *SeekHandler) playCurrent() bool {
	h.seeking = SeekPlaylist
	h.player.playVideoPlaylist(h.playlist, true, h)
	return true
}

// Seek moves playback to offset (ms). A mode change forces the stream to be re-requested.
func (h *SeekHandler) Seek(offset int64, modeChanged bool) {
	if h.mode == ModeAbsolute && !modeChanged {
		h.offset = offset
		zlog.Debug().Msgf("player: new player offset: %d", h.offset)
		h.seekAbsolute(offset)
		return
	}

	h.seeking = SeekInProgress
	h.offset = offset
	zlog.Debug().Msgf("player: new player offset: %d", h.offset)
	h.player.playVideoAt(offset, h.seeking, modeChanged)
}

func (h *SeekHandler) seekAbsolute(target int64) {
	if target != 0 {
		h.seekOnStart = target
	}
	if h.seekOnStart == 0 {
		return
	}
	h.player.control(controlPlay)
	h.player.logRendererErr("seek", h.player.renderer.SeekTime(float64(h.seekOnStart)/1000.0))
}

// SeekAborted resumes playback after the dialog was dismissed without seeking.
func (h *SeekHandler) SeekAborted() {
	if h.seeking != NoSeek {
		h.seeking = NoSeek
		h.player.control(controlPlay)
	}
}

func (h *SeekHandler) updateOffset() {
	if t, err := h.player.renderer.Time(); err == nil {
		h.offset = int64(t * 1000)
	}
}

func (h *SeekHandler) showSeekDialog(fromSeek bool) {
	r := h.player.renderer
	h.player.logRendererErr("close OSD", r.Execute(ActionCloseVideoOSD))
	if r.Condition(CondShowInfo) {
		h.player.logRendererErr("info", r.Execute(ActionInfo))
	}
	h.updateOffset()
	h.dialog.Update(h.offset, fromSeek)
	h.dialog.Show()
}

func (h *SeekHandler) closeSeekDialog() {
	h.player.forceTick()
	h.dialog.Close()
}

func (h *SeekHandler) OnPlayBackStarted() {
	h.updateNowPlaying(reportOptions{refreshQueue: true})
	if h.mode == ModeAbsolute {
		h.seekAbsolute(0)
	}
	h.applySubtitles()
	h.seeking = NoSeek
}

func (h *SeekHandler) applySubtitles() {
	video := h.player.video
	if video == nil {
		return
	}
	subs := video.SelectedSubtitleStream()
	if subs == nil {
		return
	}

	r := h.player.renderer
	h.player.sleep(h.player.cfg.SubtitleDelay)
	h.player.logRendererErr("hide subtitles", r.ShowSubtitles(false))
	if path := h.player.server.SubtitleURL(video, subs); path != "" {
		zlog.Debug().Msgf("player: setting subtitle path: %s", path)
		h.player.logRendererErr("subtitles", r.SetSubtitles(path))
	} else {
		zlog.Debug().Msgf("player: enabling embedded subtitles at: %d", subs.Index)
		h.player.logRendererErr("subtitle stream", r.SetSubtitleStream(subs.Index))
	}
	h.player.logRendererErr("show subtitles", r.ShowSubtitles(true))
}

func (h *SeekHandler) OnPlayBackResumed() {
	h.updateNowPlaying(reportOptions{})
	h.closeSeekDialog()
}

func (h *SeekHandler) OnPlayBackPaused() {
	h.updateNowPlaying(reportOptions{})
}

func (h *SeekHandler) OnPlayBackStopped() {
	h.finish()
}

func (h *SeekHandler) OnPlayBackEnded() {
	h.finish()
}

// finish handles a stop or end of the current stream.
func (h *SeekHandler) finish() {
	h.updateNowPlaying(reportOptions{})

	// Only an idle handler advances: a re-requested stream or a queue step
	// stops the previous stream on its own.
	if !h.stopping && (h.seeking == NoSeek || h.seeking == SeekInit) && h.Next() {
		return
	}

	if h.seeking != SeekPlaylist {
		h.closeSeekDialog()
	}
	if h.seeking.endsSession() {
		h.sessionEnded()
	}
}

func (h *SeekHandler) OnPlayBackSeek(stime, offset float64) {
	if h.seekOnStart != 0 {
		h.seekOnStart = 0
		return
	}

	h.seeking = SeekInit
	h.player.control(controlPause)
	h.updateOffset()
	h.showSeekDialog(true)
}

func (h *SeekHandler) OnPlayBackFailed() bool {
	surface := h.seeking != SeekPlaylist
	if surface {
		h.sessionEnded()
	}
	h.seeking = NoSeek
	return surface
}

func (h *SeekHandler) OnSeekOSD() {
	if h.dialog.IsOpen() {
		h.closeSeekDialog()
		h.showSeekDialog(false)
	}
}

func (h *SeekHandler) OnVideoWindowClosed() {
	h.closeSeekDialog()
	zlog.Debug().Msgf("player: video window closed - seeking=%s", h.seeking)
	if h.seeking != NoSeek {
		return
	}
	// Same as a user stop: the session ends on the stop event without advancing.
	h.stopping = true
	h.player.logRendererErr("stop", h.player.renderer.Stop())
}

func (h *SeekHandler) OnVideoOSD() {
	h.showSeekDialog(false)
}

func (h *SeekHandler) Tick() {
	h.updateNowPlaying(reportOptions{force: true})
	h.dialog.Tick()
}

func (h *SeekHandler) Close() {
	h.closeSeekDialog()
}
