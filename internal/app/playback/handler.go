package playback

import (
	zlog "github.com/rs/zerolog/log"
)

// baseHandler holds the state shared by both handler variants.
type baseHandler struct {
	player     *Player
	baseOffset float64 // seconds
	playQueue  Queue
	timeline   timelineReporter
	clock      func() float64
}

func newBaseHandler(p *Player, kind TimelineKind) baseHandler {
	b := baseHandler{
		player:   p,
		timeline: timelineReporter{sink: p.timeline, kind: kind},
	}
	b.clock = func() float64 { return p.currentTime }
	return b
}

// trueTime is the position within the item, in seconds.
func (b *baseHandler) trueTime() float64 {
	return b.baseOffset + b.clock()
}

func (b *baseHandler) updateNowPlaying(opts reportOptions) bool {
	state := opts.state
	if state == "" {
		state = b.player.playState()
	}
	return b.timeline.report(b.player.playerObject, state, b.trueTime(), b.playQueue, opts)
}

func (b *baseHandler) sessionEnded() {
	zlog.Debug().Msg("player: session ended")
	b.player.emit(SignalSessionEnded)
}

func (b *baseHandler) OnPlayBackStarted() {}
func (b *baseHandler) OnPlayBackPaused() {}
func (b *baseHandler) OnPlayBackResumed() {}
func (b *baseHandler) OnPlayBackStopped() {}
func (b *baseHandler) OnPlayBackEnded() {}
func (b *baseHandler) OnPlayBackSeek(_, _ float64) {}
func (b *baseHandler) OnPlayBackFailed() bool { return false }
func (b *baseHandler) OnVideoWindowOpened() {}
func (b *baseHandler) OnVideoWindowClosed() {}
func (b *baseHandler) OnVideoOSD() {}
func (b *baseHandler) OnSeekOSD() {}
func (b *baseHandler) OnMonitorInit() {}
func (b *baseHandler) Tick() {}
func (b *baseHandler) Close() {}
