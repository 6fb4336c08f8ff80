package playback

import (
	zlog "github.com/rs/zerolog/log"
)

// Handler is the active playback state machine. Exactly one handler is active per session.
type Handler interface {
	OnPlayBackStarted()
	OnPlayBackPaused()
	OnPlayBackResumed()
	OnPlayBackStopped()
	OnPlayBackEnded()
	OnPlayBackSeek(stime, offset float64)
	// OnPlayBackFailed reports whether the failure should be surfaced to the user.
	OnPlayBackFailed() bool
	OnVideoWindowOpened()
	OnVideoWindowClosed()
	OnVideoOSD()
	OnSeekOSD()
	OnMonitorInit()
	Tick()
	Close()
}

// dispatch routes a renderer event to the active handler.
func (p *Player) dispatch(ev RendererEvent) {
	switch ev.Type {
	case EventStarted:
		p.onPlayBackStarted()
	case EventPaused:
		p.onPlayBackPaused()
	case EventResumed:
		p.onPlayBackResumed()
	case EventStopped:
		p.onPlayBackStopped()
	case EventEnded:
		p.onPlayBackEnded()
	case EventSeek:
		p.onPlayBackSeek(ev.Time, ev.Offset)
	case EventFailed:
		p.onPlayBackFailed()
	default:
		zlog.Warn().Msgf("player: unknown renderer event %d", ev.Type)
	}
}

func (p *Player) onPlayBackStarted() {
	p.started = true
	zlog.Debug().Msg("player: STARTED")
	if p.handler == nil {
		return
	}
	p.handler.OnPlayBackStarted()
}

func (p *Player) onPlayBackPaused() {
	zlog.Debug().Msg("player: PAUSED")
	if p.handler == nil {
		return
	}
	p.handler.OnPlayBackPaused()
}

func (p *Player) onPlayBackResumed() {
	zlog.Debug().Msg("player: RESUMED")
	if p.handler == nil {
		return
	}
	p.handler.OnPlayBackResumed()
}

func (p *Player) onPlayBackStopped() {
	failed := !p.started
	if failed {
		p.onPlayBackFailed()
	}
	zlog.Debug().Bool("failed", failed).Msg("player: STOPPED")
	if p.handler == nil {
		return
	}
	p.handler.OnPlayBackStopped()
}

func (p *Player) onPlayBackEnded() {
	failed := !p.started
	if failed {
		p.onPlayBackFailed()
	}
	zlog.Debug().Bool("failed", failed).Msg("player: ENDED")
	if p.handler == nil {
		return
	}
	p.handler.OnPlayBackEnded()
}

func (p *Player) onPlayBackSeek(stime, offset float64) {
	zlog.Debug().Msgf("player: SEEK %.3fs (%+.3fs)", stime, offset)
	if p.handler == nil {
		return
	}
	p.handler.OnPlayBackSeek(stime, offset)
}

func (p *Player) onPlayBackFailed() {
	p.failed = true
	if p.handler == nil {
		return
	}
	if p.handler.OnPlayBackFailed() && p.notifier != nil {
		p.notifier.Notify("Playback Failed!")
	}
}

func (p *Player) onVideoWindowOpened() {
	zlog.Debug().Msg("player: video window opened")
	p.safely("video window opened", func(h Handler) { h.OnVideoWindowOpened() })
}

func (p *Player) onVideoWindowClosed() {
	zlog.Debug().Msg("player: video window closed")
	p.safely("video window closed", func(h Handler) { h.OnVideoWindowClosed() })
}

func (p *Player) onVideoOSD() {
	zlog.Debug().Msg("player: video OSD opened")
	p.safely("video OSD", func(h Handler) { h.OnVideoOSD() })
}

func (p *Player) onSeekOSD() {
	zlog.Debug().Msg("player: seek OSD opened")
	p.safely("seek OSD", func(h Handler) { h.OnSeekOSD() })
}

// safely invokes fn on the active handler, logging instead of propagating panics
// so that a failing callback cannot take the monitor down.
func (p *Player) safely(name string, fn func(h Handler)) {
	if p.handler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("player: %s callback panicked: %v", name, r)
		}
	}()
	fn(p.handler)
}
