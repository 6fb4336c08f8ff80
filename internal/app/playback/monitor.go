package playback

import (
	zlog "github.com/rs/zerolog/log"
)

// monitor starts the monitor goroutine unless it is already running.
func (p *Player) monitor() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	go p.run()
}

func (p *Player) run() {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("player: monitor panicked: %v", r)
		}
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()

		p.emit(SignalSessionEnded)

		// A play request may have raced the shutdown
		if len(p.commands) > 0 && p.alive() {
			p.monitor()
		}
	}()

	zlog.Debug().Msg("player: monitor started")
	for p.alive() {
		if !p.renderer.IsPlaying() {
			if !p.wait(p.cfg.PollInterval) {
				break
			}
			continue
		}

		switch {
		case p.renderer.IsPlayingVideo():
			zlog.Debug().Msg("player: monitoring video...")
			p.videoMonitor()
		case p.renderer.IsPlayingAudio():
			zlog.Debug().Msg("player: monitoring audio...")
			p.audioMonitor()
		default:
			zlog.Debug().Msg("player: monitoring pre-play...")
			p.preplayMonitor()
		}
	}

	if p.handler != nil {
		p.handler.Close()
	}
	p.reset()
	// stale events must not reach the next session
	for len(p.events) > 0 {
		<-p.events
	}
	zlog.Debug().Msg("player: closed")
}

func (p *Player) preplayMonitor() {
	for p.alive() && p.renderer.IsPlaying() && !p.renderer.IsPlayingVideo() && !p.renderer.IsPlayingAudio() {
		if !p.wait(p.cfg.PollInterval) {
			return
		}
	}
	if !p.alive() {
		return
	}
	if !p.renderer.IsPlayingVideo() && !p.renderer.IsPlayingAudio() {
		zlog.Debug().Msg("player: stream never resolved")
		p.drainEvents()
		if !p.failed {
			p.onPlayBackFailed()
		}
		p.reset()
	}
}

func (p *Player) videoMonitor() {
	defer p.seekDelay.Suspend()()
	defer p.seekSteps.Suspend()()

	hasFullScreened := false
	ticks := 0
	for p.alive() && p.renderer.IsPlayingVideo() {
		p.stampTime()
		if !p.wait(p.cfg.PollInterval) {
			break
		}

		if p.renderer.Condition(CondVideoOSD) {
			if !p.hasOSD {
				p.hasOSD = true
				p.onVideoOSD()
			}
		} else {
			p.hasOSD = false
		}

		if p.renderer.Condition(CondSeekBar) {
			if !p.hasSeekOSD {
				p.hasSeekOSD = true
				p.onSeekOSD()
			}
		} else {
			p.hasSeekOSD = false
		}

		if p.renderer.Condition(CondFullscreen) {
			if !hasFullScreened {
				hasFullScreened = true
				p.onVideoWindowOpened()
			}
		} else if hasFullScreened && !p.renderer.Condition(CondBusyDialog) {
			hasFullScreened = false
			p.onVideoWindowClosed()
		}

		ticks++
		if ticks >= p.cfg.TickEvery {
			ticks = 0
			p.safely("tick", func(h Handler) { h.Tick() })
		}
	}

	if hasFullScreened {
		p.onVideoWindowClosed()
	}
}

func (p *Player) audioMonitor() {
	p.started = true
	p.safely("monitor init", func(h Handler) { h.OnMonitorInit() })

	ticks := 0
	for p.alive() && p.renderer.IsPlayingAudio() {
		p.stampTime()
		if !p.wait(p.cfg.PollInterval) {
			break
		}

		ticks++
		if ticks >= p.cfg.TickEvery {
			ticks = 0
			p.safely("tick", func(h Handler) { h.Tick() })
		}
	}

	// idle: the queue ran out or was stopped
	if p.alive() && !p.renderer.IsPlaying() {
		p.drainEvents()
		zlog.Debug().Msg("player: audio session ended")
		p.emit(SignalSessionEnded)
	}
}
