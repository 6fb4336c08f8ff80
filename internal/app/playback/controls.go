package playback

import (
	"time"

	"github.com/osa030/plexplayer/internal/domain/media"
)

// Status is a point-in-time view of the session.
type Status struct {
	Kind       TimelineKind
	State      PlayState
	Item       *media.Item
	TimeMs     int64
	DurationMs int64
	Seeking    SeekState
	Mode       SeekMode
	Started    bool
}

// TogglePause pauses or resumes playback.
func (p *Player) TogglePause() {
	p.submit(func() { p.logRendererErr("toggle pause", p.renderer.TogglePause()) })
}

// Pause pauses playback if it is playing.
func (p *Player) Pause() {
	p.submit(func() { p.control(controlPause) })
}

// Resume resumes playback if it is paused.
func (p *Player) Resume() {
	p.submit(func() { p.control(controlPlay) })
}

// Stop stops playback without advancing the queue.
func (p *Player) Stop() {
	p.submit(func() {
		if h, ok := p.handler.(*SeekHandler); ok {
			h.stopping = true
		}
		p.logRendererErr("stop", p.renderer.Stop())
	})
}

// SeekTo seeks the current video to offset (ms), or the current track for audio.
func (p *Player) SeekTo(offset int64) {
	p.submit(func() {
		if h, ok := p.handler.(*SeekHandler); ok {
			h.Seek(offset, false)
			return
		}
		p.logRendererErr("seek", p.renderer.SeekTime(float64(offset)/1000.0))
	})
}

// SeekAborted resumes playback after the seek dialog was dismissed.
func (p *Player) SeekAborted() {
	p.submit(func() {
		if h, ok := p.handler.(*SeekHandler); ok {
			h.SeekAborted()
		}
	})
}

// SkipNext advances to the next queue item.
func (p *Player) SkipNext() {
	p.submit(func() {
		if h, ok := p.handler.(*SeekHandler); ok {
			h.Next()
			return
		}
		p.logRendererErr("skip next", p.renderer.Execute(ActionSkipNext))
	})
}

// SkipPrevious steps back to the previous queue item.
func (p *Player) SkipPrevious() {
	p.submit(func() {
		if h, ok := p.handler.(*SeekHandler); ok {
			h.Prev()
			return
		}
		p.logRendererErr("skip previous", p.renderer.Execute(ActionSkipPrevious))
	})
}

// SkipTo plays the queue item at pos. Only video queues are addressable.
func (p *Player) SkipTo(pos int) {
	p.submit(func() {
		if h, ok := p.handler.(*SeekHandler); ok {
			h.PlayAt(pos)
		}
	})
}

// Snapshot returns the session status. It gives up after timeout if the monitor is busy.
func (p *Player) Snapshot(timeout time.Duration) (Status, bool) {
	result := make(chan Status, 1)
	p.submit(func() { result <- p.status() })

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case s := <-result:
		return s, true
	case <-timer.C:
		return Status{}, false
	case <-p.ctx.Done():
		return Status{}, false
	}
}

func (p *Player) status() Status {
	s := Status{
		State:   p.playState(),
		Started: p.started,
		Kind:    KindMusic,
	}
	if p.playerObject != nil {
		s.Item = p.playerObject.Item
	}

	switch h := p.handler.(type) {
	case *SeekHandler:
		s.Kind = KindVideo
		s.TimeMs = int64(h.trueTime() * 1000)
		s.DurationMs = h.duration
		s.Seeking = h.seeking
		s.Mode = h.mode
	case *QueueHandler:
		s.TimeMs = int64(h.trueTime() * 1000)
		if s.Item != nil {
			s.DurationMs = s.Item.Duration
		}
	}
	return s
}
