package mpv

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/plexplayer/internal/app/playback"
)

const observePause uint64 = 1

// Renderer drives an mpv engine as the player's renderer.
// mpv keeps no per-entry metadata, so the native playlist is mirrored here.
type Renderer struct {
	engine Engine
	opts   Options

	mu          sync.Mutex
	entries     []playback.ListItem
	pos         int
	listener    func(playback.RendererEvent)
	loaded      bool
	resolved    bool // An entry loaded since the last Play or PlayPlaylist
	paused      bool
	stopping    bool // Stop was requested; the next end-file is a stop
	suppressEnd bool // The next end-file belongs to a replaced or cleared entry
	lastTime    float64
	showInfo    bool
}

var _ playback.Renderer = (*Renderer)(nil)

// NewRenderer creates a renderer on top of engine.
func NewRenderer(engine Engine, opts Options) *Renderer {
	return &Renderer{
		engine: engine,
		opts:   opts,
	}
}

// Run delivers engine events to the registered listener until ctx is cancelled
// or the engine shuts down.
func (r *Renderer) Run(ctx context.Context) {
	if err := r.engine.ObserveFlag(observePause, "pause"); err != nil {
		zlog.Warn().Err(err).Msg("mpv: failed to observe pause")
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		ev := r.engine.WaitEvent(time.Second)
		if ev.ID == EventShutdown {
			zlog.Info().Msg("mpv: engine shut down")
			return
		}
		r.handleEvent(ev)
	}
}

// Close destroys the engine.
func (r *Renderer) Close() {
	r.engine.Destroy()
}

func (r *Renderer) handleEvent(ev Event) {
	switch ev.ID {
	case EventStartFile:
		r.mu.Lock()
		r.loaded = false
		r.mu.Unlock()

	case EventFileLoaded:
		r.mu.Lock()
		r.loaded = true
		r.resolved = true
		r.stopping = false
		r.suppressEnd = false
		r.lastTime = 0
		r.syncPosLocked()
		r.mu.Unlock()
		r.emit(playback.RendererEvent{Type: playback.EventStarted})

	case EventEndFile:
		r.mu.Lock()
		wasLoaded := r.loaded
		r.loaded = false
		var (
			typ  playback.EventType
			send = true
		)
		switch {
		case r.suppressEnd:
			r.suppressEnd = false
			send = false
		case r.stopping:
			r.stopping = false
			typ = playback.EventStopped
		case !wasLoaded:
			typ = playback.EventFailed
		case r.pos+1 < len(r.entries):
			// mpv advances to the next entry itself
			send = false
		default:
			typ = playback.EventEnded
		}
		r.mu.Unlock()
		if send {
			r.emit(playback.RendererEvent{Type: typ})
		}

	case EventSeek:
		t, err := r.engine.GetDouble("playback-time")
		if err != nil {
			return
		}
		r.mu.Lock()
		offset := t - r.lastTime
		r.lastTime = t
		r.mu.Unlock()
		r.emit(playback.RendererEvent{Type: playback.EventSeek, Time: t, Offset: offset})

	case EventPropertyChange:
		if ev.Userdata != observePause {
			return
		}
		paused, err := r.engine.GetFlag("pause")
		if err != nil {
			return
		}
		r.mu.Lock()
		changed := r.loaded && paused != r.paused
		r.paused = paused
		r.mu.Unlock()
		if !changed {
			return
		}
		if paused {
			r.emit(playback.RendererEvent{Type: playback.EventPaused})
		} else {
			r.emit(playback.RendererEvent{Type: playback.EventResumed})
		}
	}
}

func (r *Renderer) emit(ev playback.RendererEvent) {
	r.mu.Lock()
	fn := r.listener
	r.mu.Unlock()
	zlog.Debug().Msgf("mpv: %s", ev.Type)
	if fn != nil {
		fn(ev)
	}
}

func (r *Renderer) syncPosLocked() {
	if pos, err := r.engine.GetInt("playlist-pos"); err == nil && pos >= 0 {
		r.pos = int(pos)
	}
}

func (r *Renderer) SetEventListener(fn func(playback.RendererEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = fn
}

func (r *Renderer) Play(item playback.ListItem) error {
	r.mu.Lock()
	r.entries = []playback.ListItem{item}
	r.pos = 0
	r.resolved = false
	r.suppressEnd = r.loaded
	r.stopping = false
	r.mu.Unlock()

	if err := r.engine.Command("loadfile", item.URL, "replace"); err != nil {
		return errors.Wrap(err, "failed to load file")
	}
	if item.Title != "" {
		if err := r.engine.SetString("force-media-title", item.Title); err != nil {
			zlog.Debug().Err(err).Msg("mpv: failed to set title")
		}
	}
	return nil
}

func (r *Renderer) PlayPlaylist(startPos int) error {
	r.mu.Lock()
	if startPos < 0 || startPos >= len(r.entries) {
		r.mu.Unlock()
		return errors.Newf("playlist position %d out of range", startPos)
	}
	r.pos = startPos
	r.resolved = false
	r.suppressEnd = r.loaded
	r.stopping = false
	r.mu.Unlock()

	return errors.Wrap(r.engine.Command("playlist-play-index", strconv.Itoa(startPos)), "failed to start playlist")
}

func (r *Renderer) Stop() error {
	r.mu.Lock()
	r.stopping = r.loaded
	r.mu.Unlock()
	return errors.Wrap(r.engine.Command("stop", "keep-playlist"), "failed to stop")
}

func (r *Renderer) TogglePause() error {
	return errors.Wrap(r.engine.Command("cycle", "pause"), "failed to toggle pause")
}

func (r *Renderer) SeekTime(seconds float64) error {
	return errors.Wrap(r.engine.Command("seek", fmt.Sprintf("%0.3f", seconds), "absolute"), "failed to seek")
}

// Time returns the elapsed time of the current entry in seconds.
func (r *Renderer) Time() (float64, error) {
	t, err := r.engine.GetDouble("playback-time")
	if err != nil {
		return 0, errors.Wrap(err, "failed to read playback time")
	}
	r.mu.Lock()
	r.lastTime = t
	r.mu.Unlock()
	return t, nil
}

// IsPlaying reports whether a medium is loaded, paused or not.
func (r *Renderer) IsPlaying() bool {
	idle, err := r.engine.GetFlag("idle-active")
	return err == nil && !idle
}

func (r *Renderer) IsPlayingVideo() bool {
	return r.IsPlaying() && r.currentKind() == playback.KindVideo
}

func (r *Renderer) IsPlayingAudio() bool {
	return r.IsPlaying() && r.currentKind() == playback.KindMusic
}

// currentKind is empty until the engine has loaded the requested entry.
func (r *Renderer) currentKind() playback.TimelineKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.resolved || r.pos < 0 || r.pos >= len(r.entries) {
		return ""
	}
	return r.entries[r.pos].Kind
}

func (r *Renderer) Condition(c playback.Condition) bool {
	switch c {
	case playback.CondPlaying:
		return r.IsPlaying() && !r.flag("pause")
	case playback.CondPaused:
		return r.IsPlaying() && r.flag("pause")
	case playback.CondCaching:
		return r.flag("paused-for-cache")
	case playback.CondHasMedia:
		return r.IsPlaying()
	case playback.CondVideoOSD:
		return r.flag(r.opts.OSDProperty)
	case playback.CondSeekBar:
		return r.flag(r.opts.SeekBarProperty)
	case playback.CondFullscreen:
		return r.IsPlayingVideo() && r.flag(r.opts.WindowProperty)
	case playback.CondBusyDialog:
		return r.flag("seeking")
	case playback.CondShowInfo:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.showInfo
	}
	return false
}

// flag reads a boolean property; unset names and query failures read as false.
func (r *Renderer) flag(name string) bool {
	if name == "" {
		return false
	}
	v, err := r.engine.GetFlag(name)
	return err == nil && v
}

func (r *Renderer) Execute(a playback.Action) error {
	switch a {
	case playback.ActionCloseVideoOSD:
		return r.engine.Command("script-message", "osc-visibility", "auto", "no-osd")
	case playback.ActionInfo:
		if err := r.engine.Command("script-binding", "stats/display-stats-toggle"); err != nil {
			return err
		}
		r.mu.Lock()
		r.showInfo = !r.showInfo
		r.mu.Unlock()
		return nil
	case playback.ActionRandomOn:
		return r.engine.SetFlag("shuffle", true)
	case playback.ActionRandomOff:
		return r.engine.SetFlag("shuffle", false)
	case playback.ActionSkipNext:
		return r.engine.Command("playlist-next")
	case playback.ActionSkipPrevious:
		return r.engine.Command("playlist-prev")
	}
	return errors.Newf("unsupported action %d", a)
}

func (r *Renderer) Playlist() playback.NativePlaylist {
	return &nativePlaylist{r: r}
}

// CurrentItemInfo reads a metadata field of the current native playlist entry.
func (r *Renderer) CurrentItemInfo(field string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncPosLocked()
	if r.pos < 0 || r.pos >= len(r.entries) {
		return "", ErrNoCurrentItem
	}
	return r.entries[r.pos].Info[field], nil
}

func (r *Renderer) SetSubtitles(path string) error {
	return errors.Wrap(r.engine.Command("sub-add", path, "select"), "failed to add subtitles")
}

// SetSubtitleStream selects the embedded subtitle track with the given container index.
func (r *Renderer) SetSubtitleStream(index int) error {
	count, err := r.engine.GetInt("track-list/count")
	if err != nil {
		return errors.Wrap(err, "failed to read track list")
	}
	for i := range int(count) {
		prefix := fmt.Sprintf("track-list/%d/", i)
		if kind, _ := r.engine.GetString(prefix + "type"); kind != "sub" {
			continue
		}
		ff, err := r.engine.GetInt(prefix + "ff-index")
		if err != nil || int(ff) != index {
			continue
		}
		id, err := r.engine.GetInt(prefix + "id")
		if err != nil {
			return errors.Wrap(err, "failed to read subtitle track id")
		}
		return r.engine.SetString("sid", strconv.FormatInt(id, 10))
	}
	return errors.Newf("no subtitle track with index %d", index)
}

func (r *Renderer) ShowSubtitles(visible bool) error {
	return r.engine.SetFlag("sub-visibility", visible)
}
