// Package playback provides the playback session controller: the monitor loop that
// polls the renderer, the event dispatcher, and the video/audio handlers that keep the
// remote server's timeline and play queue in sync with local playback.
package playback

// SeekState represents the seek protocol state of a SeekHandler.
type SeekState int

const (
	NoSeek         SeekState = iota // Idle
	SeekInit                        // Renderer-initiated seek, dialog opening
	SeekInProgress                  // Stream re-requested at a new offset
	SeekPlaylist                    // Advancing to another queue item
)

// String returns the string representation of the seek state.
func (s SeekState) String() string {
	switch s {
	case NoSeek:
		return "no_seek"
	case SeekInit:
		return "seek_init"
	case SeekInProgress:
		return "seek_in_progress"
	case SeekPlaylist:
		return "seek_playlist"
	default:
		return "unknown"
	}
}

// endsSession reports whether a stop/end observed in this state finishes the session.
func (s SeekState) endsSession() bool {
	return s != SeekInProgress && s != SeekPlaylist
}

// SeekMode represents how seeks are applied to the current stream.
type SeekMode int

const (
	ModeAbsolute SeekMode = iota // Stream can be time-seeked in place
	ModeRelative                 // Stream must be re-requested with the offset baked in
)

// String returns the string representation of the seek mode.
func (m SeekMode) String() string {
	switch m {
	case ModeAbsolute:
		return "absolute"
	case ModeRelative:
		return "relative"
	default:
		return "unknown"
	}
}

// PlayState is the play state reported in timelines.
type PlayState string

const (
	StateStopped   PlayState = "stopped"
	StatePlaying   PlayState = "playing"
	StatePaused    PlayState = "paused"
	StateBuffering PlayState = "buffering"
)

// TimelineKind is the media kind reported in timelines.
type TimelineKind string

const (
	KindVideo TimelineKind = "video"
	KindMusic TimelineKind = "music"
)

// Signals emitted to the surrounding application.
const (
	SignalSessionEnded    = "session.ended"
	SignalPlaylistChanged = "playlist.changed"
	SignalCronTick        = "cron.tick"
)

type controlCommand int

const (
	controlPlay controlCommand = iota
	controlPause
)
