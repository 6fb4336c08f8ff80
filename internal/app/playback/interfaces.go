package playback

import "github.com/osa030/plexplayer/internal/domain/media"

// Condition is a boolean UI/player state the renderer can be queried for.
type Condition int

const (
	CondPlaying    Condition = iota // Playing and not paused
	CondPaused                      // Paused
	CondCaching                     // Buffering
	CondHasMedia                    // A medium is loaded
	CondVideoOSD                    // Video on-screen display or info overlay visible
	CondSeekBar                     // Native seek bar visible
	CondFullscreen                  // Fullscreen video window active
	CondBusyDialog                  // Busy dialog visible
	CondShowInfo                    // "Always show info" overlay active
)

// Action is a fire-and-forget renderer UI command.
type Action int

const (
	ActionCloseVideoOSD Action = iota
	ActionInfo
	ActionRandomOn
	ActionRandomOff
	ActionSkipNext
	ActionSkipPrevious
)

// Metadata fields stored on renderer list items.
const (
	InfoComment     = "comment"
	InfoPlayCount   = "playcount"
	InfoTitle       = "title"
	InfoArtist      = "artist"
	InfoAlbum       = "album"
	InfoDiscNumber  = "discnumber"
	InfoTrackNumber = "tracknumber"
	InfoDuration    = "duration"
	InfoMediaType   = "mediatype"
	InfoShowTitle   = "tvshowtitle"
	InfoEpisode     = "episode"
	InfoSeason      = "season"
	InfoYear        = "year"
	InfoPlot        = "plot"
)

// ListItem is what the renderer is asked to play or enqueue.
type ListItem struct {
	URL   string
	Title string
	Thumb string
	Kind  TimelineKind
	Info  map[string]string
	Art   map[string]string
}

// Renderer is the local rendering engine. It can only be commanded and polled.
type Renderer interface {
	Play(item ListItem) error
	PlayPlaylist(startPos int) error
	Stop() error
	TogglePause() error
	SeekTime(seconds float64) error
	Time() (float64, error)

	IsPlaying() bool
	IsPlayingVideo() bool
	IsPlayingAudio() bool
	Condition(c Condition) bool
	Execute(a Action) error

	Playlist() NativePlaylist
	CurrentItemInfo(field string) (string, error)

	SetSubtitles(path string) error
	SetSubtitleStream(index int) error
	ShowSubtitles(visible bool) error

	// SetEventListener registers the callback for natively delivered lifecycle events.
	// The callback may be invoked from any goroutine.
	SetEventListener(fn func(RendererEvent))
}

// NativePlaylist is the renderer's own playlist.
type NativePlaylist interface {
	Add(item ListItem) error
	Remove(pos int) error
	Swap(pos1, pos2 int) error
	Clear() error
	Position() int
	Size() int
	SetInfo(pos int, field, value string) error
	Shuffle() error
}

// Server resolves streams on the remote content server.
type Server interface {
	BuildStream(item *media.Item, offset int64, forceUpdate bool) (media.StreamInfo, error)
	TrackURL(item *media.Item) string
	SubtitleURL(item *media.Item, stream *media.MediaStream) string
	ImageURL(path string, width, height int) string
	ClientIdentifier() string
}

// Queue is an ordered list of items, either a local playlist or a remote play queue.
type Queue interface {
	Current() *media.Item
	Next() bool
	Prev() bool
	SetCurrent(pos int) bool
	HasNext() bool
	IsRemote() bool
	StartShuffled() bool
	Items() []*media.Item
	Refresh(delay bool)
	OnItemsChanged(fn func())
	SetSelectedID(id int64)
	MarkRefreshOnTimeline()
}

// Timeline is a now-playing report.
type Timeline struct {
	Kind   TimelineKind
	Object *media.PlayerObject
	State  PlayState
	TimeMs int64
	Queue  Queue
}

// TimelineSink receives timeline reports. Implementations must not block.
type TimelineSink interface {
	ReportTimeline(t Timeline)
}

// SeekDialog is the scrub/preview overlay.
type SeekDialog interface {
	Setup(duration, offset int64, bifURL, title, title2 string)
	Show()
	Close()
	Update(offset int64, fromSeek bool)
	Tick()
	IsOpen() bool
}

// Window is a display window tied to audio playback.
type Window interface {
	DoClose()
}

// Notifier shows user-visible notifications.
type Notifier interface {
	Notify(message string)
}

// Signaler emits application-level signals.
type Signaler interface {
	Emit(name string)
}

// SettingsStore reads and writes persisted user settings.
type SettingsStore interface {
	Setting(id string) (any, bool)
	SetSetting(id string, value any) error
}
