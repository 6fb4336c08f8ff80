package playback

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/plexplayer/internal/domain/media"
)

// Errors
var (
	ErrAborted              = errors.New("player aborted")
	ErrTrackInfoUnavailable = errors.New("track info unavailable")
)

// Config holds player timing configuration.
type Config struct {
	PollInterval  time.Duration // Renderer poll cadence
	TickEvery     int           // Handler tick decimation, in polls
	TokenAttempts int           // Correlation token read-back attempts
	TokenInterval time.Duration // Delay between token read-back attempts
	StopSettle    time.Duration // Extra wait after the renderer reports stopped
	SubtitleDelay time.Duration // Delay before subtitles are applied on start
	Platform      string        // X-Plex-Platform sent with video stream URLs
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.TickEvery <= 0 {
		c.TickEvery = 10
	}
	if c.TokenAttempts <= 0 {
		c.TokenAttempts = 10
	}
	if c.TokenInterval <= 0 {
		c.TokenInterval = 100 * time.Millisecond
	}
	if c.StopSettle <= 0 {
		c.StopSettle = 200 * time.Millisecond
	}
	if c.SubtitleDelay <= 0 {
		c.SubtitleDelay = 100 * time.Millisecond
	}
	if c.Platform == "" {
		c.Platform = "Chrome"
	}
	return c
}

// Deps are the collaborators of the player.
type Deps struct {
	Renderer Renderer
	Server   Server
	Timeline TimelineSink
	Dialogs  func() SeekDialog
	Notifier Notifier
	Signals  Signaler
	Settings SettingsStore
}

// Player owns the playback session. All session state is mutated on the monitor
// goroutine; other goroutines hand work over through the command queue.
type Player struct {
	cfg      Config
	renderer Renderer
	server   Server
	timeline TimelineSink
	dialogs  func() SeekDialog
	notifier Notifier
	signals  Signaler

	seekSteps *SettingControl
	seekDelay *SettingControl

	// Session state, owned by the monitor goroutine
	handler      Handler
	started      bool
	failed       bool // Failure already reported for the current request
	video        *media.Item
	playerObject *media.PlayerObject
	currentTime  float64
	hasOSD       bool
	hasSeekOSD   bool

	commands chan func()
	events   chan RendererEvent

	mu      sync.Mutex
	running bool
	closed  atomic.Bool

	ctx context.Context
}

// New creates a player. The monitor goroutine stops for good once ctx is cancelled.
func New(ctx context.Context, cfg Config, deps Deps) *Player {
	p := &Player{
		cfg:       cfg.withDefaults(),
		renderer:  deps.Renderer,
		server:    deps.Server,
		timeline:  deps.Timeline,
		dialogs:   deps.Dialogs,
		notifier:  deps.Notifier,
		signals:   deps.Signals,
		seekSteps: NewSettingControl(deps.Settings, SettingSeekSteps, "Seek steps", []int{-10, 10}),
		seekDelay: NewSettingControl(deps.Settings, SettingSeekDelay, "Seek delay", 0),
		commands:  make(chan func(), 64),
		events:    make(chan RendererEvent, 256),
		ctx:       ctx,
	}
	if p.dialogs == nil {
		p.dialogs = func() SeekDialog { return nopDialog{} }
	}
	p.handler = newQueueHandler(p, nil)
	if p.renderer.Condition(CondHasMedia) {
		p.started = true
	}
	p.renderer.SetEventListener(p.handleRendererEvent)
	return p
}

// Open (re)starts the monitor goroutine.
func (p *Player) Open() {
	p.closed.Store(false)
	p.monitor()
}

// Close asks the monitor goroutine to tear the session down.
func (p *Player) Close() {
	p.closed.Store(true)
}

func (p *Player) alive() bool {
	return p.ctx.Err() == nil && !p.closed.Load()
}

// submit hands fn to the monitor goroutine.
func (p *Player) submit(fn func()) {
	select {
	case p.commands <- fn:
	case <-p.ctx.Done():
	}
}

// Do runs fn on the monitor goroutine, starting it if needed.
func (p *Player) Do(fn func()) {
	p.submit(fn)
	p.Open()
}

// handleRendererEvent queues ev for the monitor goroutine. Events arriving while
// no session is monitored are dropped.
func (p *Player) handleRendererEvent(ev RendererEvent) {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()
	if !running {
		zlog.Debug().Msgf("player: no session, dropping %s event", ev.Type)
		return
	}
	select {
	case p.events <- ev:
	case <-p.ctx.Done():
	}
}

func (p *Player) runCommand(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("player: command panicked: %v", r)
		}
	}()
	fn()
}

// drainEvents dispatches the renderer events already queued.
func (p *Player) drainEvents() {
	for {
		select {
		case ev := <-p.events:
			p.runCommand(func() { p.dispatch(ev) })
		default:
			return
		}
	}
}

// wait sleeps for d while dispatching renderer events and running queued commands.
// Renderer events go first. It returns false if the player was aborted.
func (p *Player) wait(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		p.drainEvents()
		select {
		case <-p.ctx.Done():
			return false
		case ev := <-p.events:
			p.runCommand(func() { p.dispatch(ev) })
		case fn := <-p.commands:
			p.runCommand(fn)
		case <-timer.C:
			return true
		}
	}
}

// settle is wait for use inside a command: renderer events are dispatched but
// queued commands stay queued until the current one returns.
func (p *Player) settle(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		p.drainEvents()
		select {
		case <-p.ctx.Done():
			return false
		case ev := <-p.events:
			p.runCommand(func() { p.dispatch(ev) })
		case <-timer.C:
			return true
		}
	}
}

// sleep is wait without running queued commands.
func (p *Player) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-p.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (p *Player) reset() {
	p.video = nil
	p.started = false
	p.failed = false
	p.playerObject = nil
	p.handler = newQueueHandler(p, nil)
	p.currentTime = 0
}

func (p *Player) emit(name string) {
	if p.signals != nil {
		p.signals.Emit(name)
	}
}

// forceTick refreshes cron-driven UI without waiting for the next handler tick.
func (p *Player) forceTick() {
	p.emit(SignalCronTick)
}

func (p *Player) control(cmd controlCommand) {
	switch cmd {
	case controlPlay:
		zlog.Debug().Msg("player: control play")
		if p.renderer.Condition(CondPaused) || !p.renderer.Condition(CondPlaying) {
			zlog.Debug().Msg("player: control playing")
			p.logRendererErr("toggle pause", p.renderer.TogglePause())
		}
	case controlPause:
		zlog.Debug().Msg("player: control pause")
		if !p.renderer.Condition(CondPaused) {
			zlog.Debug().Msg("player: control pausing")
			p.logRendererErr("toggle pause", p.renderer.TogglePause())
		}
	}
}

func (p *Player) playState() PlayState {
	switch {
	case p.renderer.Condition(CondPlaying):
		return StatePlaying
	case p.renderer.Condition(CondCaching):
		return StateBuffering
	case p.renderer.Condition(CondPaused):
		return StatePaused
	default:
		return StateStopped
	}
}

// stampTime records the renderer's elapsed time. Query failures keep the last sample.
func (p *Player) stampTime() {
	if t, err := p.renderer.Time(); err == nil {
		p.currentTime = t
	}
}

func (p *Player) logRendererErr(op string, err error) {
	if err != nil {
		zlog.Warn().Err(err).Msgf("player: renderer %s failed", op)
	}
}

func (p *Player) stopAndWait() {
	if !p.renderer.IsPlaying() {
		return
	}
	zlog.Debug().Msg("player: stopping and waiting...")
	p.logRendererErr("stop", p.renderer.Stop())
	for p.settle(p.cfg.PollInterval) && p.renderer.IsPlaying() {
	}
	p.settle(p.cfg.StopSettle)
	zlog.Debug().Msg("player: stopping and waiting...done")
}

func (p *Player) play(item ListItem) {
	p.started = false
	p.failed = false
	p.logRendererErr("play", p.renderer.Play(item))
}

func (p *Player) playPlaylist(startPos int) {
	p.started = false
	p.failed = false
	p.logRendererErr("play playlist", p.renderer.PlayPlaylist(startPos))
}

// PlayVideo plays a single video, optionally resuming from its view offset.
func (p *Player) PlayVideo(video *media.Item, resume, forceUpdate bool) {
	p.Do(func() { p.playVideo(video, resume, forceUpdate) })
}

// PlayVideoPlaylist plays the current item of q and advances through it.
func (p *Player) PlayVideoPlaylist(q Queue, resume bool) {
	p.Do(func() { p.playVideoPlaylist(q, resume, nil) })
}

// PlayAudio plays a single track.
func (p *Player) PlayAudio(track *media.Item, window Window, fanart string) {
	p.Do(func() { p.playAudio(track, window, fanart) })
}

// PlayAlbum plays the given album tracks starting at startPos (-1 for the first).
func (p *Player) PlayAlbum(tracks []*media.Item, startPos int, window Window, fanart string) {
	p.Do(func() { p.playAlbum(tracks, startPos, window, fanart) })
}

// PlayAudioPlaylist plays the items of q starting at startPos (-1 for the first).
func (p *Player) PlayAudioPlaylist(q Queue, startPos int, window Window, fanart string) {
	p.Do(func() { p.playAudioPlaylist(q, startPos, window, fanart) })
}

func (p *Player) playVideo(video *media.Item, resume, forceUpdate bool) {
	p.handler = newSeekHandler(p)
	p.video = video
	var offset int64
	if resume {
		offset = video.ViewOffset
	}
	p.playVideoAt(offset, NoSeek, forceUpdate)
}

func (p *Player) playVideoPlaylist(q Queue, resume bool, h *SeekHandler) {
	seeking := SeekPlaylist
	if h == nil {
		h = newSeekHandler(p)
		p.handler = h
		seeking = NoSeek
	}
	h.playlist = q
	if q.IsRemote() {
		h.playQueue = q
	}
	p.video = q.Current()
	if p.video == nil {
		zlog.Warn().Msg("player: playlist has no current item")
		return
	}
	var offset int64
	if resume {
		offset = p.video.ViewOffset
	}
	p.playVideoAt(offset, seeking, false)
}

// playVideoAt requests a stream for the current video at offset (ms) and plays it.
func (p *Player) playVideoAt(offset int64, seeking SeekState, forceUpdate bool) {
	h, ok := p.handler.(*SeekHandler)
	if !ok || p.video == nil {
		return
	}

	stream, err := p.server.BuildStream(p.video, offset, forceUpdate)
	if err != nil {
		zlog.Error().Err(err).Msgf("player: failed to build stream for %s", p.video.RatingKey)
		p.onPlayBackFailed()
		return
	}
	p.playerObject = &media.PlayerObject{Item: p.video, Offset: offset, Stream: stream}
	streamURL := p.playerObject.URL()

	indexed := ""
	if stream.BifURL != "" {
		indexed = " - indexed"
	}
	zlog.Debug().Msgf("player: playing URL(+%dms): %s%s", offset, streamURL, indexed)

	h.setup(p.video.Duration, offset, stream.BifURL, p.video.GrandparentTitle, p.video.Title, seeking)
	streamURL = addURLParams(streamURL, map[string]string{
		"X-Plex-Platform":          p.cfg.Platform,
		"X-Plex-Client-Identifier": p.server.ClientIdentifier(),
	})
	item := p.createVideoListItem(p.video, streamURL, 0)

	p.stopAndWait()
	p.play(item)

	if offset != 0 && !stream.IsTranscoded {
		h.seekOnStart = int64(stream.PlayStart * 1000)
		h.mode = ModeAbsolute
		// the direct stream is reopened at zero, so the renderer clock is already true time
		h.baseOffset = 0
	} else {
		h.mode = ModeRelative
	}
}

func (p *Player) playAudio(track *media.Item, window Window, fanart string) {
	p.handler = newQueueHandler(p, window)
	item, err := p.createTrackListItem(track, fanart, 0)
	if err != nil {
		zlog.Error().Err(err).Msgf("player: failed to build track %s", track.RatingKey)
		return
	}
	p.stopAndWait()
	p.play(item)
}

func (p *Player) playAlbum(tracks []*media.Item, startPos int, window Window, fanart string) {
	p.handler = newQueueHandler(p, window)
	if err := p.fillNativePlaylist(tracks, fanart); err != nil {
		zlog.Error().Err(err).Msg("player: failed to build album playlist")
		return
	}
	p.logRendererErr("random off", p.renderer.Execute(ActionRandomOff))
	p.stopAndWait()
	p.playPlaylist(startPos)
}

func (p *Player) playAudioPlaylist(q Queue, startPos int, window Window, fanart string) {
	h := newQueueHandler(p, window)
	p.handler = h
	if err := p.fillNativePlaylist(q.Items(), fanart); err != nil {
		zlog.Error().Err(err).Msg("player: failed to build audio playlist")
		return
	}

	plist := p.renderer.Playlist()
	if q.IsRemote() {
		h.setPlayQueue(q)
	} else if q.StartShuffled() {
		p.logRendererErr("shuffle", plist.Shuffle())
		p.logRendererErr("random on", p.renderer.Execute(ActionRandomOn))
	} else {
		p.logRendererErr("random off", p.renderer.Execute(ActionRandomOff))
	}
	p.stopAndWait()
	p.playPlaylist(startPos)
}

func (p *Player) fillNativePlaylist(tracks []*media.Item, fanart string) error {
	plist := p.renderer.Playlist()
	if err := plist.Clear(); err != nil {
		return errors.Wrap(err, "failed to clear native playlist")
	}
	for i, track := range tracks {
		item, err := p.createTrackListItem(track, fanart, i+1)
		if err != nil {
			return err
		}
		if err := plist.Add(item); err != nil {
			return errors.Wrapf(err, "failed to add track %s", track.RatingKey)
		}
	}
	return nil
}

func (p *Player) createVideoListItem(video *media.Item, streamURL string, index int) ListItem {
	info := map[string]string{
		InfoMediaType: video.VideoType(),
		InfoTitle:     video.Title,
		InfoShowTitle: video.GrandparentTitle,
		InfoEpisode:   strconv.Itoa(video.Index),
		InfoSeason:    strconv.Itoa(video.ParentIndex),
		InfoYear:      strconv.Itoa(video.Year),
		InfoPlot:      video.Summary,
	}
	if index > 0 {
		info[InfoPlayCount] = strconv.Itoa(index)
	}
	return ListItem{
		URL:   streamURL,
		Title: video.Title,
		Thumb: p.server.ImageURL(video.DefaultThumb(), 256, 256),
		Kind:  KindVideo,
		Info:  info,
	}
}

// createTrackListItem builds a native playlist entry whose comment carries the
// correlation token of the track.
func (p *Player) createTrackListItem(track *media.Item, fanart string, index int) (ListItem, error) {
	token, err := media.EncodeToken(track)
	if err != nil {
		return ListItem{}, err
	}

	art := fanart
	if art == "" {
		art = track.Art
	}
	artMap := map[string]string{}
	if art != "" {
		artMap["fanart"] = p.server.ImageURL(art, 1920, 1080)
		artMap["landscape"] = p.server.ImageURL(art, 1920, 1080)
	}
	if fanart != "" {
		artMap["fanart"] = fanart
	}

	return ListItem{
		URL:   p.server.TrackURL(track),
		Title: track.Title,
		Thumb: p.server.ImageURL(track.DefaultThumb(), 256, 256),
		Kind:  KindMusic,
		Info: map[string]string{
			InfoArtist:      track.GrandparentTitle,
			InfoTitle:       track.Title,
			InfoAlbum:       track.ParentTitle,
			InfoDiscNumber:  strconv.Itoa(track.ParentIndex),
			InfoTrackNumber: strconv.Itoa(track.Index),
			InfoDuration:    strconv.FormatInt(track.Duration/1000, 10),
			InfoPlayCount:   strconv.Itoa(index),
			InfoComment:     token,
		},
		Art: artMap,
	}, nil
}

func addURLParams(raw string, params map[string]string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type nopDialog struct{}

func (nopDialog) Setup(int64, int64, string, string, string) {}
func (nopDialog) Show() {}
func (nopDialog) Close() {}
func (nopDialog) Update(int64, bool) {}
func (nopDialog) Tick() {}
func (nopDialog) IsOpen() bool { return false }
