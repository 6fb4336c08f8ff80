package playback

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/osa030/plexplayer/internal/domain/media"
)

type fakeEntry struct {
	id   int
	item ListItem
}

type fakePlaylist struct {
	entries  []fakeEntry
	pos      int
	nextID   int
	shuffled bool
}

func (f *fakePlaylist) Add(item ListItem) error {
	f.nextID++
	info := map[string]string{}
	for k, v := range item.Info {
		info[k] = v
	}
	item.Info = info
	f.entries = append(f.entries, fakeEntry{id: f.nextID, item: item})
	return nil
}

func (f *fakePlaylist) Remove(pos int) error {
	if pos < 0 || pos >= len(f.entries) {
		return fmt.Errorf("position %d out of range", pos)
	}
	f.entries = append(f.entries[:pos], f.entries[pos+1:]...)
	return nil
}

func (f *fakePlaylist) Swap(pos1, pos2 int) error {
	if pos1 < 0 || pos2 < 0 || pos1 >= len(f.entries) || pos2 >= len(f.entries) {
		return fmt.Errorf("swap %d/%d out of range", pos1, pos2)
	}
	f.entries[pos1], f.entries[pos2] = f.entries[pos2], f.entries[pos1]
	return nil
}

func (f *fakePlaylist) Clear() error {
	f.entries = nil
	f.pos = 0
	return nil
}

func (f *fakePlaylist) Position() int { return f.pos }
func (f *fakePlaylist) Size() int { return len(f.entries) }

func (f *fakePlaylist) SetInfo(pos int, field, value string) error {
	if pos < 0 || pos >= len(f.entries) {
		return fmt.Errorf("position %d out of range", pos)
	}
	f.entries[pos].item.Info[field] = value
	return nil
}

func (f *fakePlaylist) Shuffle() error {
	f.shuffled = true
	return nil
}

func (f *fakePlaylist) tokens() []string {
	ids := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		id, _, _ := media.SplitToken(e.item.Info[InfoComment])
		ids = append(ids, id)
	}
	return ids
}

type fakeRenderer struct {
	mu sync.Mutex

	playing  bool
	video    bool
	audio    bool
	conds    map[Condition]bool
	time     float64
	timeErr  error
	comment  string
	playlist *fakePlaylist
	listener func(RendererEvent)

	played      []ListItem
	playlistAt  []int
	seeks       []float64
	actions     []Action
	calls       []string
	subtitles   []string
	subStreams  []int
	commentErrs int
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		conds:    map[Condition]bool{},
		playlist: &fakePlaylist{},
	}
}

func (f *fakeRenderer) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeRenderer) Play(item ListItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("play")
	f.played = append(f.played, item)
	f.playing = true
	f.video = item.Kind == KindVideo
	f.audio = item.Kind == KindMusic
	return nil
}

func (f *fakeRenderer) PlayPlaylist(startPos int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("play_playlist")
	f.playlistAt = append(f.playlistAt, startPos)
	f.playing = true
	f.audio = true
	return nil
}

func (f *fakeRenderer) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stop")
	f.playing = false
	f.video = false
	f.audio = false
	return nil
}

func (f *fakeRenderer) TogglePause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("toggle_pause")
	f.conds[CondPaused] = !f.conds[CondPaused]
	f.conds[CondPlaying] = !f.conds[CondPaused]
	return nil
}

func (f *fakeRenderer) SeekTime(seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("seek")
	f.seeks = append(f.seeks, seconds)
	return nil
}

func (f *fakeRenderer) Time() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.time, f.timeErr
}

func (f *fakeRenderer) IsPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakeRenderer) IsPlayingVideo() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing && f.video
}

func (f *fakeRenderer) IsPlayingAudio() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing && f.audio
}

func (f *fakeRenderer) Condition(c Condition) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conds[c]
}

func (f *fakeRenderer) Execute(a Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, a)
	return nil
}

func (f *fakeRenderer) Playlist() NativePlaylist { return f.playlist }

func (f *fakeRenderer) CurrentItemInfo(field string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if field != InfoComment {
		return "", nil
	}
	if f.commentErrs > 0 {
		f.commentErrs--
		return "", fmt.Errorf("no item loaded")
	}
	return f.comment, nil
}

func (f *fakeRenderer) SetSubtitles(path string) error {
	f.subtitles = append(f.subtitles, path)
	return nil
}

func (f *fakeRenderer) SetSubtitleStream(index int) error {
	f.subStreams = append(f.subStreams, index)
	return nil
}

func (f *fakeRenderer) ShowSubtitles(bool) error { return nil }

func (f *fakeRenderer) SetEventListener(fn func(RendererEvent)) { f.listener = fn }

type fakeServer struct {
	transcoded bool
	offsets    []int64
	built      []string
	err        error
}

func (f *fakeServer) BuildStream(item *media.Item, offset int64, forceUpdate bool) (media.StreamInfo, error) {
	if f.err != nil {
		return media.StreamInfo{}, f.err
	}
	f.offsets = append(f.offsets, offset)
	f.built = append(f.built, item.RatingKey)
	start := 0.0
	if !f.transcoded {
		start = float64(offset) / 1000.0
	}
	return media.StreamInfo{
		URLs:         []string{"http://plex.local/library/parts/" + item.RatingKey + "/file.mkv"},
		IsTranscoded: f.transcoded,
		PlayStart:    start,
	}, nil
}

func (f *fakeServer) TrackURL(item *media.Item) string {
	return "http://plex.local/track/" + item.RatingKey
}

func (f *fakeServer) SubtitleURL(item *media.Item, stream *media.MediaStream) string {
	if stream.Key == "" {
		return ""
	}
	return "http://plex.local" + stream.Key
}

func (f *fakeServer) ImageURL(path string, width, height int) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("http://plex.local/photo?url=%s&w=%d&h=%d", path, width, height)
}

func (f *fakeServer) ClientIdentifier() string { return "test-client" }

type dialogUpdate struct {
	offset   int64
	fromSeek bool
}

type fakeDialog struct {
	setups  []int64
	updates []dialogUpdate
	shows   int
	closes  int
	ticks   int
	open    bool
}

func (f *fakeDialog) Setup(duration, offset int64, bifURL, title, title2 string) {
	f.setups = append(f.setups, offset)
}

func (f *fakeDialog) Show() {
	f.shows++
	f.open = true
}

func (f *fakeDialog) Close() {
	f.closes++
	f.open = false
}

func (f *fakeDialog) Update(offset int64, fromSeek bool) {
	f.updates = append(f.updates, dialogUpdate{offset: offset, fromSeek: fromSeek})
}

func (f *fakeDialog) Tick() { f.ticks++ }
func (f *fakeDialog) IsOpen() bool { return f.open }

type fakeQueue struct {
	items     []*media.Item
	pos       int
	remote    bool
	shuffled  bool
	refreshes []bool
	selected  int64
	marked    int
	onChanged func()
}

func newFakeQueue(keys ...string) *fakeQueue {
	q := &fakeQueue{}
	for i, k := range keys {
		q.items = append(q.items, testItem(k, int64(i+1)))
	}
	return q
}

func (q *fakeQueue) Current() *media.Item {
	if q.pos < 0 || q.pos >= len(q.items) {
		return nil
	}
	return q.items[q.pos]
}

func (q *fakeQueue) Next() bool {
	if !q.HasNext() {
		return false
	}
	q.pos++
	return true
}

func (q *fakeQueue) Prev() bool {
	if q.pos == 0 {
		return false
	}
	q.pos--
	return true
}

func (q *fakeQueue) SetCurrent(pos int) bool {
	if pos < 0 || pos >= len(q.items) {
		return false
	}
	q.pos = pos
	return true
}

func (q *fakeQueue) HasNext() bool { return q.pos+1 < len(q.items) }
func (q *fakeQueue) IsRemote() bool { return q.remote }
func (q *fakeQueue) StartShuffled() bool { return q.shuffled }
func (q *fakeQueue) Items() []*media.Item { return q.items }
func (q *fakeQueue) Refresh(delay bool) { q.refreshes = append(q.refreshes, delay) }
func (q *fakeQueue) OnItemsChanged(fn func()) { q.onChanged = fn }
func (q *fakeQueue) SetSelectedID(id int64) { q.selected = id }
func (q *fakeQueue) MarkRefreshOnTimeline() { q.marked++ }

type fakeSink struct {
	timelines []Timeline
}

func (f *fakeSink) ReportTimeline(t Timeline) {
	f.timelines = append(f.timelines, t)
}

func (f *fakeSink) states() []PlayState {
	states := make([]PlayState, 0, len(f.timelines))
	for _, t := range f.timelines {
		states = append(states, t.State)
	}
	return states
}

type fakeSignals struct {
	mu    sync.Mutex
	names []string
}

func (f *fakeSignals) Emit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
}

func (f *fakeSignals) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.names {
		if s == name {
			n++
		}
	}
	return n
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Notify(message string) {
	f.messages = append(f.messages, message)
}

type fakeSettings struct {
	values  map[string]any
	history []string
	failSet bool
}

func (f *fakeSettings) Setting(id string) (any, bool) {
	v, ok := f.values[id]
	return v, ok
}

func (f *fakeSettings) SetSetting(id string, value any) error {
	if f.failSet {
		return fmt.Errorf("settings are read-only")
	}
	f.history = append(f.history, fmt.Sprintf("%s=%v", id, value))
	f.values[id] = value
	return nil
}

type fakeWindow struct {
	closes int
}

func (f *fakeWindow) DoClose() { f.closes++ }

type testEnv struct {
	player   *Player
	renderer *fakeRenderer
	server   *fakeServer
	dialog   *fakeDialog
	sink     *fakeSink
	signals  *fakeSignals
	notifier *fakeNotifier
	settings *fakeSettings
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	env := &testEnv{
		renderer: newFakeRenderer(),
		server:   &fakeServer{},
		dialog:   &fakeDialog{},
		sink:     &fakeSink{},
		signals:  &fakeSignals{},
		notifier: &fakeNotifier{},
		settings: &fakeSettings{values: map[string]any{
			SettingSeekSteps: []int{-30, -10, 10, 30},
			SettingSeekDelay: 750,
		}},
	}
	env.player = New(ctx, Config{
		PollInterval:  time.Millisecond,
		TokenAttempts: 3,
		TokenInterval: time.Millisecond,
		StopSettle:    time.Millisecond,
		SubtitleDelay: time.Millisecond,
	}, Deps{
		Renderer: env.renderer,
		Server:   env.server,
		Timeline: env.sink,
		Dialogs:  func() SeekDialog { return env.dialog },
		Notifier: env.notifier,
		Signals:  env.signals,
		Settings: env.settings,
	})
	return env
}

func (e *testEnv) seekHandler(t *testing.T) *SeekHandler {
	t.Helper()
	h, ok := e.player.handler.(*SeekHandler)
	if !ok {
		t.Fatalf("active handler is %T, want *SeekHandler", e.player.handler)
	}
	return h
}

func (e *testEnv) queueHandler(t *testing.T) *QueueHandler {
	t.Helper()
	h, ok := e.player.handler.(*QueueHandler)
	if !ok {
		t.Fatalf("active handler is %T, want *QueueHandler", e.player.handler)
	}
	return h
}

func testItem(ratingKey string, pqID int64) *media.Item {
	return &media.Item{
		RatingKey:        ratingKey,
		Key:              "/library/metadata/" + ratingKey,
		Type:             media.TypeTrack,
		Title:            "Track " + ratingKey,
		ParentTitle:      "Album",
		GrandparentTitle: "Artist",
		Duration:         180000,
		PlayQueueItemID:  pqID,
		Server:           "http://plex.local:32400",
	}
}

func testVideo(ratingKey string, viewOffset int64) *media.Item {
	return &media.Item{
		RatingKey:  ratingKey,
		Key:        "/library/metadata/" + ratingKey,
		Type:       media.TypeMovie,
		Title:      "Movie " + ratingKey,
		Duration:   5400000,
		ViewOffset: viewOffset,
		Server:     "http://plex.local:32400",
	}
}

func hasPrefixAll(values []string, prefix string) bool {
	for _, v := range values {
		if !strings.HasPrefix(v, prefix) {
			return false
		}
	}
	return true
}
