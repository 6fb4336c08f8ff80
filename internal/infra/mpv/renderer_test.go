package mpv

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/plexplayer/internal/app/playback"
)

type eventLog struct {
	mu     sync.Mutex
	events []playback.RendererEvent
}

func (l *eventLog) record(ev playback.RendererEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) types() []playback.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	types := make([]playback.EventType, 0, len(l.events))
	for _, ev := range l.events {
		types = append(types, ev.Type)
	}
	return types
}

func newTestRenderer() (*Renderer, *fakeEngine, *eventLog) {
	engine := newFakeEngine()
	r := NewRenderer(engine, Options{WindowProperty: "vo-configured"})
	log := &eventLog{}
	r.SetEventListener(log.record)
	return r, engine, log
}

func track(url, token string) playback.ListItem {
	return playback.ListItem{
		URL:  url,
		Kind: playback.KindMusic,
		Info: map[string]string{playback.InfoComment: token},
	}
}

func TestRenderer_Play(t *testing.T) {
	r, engine, _ := newTestRenderer()

	err := r.Play(playback.ListItem{URL: "http://plex/file.mkv", Title: "Heat", Kind: playback.KindVideo})
	require.NoError(t, err)

	assert.Equal(t, []string{"loadfile http://plex/file.mkv replace"}, engine.history())
	assert.Equal(t, "Heat", engine.strs["force-media-title"])

	engine.set(func(f *fakeEngine) { f.flags["idle-active"] = false })
	assert.True(t, r.IsPlaying())
	// still loading: neither kind until the file is loaded
	assert.False(t, r.IsPlayingVideo())
	assert.False(t, r.IsPlayingAudio())

	r.handleEvent(Event{ID: EventFileLoaded})
	assert.True(t, r.IsPlayingVideo())
	assert.False(t, r.IsPlayingAudio())
}

func TestRenderer_KindSurvivesPlaylistAdvance(t *testing.T) {
	r, engine, _ := newTestRenderer()
	pl := r.Playlist()
	require.NoError(t, pl.Add(track("a", "")))
	require.NoError(t, pl.Add(track("b", "")))
	require.NoError(t, r.PlayPlaylist(0))
	engine.set(func(f *fakeEngine) {
		f.flags["idle-active"] = false
		f.ints["playlist-pos"] = 0
	})
	assert.False(t, r.IsPlayingAudio())

	r.handleEvent(Event{ID: EventFileLoaded})
	assert.True(t, r.IsPlayingAudio())

	engine.set(func(f *fakeEngine) { f.ints["playlist-pos"] = 1 })
	r.handleEvent(Event{ID: EventEndFile})
	r.handleEvent(Event{ID: EventStartFile})
	assert.True(t, r.IsPlayingAudio(), "between entries of the same playlist")

	// a new request resets the kind until it loads
	require.NoError(t, r.Play(playback.ListItem{URL: "v", Kind: playback.KindVideo}))
	assert.False(t, r.IsPlayingVideo())
	assert.False(t, r.IsPlayingAudio())
}

func TestRenderer_Conditions(t *testing.T) {
	tests := []struct {
		name      string
		flags     map[string]bool
		condition playback.Condition
		expected  bool
	}{
		{name: "Playing", flags: map[string]bool{"idle-active": false, "pause": false}, condition: playback.CondPlaying, expected: true},
		{name: "Paused is not playing", flags: map[string]bool{"idle-active": false, "pause": true}, condition: playback.CondPlaying},
		{name: "Paused", flags: map[string]bool{"idle-active": false, "pause": true}, condition: playback.CondPaused, expected: true},
		{name: "Idle is not paused", flags: map[string]bool{"idle-active": true, "pause": true}, condition: playback.CondPaused},
		{name: "Caching", flags: map[string]bool{"paused-for-cache": true}, condition: playback.CondCaching, expected: true},
		{name: "Busy while seeking", flags: map[string]bool{"seeking": true}, condition: playback.CondBusyDialog, expected: true},
		{name: "Unconfigured OSD property", flags: map[string]bool{"idle-active": false}, condition: playback.CondVideoOSD},
		{name: "Query failure reads false", flags: map[string]bool{}, condition: playback.CondHasMedia},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, engine, _ := newTestRenderer()
			engine.set(func(f *fakeEngine) { f.flags = tt.flags })
			assert.Equal(t, tt.expected, r.Condition(tt.condition))
		})
	}
}

func TestRenderer_FullscreenNeedsVideoWindow(t *testing.T) {
	r, engine, _ := newTestRenderer()
	require.NoError(t, r.Play(playback.ListItem{URL: "v", Kind: playback.KindVideo}))
	r.handleEvent(Event{ID: EventFileLoaded})
	engine.set(func(f *fakeEngine) { f.flags["idle-active"] = false })

	assert.False(t, r.Condition(playback.CondFullscreen))
	engine.set(func(f *fakeEngine) { f.flags["vo-configured"] = true })
	assert.True(t, r.Condition(playback.CondFullscreen))
}

func TestRenderer_Events(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *Renderer, engine *fakeEngine)
		events   []EventID
		expected []playback.EventType
	}{
		{
			name:     "Load then end",
			setup:    func(r *Renderer, _ *fakeEngine) { _ = r.Play(track("a", "")) },
			events:   []EventID{EventStartFile, EventFileLoaded, EventEndFile},
			expected: []playback.EventType{playback.EventStarted, playback.EventEnded},
		},
		{
			name:     "End before load is a failure",
			setup:    func(r *Renderer, _ *fakeEngine) { _ = r.Play(track("a", "")) },
			events:   []EventID{EventStartFile, EventEndFile},
			expected: []playback.EventType{playback.EventFailed},
		},
		{
			name: "Requested stop",
			setup: func(r *Renderer, _ *fakeEngine) {
				_ = r.Play(track("a", ""))
				r.handleEvent(Event{ID: EventFileLoaded})
				_ = r.Stop()
			},
			events:   []EventID{EventEndFile},
			expected: []playback.EventType{playback.EventStarted, playback.EventStopped},
		},
		{
			name: "Playlist advance is silent",
			setup: func(r *Renderer, _ *fakeEngine) {
				pl := r.Playlist()
				_ = pl.Add(track("a", ""))
				_ = pl.Add(track("b", ""))
				_ = r.PlayPlaylist(0)
			},
			events:   []EventID{EventStartFile, EventFileLoaded, EventEndFile},
			expected: []playback.EventType{playback.EventStarted},
		},
		{
			name: "Replacing a loaded file is silent",
			setup: func(r *Renderer, _ *fakeEngine) {
				_ = r.Play(track("a", ""))
				r.handleEvent(Event{ID: EventFileLoaded})
				_ = r.Play(track("b", ""))
			},
			events:   []EventID{EventEndFile, EventStartFile, EventFileLoaded},
			expected: []playback.EventType{playback.EventStarted, playback.EventStarted},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, engine, log := newTestRenderer()
			engine.set(func(f *fakeEngine) { f.ints["playlist-pos"] = 0 })
			tt.setup(r, engine)
			for _, id := range tt.events {
				r.handleEvent(Event{ID: id})
			}
			assert.Equal(t, tt.expected, log.types())
		})
	}
}

func TestRenderer_PauseObserver(t *testing.T) {
	r, engine, log := newTestRenderer()
	engine.set(func(f *fakeEngine) { f.flags["pause"] = false })

	// initial notification before anything is loaded
	r.handleEvent(Event{ID: EventPropertyChange, Userdata: observePause})
	r.handleEvent(Event{ID: EventFileLoaded})

	engine.set(func(f *fakeEngine) { f.flags["pause"] = true })
	r.handleEvent(Event{ID: EventPropertyChange, Userdata: observePause})
	r.handleEvent(Event{ID: EventPropertyChange, Userdata: observePause})
	engine.set(func(f *fakeEngine) { f.flags["pause"] = false })
	r.handleEvent(Event{ID: EventPropertyChange, Userdata: observePause})
	r.handleEvent(Event{ID: EventPropertyChange, Userdata: 7})

	assert.Equal(t, []playback.EventType{playback.EventStarted, playback.EventPaused, playback.EventResumed}, log.types())
}

func TestRenderer_SeekEvent(t *testing.T) {
	r, engine, log := newTestRenderer()
	engine.set(func(f *fakeEngine) { f.doubles["playback-time"] = 45 })
	_, err := r.Time()
	require.NoError(t, err)

	engine.set(func(f *fakeEngine) { f.doubles["playback-time"] = 90 })
	r.handleEvent(Event{ID: EventSeek})

	require.Len(t, log.events, 1)
	assert.Equal(t, playback.RendererEvent{Type: playback.EventSeek, Time: 90, Offset: 45}, log.events[0])
}

func TestRenderer_Run(t *testing.T) {
	r, engine, log := newTestRenderer()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	engine.events <- Event{ID: EventFileLoaded}
	engine.events <- Event{ID: EventShutdown}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event loop did not stop on shutdown")
	}
	assert.Equal(t, []playback.EventType{playback.EventStarted}, log.types())
	assert.Equal(t, []string{"pause"}, engine.observed)
}

func TestRenderer_Execute(t *testing.T) {
	r, engine, _ := newTestRenderer()

	require.NoError(t, r.Execute(playback.ActionRandomOn))
	assert.True(t, engine.flags["shuffle"])
	require.NoError(t, r.Execute(playback.ActionRandomOff))
	assert.False(t, engine.flags["shuffle"])

	assert.False(t, r.Condition(playback.CondShowInfo))
	require.NoError(t, r.Execute(playback.ActionInfo))
	assert.True(t, r.Condition(playback.CondShowInfo))

	require.NoError(t, r.Execute(playback.ActionSkipNext))
	require.NoError(t, r.Execute(playback.ActionSkipPrevious))
	assert.Equal(t, []string{"script-binding stats/display-stats-toggle", "playlist-next", "playlist-prev"}, engine.history())

	assert.Error(t, r.Execute(playback.Action(99)))
}

func TestRenderer_SetSubtitleStream(t *testing.T) {
	r, engine, _ := newTestRenderer()
	engine.set(func(f *fakeEngine) {
		f.ints["track-list/count"] = 3
		f.strs["track-list/0/type"] = "video"
		f.strs["track-list/1/type"] = "sub"
		f.ints["track-list/1/ff-index"] = 2
		f.ints["track-list/1/id"] = 1
		f.strs["track-list/2/type"] = "sub"
		f.ints["track-list/2/ff-index"] = 4
		f.ints["track-list/2/id"] = 2
	})

	require.NoError(t, r.SetSubtitleStream(4))
	assert.Equal(t, "2", engine.strs["sid"])
	assert.Error(t, r.SetSubtitleStream(9))
}

func TestNativePlaylist(t *testing.T) {
	r, engine, _ := newTestRenderer()
	pl := r.Playlist()
	engine.set(func(f *fakeEngine) { f.ints["playlist-pos"] = 0 })

	for _, tok := range []string{"A", "B", "C", "D"} {
		require.NoError(t, pl.Add(track("u"+tok, tok)))
	}
	assert.Equal(t, 4, pl.Size())

	require.NoError(t, pl.Swap(0, 2))
	assert.Equal(t, []string{"playlist-move 2 0", "playlist-move 1 3"}, engine.history()[4:])

	comment, err := r.CurrentItemInfo(playback.InfoComment)
	require.NoError(t, err)
	assert.Equal(t, "C", comment)

	require.NoError(t, pl.SetInfo(1, playback.InfoPlayCount, "7"))
	engine.set(func(f *fakeEngine) { f.ints["playlist-pos"] = 1 })
	count, err := r.CurrentItemInfo(playback.InfoPlayCount)
	require.NoError(t, err)
	assert.Equal(t, "7", count)

	require.NoError(t, pl.Remove(0))
	assert.Equal(t, 3, pl.Size())
	assert.Error(t, pl.Remove(3))
	assert.Error(t, pl.Swap(0, 5))
	assert.Error(t, pl.SetInfo(-1, "x", "y"))

	require.NoError(t, pl.Clear())
	assert.Zero(t, pl.Size())
	engine.set(func(f *fakeEngine) { f.ints["playlist-pos"] = -1 })
	_, err = r.CurrentItemInfo(playback.InfoComment)
	assert.ErrorIs(t, err, ErrNoCurrentItem)
}

func TestNativePlaylist_ShuffleFollowsEngine(t *testing.T) {
	r, engine, _ := newTestRenderer()
	pl := r.Playlist()
	for _, tok := range []string{"A", "B", "C"} {
		require.NoError(t, pl.Add(track("u"+tok, tok)))
	}
	engine.set(func(f *fakeEngine) {
		f.strs["playlist/0/filename"] = "uC"
		f.strs["playlist/1/filename"] = "uA"
		f.strs["playlist/2/filename"] = "uB"
		f.ints["playlist-pos"] = 0
	})

	require.NoError(t, pl.Shuffle())
	comment, err := r.CurrentItemInfo(playback.InfoComment)
	require.NoError(t, err)
	assert.Equal(t, "C", comment)
}

func TestRenderer_PlayPlaylistRange(t *testing.T) {
	r, engine, _ := newTestRenderer()
	assert.Error(t, r.PlayPlaylist(0))

	require.NoError(t, r.Playlist().Add(track("a", "")))
	require.NoError(t, r.PlayPlaylist(0))
	assert.Contains(t, engine.history(), "playlist-play-index 0")
}
