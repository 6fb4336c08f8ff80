package companion

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/osa030/plexplayer/internal/app/playback"
	"github.com/osa030/plexplayer/internal/domain/media"
)

const (
	stepForwardMs = 30000
	stepBackMs    = 15000
)

// Controller is the player surface driven by the API.
type Controller interface {
	Pause()
	Resume()
	Stop()
	SeekTo(offset int64)
	SkipNext()
	SkipPrevious()
	SkipTo(pos int)
	Snapshot(timeout time.Duration) (playback.Status, bool)
}

// Launcher starts playback of a media key.
type Launcher interface {
	PlayMedia(ctx context.Context, key, containerKey string, offset int64) error
}

// Timelines returns the latest posted timelines.
type Timelines interface {
	Latest() []media.TimelineReport
}

// Config holds service configuration.
type Config struct {
	SnapshotTimeout time.Duration // How long a poll waits for the player
}

// Service implements the companion HTTP endpoints.
type Service struct {
	player    Controller
	launcher  Launcher
	timelines Timelines
	config    Config
}

// NewService creates a new Service.
func NewService(player Controller, launcher Launcher, timelines Timelines, config Config) *Service {
	if config.SnapshotTimeout <= 0 {
		config.SnapshotTimeout = time.Second
	}
	return &Service{
		player:    player,
		launcher:  launcher,
		timelines: timelines,
		config:    config,
	}
}

// Handler returns the API handler: the routes behind the token check, served over h2c.
func (s *Service) Handler(token string) http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return h2c.NewHandler(RequireToken(token, mux), &http2.Server{})
}

// Register adds the service routes to mux.
func (s *Service) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /player/playback/play", s.simple(s.player.Resume))
	mux.HandleFunc("GET /player/playback/pause", s.simple(s.player.Pause))
	mux.HandleFunc("GET /player/playback/stop", s.simple(s.player.Stop))
	mux.HandleFunc("GET /player/playback/skipNext", s.simple(s.player.SkipNext))
	mux.HandleFunc("GET /player/playback/skipPrevious", s.simple(s.player.SkipPrevious))
	mux.HandleFunc("GET /player/playback/seekTo", s.SeekTo)
	mux.HandleFunc("GET /player/playback/skipTo", s.SkipTo)
	mux.HandleFunc("GET /player/playback/stepForward", s.step(stepForwardMs))
	mux.HandleFunc("GET /player/playback/stepBack", s.step(-stepBackMs))
	mux.HandleFunc("GET /player/playback/playMedia", s.PlayMedia)
	mux.HandleFunc("GET /player/timeline/poll", s.Poll)
}

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// TimelineStatus is the poll view of the player.
type TimelineStatus struct {
	Kind       string                 `json:"type"`
	State      string                 `json:"state"`
	RatingKey  string                 `json:"ratingKey,omitempty"`
	Title      string                 `json:"title,omitempty"`
	TimeMs     int64                  `json:"time"`
	DurationMs int64                  `json:"duration,omitempty"`
	Seeking    string                 `json:"seeking"`
	Mode       string                 `json:"seekMode"`
	Started    bool                   `json:"started"`
	Reported   []media.TimelineReport `json:"reported"`
}

func (s *Service) simple(fn func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		zlog.Debug().Msgf("companion: %s", r.URL.Path)
		fn()
		writeJSON(w, http.StatusOK, response{Success: true})
	}
}

// SeekTo seeks to the offset query parameter (ms).
func (s *Service) SeekTo(w http.ResponseWriter, r *http.Request) {
	offset, err := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 64)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	zlog.Debug().Msgf("companion: seek to %d", offset)
	s.player.SeekTo(offset)
	writeJSON(w, http.StatusOK, response{Success: true})
}

// SkipTo jumps to the queue position given by pos (or index).
func (s *Service) SkipTo(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("pos")
	if raw == "" {
		raw = r.URL.Query().Get("index")
	}
	pos, err := strconv.Atoi(raw)
	if err != nil || pos < 0 {
		writeError(w, http.StatusBadRequest, "pos must be a non-negative integer")
		return
	}
	zlog.Debug().Msgf("companion: skip to %d", pos)
	s.player.SkipTo(pos)
	writeJSON(w, http.StatusOK, response{Success: true})
}

func (s *Service) step(deltaMs int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, ok := s.player.Snapshot(s.config.SnapshotTimeout)
		if !ok {
			writeError(w, http.StatusServiceUnavailable, "player busy")
			return
		}
		if status.Item == nil {
			writeError(w, http.StatusConflict, "nothing is playing")
			return
		}
		target := max(status.TimeMs+deltaMs, 0)
		if status.DurationMs > 0 {
			target = min(target, status.DurationMs)
		}
		zlog.Debug().Msgf("companion: step %+d to %d", deltaMs, target)
		s.player.SeekTo(target)
		writeJSON(w, http.StatusOK, response{Success: true})
	}
}

// PlayMedia starts playback of the key query parameter.
func (s *Service) PlayMedia(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := q.Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}
	var offset int64
	if raw := q.Get("offset"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = v
	}
	if err := s.launcher.PlayMedia(r.Context(), key, q.Get("containerKey"), offset); err != nil {
		zlog.Warn().Err(err).Msgf("companion: failed to play %s", key)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Message: "playing " + key})
}

// Poll returns the current player status and the latest reported timelines.
func (s *Service) Poll(w http.ResponseWriter, r *http.Request) {
	status, ok := s.player.Snapshot(s.config.SnapshotTimeout)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "player busy")
		return
	}
	resp := TimelineStatus{
		Kind:       string(status.Kind),
		State:      string(status.State),
		TimeMs:     status.TimeMs,
		DurationMs: status.DurationMs,
		Seeking:    status.Seeking.String(),
		Mode:       status.Mode.String(),
		Started:    status.Started,
		Reported:   []media.TimelineReport{},
	}
	if status.Item != nil {
		resp.RatingKey = status.Item.RatingKey
		resp.Title = status.Item.Title
	}
	if s.timelines != nil {
		resp.Reported = s.timelines.Latest()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Warn().Err(err).Msg("companion: failed to write response")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, response{Success: false, Message: msg})
}
