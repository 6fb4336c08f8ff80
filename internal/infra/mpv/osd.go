package mpv

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/plexplayer/internal/app/playback"
)

const progressWidth = 30

// SeekDialog renders the seek overlay as mpv OSD text.
type SeekDialog struct {
	engine     Engine
	durationMs int

	mu       sync.Mutex
	duration int64
	offset   int64
	indexed  bool
	title    string
	title2   string
	fromSeek bool
	open     bool
}

var _ playback.SeekDialog = (*SeekDialog)(nil)

// NewSeekDialog creates a seek overlay. Each render stays on screen for durationMs.
func NewSeekDialog(engine Engine, durationMs int) *SeekDialog {
	return &SeekDialog{engine: engine, durationMs: durationMs}
}

func (d *SeekDialog) Setup(duration, offset int64, bifURL, title, title2 string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.duration = duration
	d.offset = offset
	d.indexed = bifURL != ""
	d.title = title
	d.title2 = title2
	d.fromSeek = false
}

func (d *SeekDialog) Show() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
	d.renderLocked()
}

func (d *SeekDialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return
	}
	d.open = false
	d.show("", 1)
}

func (d *SeekDialog) Update(offset int64, fromSeek bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.offset = offset
	d.fromSeek = fromSeek
	if d.open {
		d.renderLocked()
	}
}

func (d *SeekDialog) Tick() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		d.renderLocked()
	}
}

func (d *SeekDialog) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

func (d *SeekDialog) renderLocked() {
	d.show(d.textLocked(), d.durationMs)
}

func (d *SeekDialog) textLocked() string {
	var b strings.Builder
	switch {
	case d.title != "" && d.title2 != "":
		b.WriteString(d.title + " - " + d.title2)
	default:
		b.WriteString(d.title + d.title2)
	}
	b.WriteString("\n")
	b.WriteString(progressBar(d.offset, d.duration, progressWidth))
	b.WriteString(" ")
	b.WriteString(formatClock(d.offset) + " / " + formatClock(d.duration))
	if d.fromSeek {
		b.WriteString(" (seek)")
	}
	return b.String()
}

func (d *SeekDialog) show(text string, durationMs int) {
	if err := d.engine.Command("show-text", text, strconv.Itoa(durationMs)); err != nil {
		zlog.Debug().Err(err).Msg("mpv: failed to show seek overlay")
	}
}

// formatClock formats milliseconds as m:ss or h:mm:ss.
func formatClock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	s := ms / 1000
	h, m, sec := s/3600, (s%3600)/60, s%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}

func progressBar(offset, duration int64, width int) string {
	filled := 0
	if duration > 0 {
		filled = int(min(max(offset, 0), duration) * int64(width) / duration)
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
}

// Notifier shows notifications as mpv OSD text.
type Notifier struct {
	engine     Engine
	durationMs int
}

// NewNotifier creates a notifier whose messages stay on screen for durationMs.
func NewNotifier(engine Engine, durationMs int) *Notifier {
	return &Notifier{engine: engine, durationMs: durationMs}
}

func (n *Notifier) Notify(message string) {
	zlog.Info().Msgf("mpv: notify %q", message)
	if err := n.engine.Command("show-text", message, strconv.Itoa(n.durationMs)); err != nil {
		zlog.Warn().Err(err).Msg("mpv: failed to show notification")
	}
}
