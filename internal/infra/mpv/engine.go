// Package mpv adapts an mpv instance to the player's renderer, native playlist,
// seek overlay and notification interfaces.
package mpv

import (
	"time"

	"github.com/cockroachdb/errors"
)

// ErrUninitialized is returned when the renderer has no engine.
var ErrUninitialized = errors.New("mpv renderer uninitialized")

// ErrNoCurrentItem is returned when no native playlist entry is current.
var ErrNoCurrentItem = errors.New("mpv: no current playlist entry")

// EventID identifies an mpv event.
type EventID int

const (
	EventNone EventID = iota
	EventStartFile
	EventFileLoaded
	EventEndFile
	EventSeek
	EventIdle
	EventPropertyChange
	EventShutdown
)

// Event is an mpv event as delivered by the engine.
type Event struct {
	ID       EventID
	Userdata uint64 // Set on property changes: the observer ID
}

// Engine is the subset of the mpv client API the renderer drives.
type Engine interface {
	Command(args ...string) error
	GetFlag(name string) (bool, error)
	GetDouble(name string) (float64, error)
	GetInt(name string) (int64, error)
	GetString(name string) (string, error)
	SetFlag(name string, value bool) error
	SetString(name, value string) error
	ObserveFlag(id uint64, name string) error
	WaitEvent(timeout time.Duration) Event
	Destroy()
}
