// Package libmpv binds the mpv renderer engine to libmpv.
package libmpv

import (
	"time"

	"github.com/cockroachdb/errors"
	gompv "github.com/supersonic-app/go-mpv"

	"github.com/osa030/plexplayer/internal/infra/mpv"
)

// Engine is a libmpv instance.
type Engine struct {
	m *gompv.Mpv
}

var _ mpv.Engine = (*Engine)(nil)

// Open creates and initializes an mpv instance with the given options.
func Open(options map[string]string) (*Engine, error) {
	m := gompv.Create()
	for name, value := range options {
		if err := m.SetOptionString(name, value); err != nil {
			m.TerminateDestroy()
			return nil, errors.Wrapf(err, "failed to set mpv option %s", name)
		}
	}
	if err := m.Initialize(); err != nil {
		m.TerminateDestroy()
		return nil, errors.Wrap(err, "failed to initialize mpv")
	}
	return &Engine{m: m}, nil
}

func (e *Engine) Command(args ...string) error {
	return e.m.Command(args)
}

func (e *Engine) GetFlag(name string) (bool, error) {
	v, err := e.m.GetProperty(name, gompv.FORMAT_FLAG)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, errors.Newf("mpv property %s is not a flag", name)
	}
	return b, nil
}

func (e *Engine) GetDouble(name string) (float64, error) {
	v, err := e.m.GetProperty(name, gompv.FORMAT_DOUBLE)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, errors.Newf("mpv property %s is not a double", name)
	}
	return f, nil
}

func (e *Engine) GetInt(name string) (int64, error) {
	v, err := e.m.GetProperty(name, gompv.FORMAT_INT64)
	if err != nil {
		return 0, err
	}
	i, ok := v.(int64)
	if !ok {
		return 0, errors.Newf("mpv property %s is not an integer", name)
	}
	return i, nil
}

func (e *Engine) GetString(name string) (string, error) {
	v, err := e.m.GetProperty(name, gompv.FORMAT_STRING)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.Newf("mpv property %s is not a string", name)
	}
	return s, nil
}

func (e *Engine) SetFlag(name string, value bool) error {
	return e.m.SetProperty(name, gompv.FORMAT_FLAG, value)
}

func (e *Engine) SetString(name, value string) error {
	return e.m.SetPropertyString(name, value)
}

func (e *Engine) ObserveFlag(id uint64, name string) error {
	return e.m.ObserveProperty(id, name, gompv.FORMAT_FLAG)
}

func (e *Engine) WaitEvent(timeout time.Duration) mpv.Event {
	ev := e.m.WaitEvent(timeout.Seconds())
	if ev == nil {
		return mpv.Event{}
	}
	out := mpv.Event{Userdata: ev.Reply_Userdata}
	switch ev.Event_Id {
	case gompv.EVENT_START_FILE:
		out.ID = mpv.EventStartFile
	case gompv.EVENT_FILE_LOADED:
		out.ID = mpv.EventFileLoaded
	case gompv.EVENT_END_FILE:
		out.ID = mpv.EventEndFile
	case gompv.EVENT_SEEK:
		out.ID = mpv.EventSeek
	case gompv.EVENT_IDLE:
		out.ID = mpv.EventIdle
	case gompv.EVENT_PROPERTY_CHANGE:
		out.ID = mpv.EventPropertyChange
	case gompv.EVENT_SHUTDOWN:
		out.ID = mpv.EventShutdown
	}
	return out
}

func (e *Engine) Destroy() {
	e.m.TerminateDestroy()
}
