package mpv

import (
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

type fakeEngine struct {
	mu       sync.Mutex
	commands []string
	flags    map[string]bool
	doubles  map[string]float64
	ints     map[string]int64
	strs     map[string]string
	failCmd  string
	events   chan Event
	observed []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		flags:   map[string]bool{"idle-active": true},
		doubles: map[string]float64{},
		ints:    map[string]int64{},
		strs:    map[string]string{},
		events:  make(chan Event, 16),
	}
}

func (f *fakeEngine) Command(args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := strings.Join(args, " ")
	if f.failCmd != "" && strings.HasPrefix(cmd, f.failCmd) {
		return errors.Newf("command %s failed", args[0])
	}
	f.commands = append(f.commands, cmd)
	return nil
}

func (f *fakeEngine) GetFlag(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.flags[name]
	if !ok {
		return false, errors.Newf("property %s unavailable", name)
	}
	return v, nil
}

func (f *fakeEngine) GetDouble(name string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.doubles[name]
	if !ok {
		return 0, errors.Newf("property %s unavailable", name)
	}
	return v, nil
}

func (f *fakeEngine) GetInt(name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.ints[name]
	if !ok {
		return 0, errors.Newf("property %s unavailable", name)
	}
	return v, nil
}

func (f *fakeEngine) GetString(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.strs[name]
	if !ok {
		return "", errors.Newf("property %s unavailable", name)
	}
	return v, nil
}

func (f *fakeEngine) SetFlag(name string, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[name] = value
	return nil
}

func (f *fakeEngine) SetString(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strs[name] = value
	return nil
}

func (f *fakeEngine) ObserveFlag(_ uint64, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observed = append(f.observed, name)
	return nil
}

func (f *fakeEngine) WaitEvent(timeout time.Duration) Event {
	select {
	case ev := <-f.events:
		return ev
	case <-time.After(timeout):
		return Event{}
	}
}

func (f *fakeEngine) Destroy() {}

func (f *fakeEngine) set(fn func(f *fakeEngine)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeEngine) history() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}
