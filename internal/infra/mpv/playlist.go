package mpv

import (
	"fmt"
	"maps"
	"strconv"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/plexplayer/internal/app/playback"
)

// nativePlaylist is mpv's playlist plus the renderer's metadata mirror.
type nativePlaylist struct {
	r *Renderer
}

func (p *nativePlaylist) Add(item playback.ListItem) error {
	if err := p.r.engine.Command("loadfile", item.URL, "append"); err != nil {
		return errors.Wrap(err, "failed to append entry")
	}
	p.r.mu.Lock()
	p.r.entries = append(p.r.entries, item)
	p.r.mu.Unlock()
	return nil
}

func (p *nativePlaylist) Remove(pos int) error {
	r := p.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if pos < 0 || pos >= len(r.entries) {
		return errors.Newf("playlist position %d out of range", pos)
	}
	if pos == r.pos && r.loaded {
		r.suppressEnd = true
	}
	if err := r.engine.Command("playlist-remove", strconv.Itoa(pos)); err != nil {
		return errors.Wrap(err, "failed to remove entry")
	}
	r.entries = append(r.entries[:pos], r.entries[pos+1:]...)
	if pos < r.pos {
		r.pos--
	}
	return nil
}

// Swap exchanges two entries using two moves.
func (p *nativePlaylist) Swap(pos1, pos2 int) error {
	r := p.r
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.entries)
	if pos1 < 0 || pos1 >= n || pos2 < 0 || pos2 >= n {
		return errors.Newf("swap of %d and %d out of range", pos1, pos2)
	}
	if pos1 == pos2 {
		return nil
	}
	lo, hi := min(pos1, pos2), max(pos1, pos2)
	if err := r.engine.Command("playlist-move", strconv.Itoa(hi), strconv.Itoa(lo)); err != nil {
		return errors.Wrap(err, "failed to move entry")
	}
	if err := r.engine.Command("playlist-move", strconv.Itoa(lo+1), strconv.Itoa(hi+1)); err != nil {
		return errors.Wrap(err, "failed to move entry")
	}
	r.entries[lo], r.entries[hi] = r.entries[hi], r.entries[lo]
	switch r.pos {
	case lo:
		r.pos = hi
	case hi:
		r.pos = lo
	}
	return nil
}

// Clear empties the playlist. A loaded entry is dropped without reporting an end.
func (p *nativePlaylist) Clear() error {
	r := p.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.engine.Command("playlist-clear"); err != nil {
		return errors.Wrap(err, "failed to clear playlist")
	}
	if r.loaded {
		r.suppressEnd = true
		if err := r.engine.Command("playlist-remove", "current"); err != nil {
			zlog.Debug().Err(err).Msg("mpv: failed to remove current entry")
		}
	}
	r.entries = nil
	r.pos = 0
	return nil
}

func (p *nativePlaylist) Position() int {
	p.r.mu.Lock()
	defer p.r.mu.Unlock()
	p.r.syncPosLocked()
	return p.r.pos
}

func (p *nativePlaylist) Size() int {
	p.r.mu.Lock()
	defer p.r.mu.Unlock()
	return len(p.r.entries)
}

func (p *nativePlaylist) SetInfo(pos int, field, value string) error {
	r := p.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if pos < 0 || pos >= len(r.entries) {
		return errors.Newf("playlist position %d out of range", pos)
	}
	info := maps.Clone(r.entries[pos].Info)
	if info == nil {
		info = map[string]string{}
	}
	info[field] = value
	r.entries[pos].Info = info
	return nil
}

// Shuffle shuffles mpv's playlist and reorders the mirror to match it.
func (p *nativePlaylist) Shuffle() error {
	r := p.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.engine.Command("playlist-shuffle"); err != nil {
		return errors.Wrap(err, "failed to shuffle playlist")
	}

	used := make([]bool, len(r.entries))
	shuffled := make([]playback.ListItem, 0, len(r.entries))
	for i := range r.entries {
		name, err := r.engine.GetString(fmt.Sprintf("playlist/%d/filename", i))
		if err != nil {
			zlog.Warn().Err(err).Msg("mpv: failed to read shuffled playlist; metadata order kept")
			return nil
		}
		for j, e := range r.entries {
			if !used[j] && e.URL == name {
				used[j] = true
				shuffled = append(shuffled, e)
				break
			}
		}
	}
	if len(shuffled) != len(r.entries) {
		zlog.Warn().Msg("mpv: shuffled playlist does not match; metadata order kept")
		return nil
	}
	r.entries = shuffled
	r.syncPosLocked()
	return nil
}
