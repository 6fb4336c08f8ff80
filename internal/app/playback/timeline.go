package playback

import (
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/plexplayer/internal/domain/media"
)

type reportOptions struct {
	force        bool      // Send even if the state did not change
	refreshQueue bool      // Refresh the play queue after the report is posted
	state        PlayState // Empty means the renderer's current play state
}

// timelineReporter deduplicates now-playing reports for one handler.
type timelineReporter struct {
	sink      TimelineSink
	kind      TimelineKind
	lastState PlayState
	ignore    bool
}

// report hands a timeline to the sink. It returns whether a report was sent.
func (r *timelineReporter) report(obj *media.PlayerObject, state PlayState, elapsed float64, queue Queue, opts reportOptions) bool {
	if r.ignore || r.sink == nil {
		return false
	}
	if obj == nil || obj.Item == nil || !obj.Item.HasRemoteIdentity() {
		return false
	}
	if state == r.lastState && !opts.force {
		return false
	}

	r.lastState = state
	ms := int64(elapsed * 1000)
	if opts.refreshQueue && queue != nil {
		queue.MarkRefreshOnTimeline()
	}

	zlog.Debug().Msgf("timeline: %s %s %s at %dms", r.kind, obj.Item.RatingKey, state, ms)
	r.sink.ReportTimeline(Timeline{
		Kind:   r.kind,
		Object: obj,
		State:  state,
		TimeMs: ms,
		Queue:  queue,
	})
	return true
}
