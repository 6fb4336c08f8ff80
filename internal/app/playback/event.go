package playback

// EventType represents a renderer lifecycle event type.
type EventType int

const (
	EventStarted EventType = iota // Playback started
	EventPaused                   // Playback paused
	EventResumed                  // Playback resumed
	EventStopped                  // Playback stopped by request
	EventEnded                    // Playback reached the end of the stream
	EventSeek                     // Renderer performed a seek
	EventFailed                   // Playback failed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStarted:
		return "started"
	case EventPaused:
		return "paused"
	case EventResumed:
		return "resumed"
	case EventStopped:
		return "stopped"
	case EventEnded:
		return "ended"
	case EventSeek:
		return "seek"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RendererEvent is a lifecycle notification delivered by the renderer.
type RendererEvent struct {
	Type   EventType
	Time   float64 // seconds; seek target for EventSeek
	Offset float64 // seconds; seek delta for EventSeek
}
