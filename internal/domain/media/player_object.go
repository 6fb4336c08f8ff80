package media

// StreamInfo describes how the server wants an item to be streamed.
type StreamInfo struct {
	URLs         []string
	BifURL       string  // trick-play index, empty when the part has none
	IsTranscoded bool    // transcoded streams cannot be scrubbed in place
	PlayStart    float64 // seconds; where a direct stream should be jumped to after opening
}

// PlayerObject binds an item to the stream chosen for the current playback attempt.
type PlayerObject struct {
	Item   *Item
	Offset int64 // milliseconds
	Stream StreamInfo
}

// NewAudioPlayerObject wraps a track recovered from the renderer playlist.
func NewAudioPlayerObject(item *Item) *PlayerObject {
	return &PlayerObject{Item: item}
}

// URL returns the primary stream URL, or an empty string.
func (p *PlayerObject) URL() string {
	if p == nil || len(p.Stream.URLs) == 0 {
		return ""
	}
	return p.Stream.URLs[0]
}
