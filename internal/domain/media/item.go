// Package media provides the catalog item entities shared by the player and the server client.
package media

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Item types reported by the server.
const (
	TypeMovie      = "movie"
	TypeEpisode    = "episode"
	TypeMusicVideo = "musicvideo"
	TypeClip       = "clip"
	TypeTrack      = "track"
	TypeAlbum      = "album"
)

// Stream types.
const (
	StreamTypeVideo    = 1
	StreamTypeAudio    = 2
	StreamTypeSubtitle = 3
)

// Item represents a catalog item (video or track) as served by the remote server.
type Item struct {
	RatingKey        string  `json:"ratingKey"`
	Key              string  `json:"key"`
	Type             string  `json:"type"`
	Title            string  `json:"title"`
	ParentTitle      string  `json:"parentTitle,omitempty"`
	GrandparentTitle string  `json:"grandparentTitle,omitempty"`
	Index            int     `json:"index,omitempty"`
	ParentIndex      int     `json:"parentIndex,omitempty"`
	Year             int     `json:"year,omitempty"`
	Summary          string  `json:"summary,omitempty"`
	Duration         int64   `json:"duration,omitempty"`   // milliseconds
	ViewOffset       int64   `json:"viewOffset,omitempty"` // milliseconds
	Thumb            string  `json:"thumb,omitempty"`
	ParentThumb      string  `json:"parentThumb,omitempty"`
	GrandparentThumb string  `json:"grandparentThumb,omitempty"`
	Art              string  `json:"art,omitempty"`
	PlayQueueItemID  int64   `json:"playQueueItemID,omitempty"`
	Server           string  `json:"server,omitempty"` // base URL of the owning server
	Media            []Media `json:"Media,omitempty"`
}

// Media is one encoding of an item.
type Media struct {
	ID         int64  `json:"id"`
	Container  string `json:"container,omitempty"`
	VideoCodec string `json:"videoCodec,omitempty"`
	AudioCodec string `json:"audioCodec,omitempty"`
	Part       []Part `json:"Part,omitempty"`
}

// Part is a single file of a media.
type Part struct {
	ID        int64         `json:"id"`
	Key       string        `json:"key"`
	Container string        `json:"container,omitempty"`
	Indexes   string        `json:"indexes,omitempty"` // "sd" when a trick-play index exists
	Stream    []MediaStream `json:"Stream,omitempty"`
}

// MediaStream is an elementary stream (video, audio, subtitle) of a part.
type MediaStream struct {
	ID         int64  `json:"id"`
	StreamType int    `json:"streamType"`
	Index      int    `json:"index"`
	Key        string `json:"key,omitempty"` // set for externally hosted subtitles
	Codec      string `json:"codec,omitempty"`
	Language   string `json:"language,omitempty"`
	Selected   bool   `json:"selected,omitempty"`
}

// IsVideo reports whether the item is played by the video pipeline.
func (i *Item) IsVideo() bool {
	switch i.Type {
	case TypeMovie, TypeEpisode, TypeMusicVideo, TypeClip:
		return true
	}
	return false
}

// VideoType returns the renderer media type for a video item.
func (i *Item) VideoType() string {
	switch i.Type {
	case TypeMovie, TypeEpisode, TypeMusicVideo:
		return i.Type
	}
	return "video"
}

// HasRemoteIdentity reports whether timelines may be sent for the item.
func (i *Item) HasRemoteIdentity() bool {
	return i.RatingKey != "" && i.Server != ""
}

// DefaultThumb returns the most specific thumbnail available.
func (i *Item) DefaultThumb() string {
	switch {
	case i.Thumb != "":
		return i.Thumb
	case i.ParentThumb != "":
		return i.ParentThumb
	default:
		return i.GrandparentThumb
	}
}

// FirstPart returns the first part of the first media, or nil.
func (i *Item) FirstPart() *Part {
	if len(i.Media) == 0 || len(i.Media[0].Part) == 0 {
		return nil
	}
	return &i.Media[0].Part[0]
}

// SelectedSubtitleStream returns the subtitle stream selected for playback, or nil.
func (i *Item) SelectedSubtitleStream() *MediaStream {
	part := i.FirstPart()
	if part == nil {
		return nil
	}
	for idx := range part.Stream {
		s := &part.Stream[idx]
		if s.StreamType == StreamTypeSubtitle && s.Selected {
			return s
		}
	}
	return nil
}

// Serialize encodes the item into its compact transport form.
func (i *Item) Serialize() ([]byte, error) {
	data, err := json.Marshal(i)
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize item")
	}
	return data, nil
}

// Deserialize decodes an item produced by Serialize.
func Deserialize(data []byte) (*Item, error) {
	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, errors.Wrap(err, "failed to deserialize item")
	}
	if item.RatingKey == "" {
		return nil, errors.New("deserialized item has no rating key")
	}
	return &item, nil
}
