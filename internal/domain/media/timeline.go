package media

// TimelineReport is a now-playing report as posted to the server.
type TimelineReport struct {
	Kind             string `json:"type"`
	State            string `json:"state"`
	RatingKey        string `json:"ratingKey,omitempty"`
	Key              string `json:"key,omitempty"`
	TimeMs           int64  `json:"time"`
	DurationMs       int64  `json:"duration,omitempty"`
	PlayQueueItemID  int64  `json:"playQueueItemID,omitempty"`
	PlayQueueID      int64  `json:"playQueueID,omitempty"`
	PlayQueueVersion int    `json:"playQueueVersion,omitempty"`
	Server           string `json:"-"`
}
