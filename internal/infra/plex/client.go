// Package plex provides a client for the Plex Media Server HTTP API.
package plex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/plexplayer/internal/domain/media"
)

// ErrNotFound is returned when the server has no metadata for a key.
var ErrNotFound = errors.New("plex: not found")

// Config represents Plex client configuration.
type Config struct {
	ServerURL        string
	Token            string
	ClientIdentifier string
	Product          string
	Platform         string
	Timeout          time.Duration
	RetryMax         int
	DirectPlay       bool
	DirectContainers []string // Containers the renderer plays without transcoding
	MaxVideoBitrate  int      // kbps, 0 lets the server decide
}

// Client is a Plex Media Server client.
type Client struct {
	baseURL    string
	token      string
	clientID   string
	product    string
	platform   string
	directPlay bool
	containers []string
	maxBitrate int
	httpClient *retryablehttp.Client
}

// MediaContainer is the envelope of every Plex JSON response.
type MediaContainer struct {
	MediaContainer struct {
		Size     int           `json:"size"`
		Metadata []*media.Item `json:"Metadata"`
	} `json:"MediaContainer"`
}

type playQueueContainer struct {
	MediaContainer media.PlayQueue `json:"MediaContainer"`
}

// New creates a new Plex client.
func New(cfg Config) (*Client, error) {
	if cfg.ServerURL == "" {
		return nil, errors.New("plex server URL is required")
	}
	if _, err := url.Parse(cfg.ServerURL); err != nil {
		return nil, errors.Wrap(err, "invalid plex server URL")
	}
	if cfg.ClientIdentifier == "" {
		cfg.ClientIdentifier = uuid.NewString()
	}
	if cfg.Product == "" {
		cfg.Product = "plexplayer"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}

	httpClient := retryablehttp.NewClient()
	httpClient.HTTPClient.Timeout = cfg.Timeout
	httpClient.RetryMax = cfg.RetryMax
	httpClient.RetryWaitMin = 200 * time.Millisecond
	httpClient.RetryWaitMax = 2 * time.Second
	httpClient.Logger = retryLogger{}

	return &Client{
		baseURL:    strings.TrimRight(cfg.ServerURL, "/"),
		token:      cfg.Token,
		clientID:   cfg.ClientIdentifier,
		product:    cfg.Product,
		platform:   cfg.Platform,
		directPlay: cfg.DirectPlay,
		containers: cfg.DirectContainers,
		maxBitrate: cfg.MaxVideoBitrate,
		httpClient: httpClient,
	}, nil
}

// ClientIdentifier returns the identifier this player announces to the server.
func (c *Client) ClientIdentifier() string {
	return c.clientID
}

// FetchItem retrieves the metadata of a single item.
func (c *Client) FetchItem(ctx context.Context, ratingKey string) (*media.Item, error) {
	var resp MediaContainer
	if err := c.getJSON(ctx, "/library/metadata/"+url.PathEscape(ratingKey), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.MediaContainer.Metadata) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "item %s", ratingKey)
	}
	return c.own(resp.MediaContainer.Metadata[0]), nil
}

// FetchChildren retrieves the children of an item, e.g. the tracks of an album.
func (c *Client) FetchChildren(ctx context.Context, ratingKey string) ([]*media.Item, error) {
	var resp MediaContainer
	if err := c.getJSON(ctx, "/library/metadata/"+url.PathEscape(ratingKey)+"/children", nil, &resp); err != nil {
		return nil, err
	}
	items := resp.MediaContainer.Metadata
	for _, item := range items {
		c.own(item)
	}
	return items, nil
}

// FetchPlayQueue retrieves a play queue.
func (c *Client) FetchPlayQueue(ctx context.Context, id int64) (*media.PlayQueue, error) {
	var resp playQueueContainer
	params := url.Values{}
	params.Set("own", "1")
	if err := c.getJSON(ctx, fmt.Sprintf("/playQueues/%d", id), params, &resp); err != nil {
		return nil, err
	}
	pq := resp.MediaContainer
	if pq.ID == 0 {
		pq.ID = id
	}
	for _, item := range pq.Items {
		c.own(item)
	}
	return &pq, nil
}

// PushTimeline reports the player's now-playing state to the server.
func (c *Client) PushTimeline(ctx context.Context, report media.TimelineReport) error {
	params := url.Values{}
	params.Set("ratingKey", report.RatingKey)
	params.Set("key", report.Key)
	params.Set("state", report.State)
	params.Set("time", strconv.FormatInt(report.TimeMs, 10))
	if report.DurationMs > 0 {
		params.Set("duration", strconv.FormatInt(report.DurationMs, 10))
	}
	if report.PlayQueueItemID != 0 {
		params.Set("playQueueItemID", strconv.FormatInt(report.PlayQueueItemID, 10))
	}
	if report.PlayQueueID != 0 {
		params.Set("playQueueID", strconv.FormatInt(report.PlayQueueID, 10))
		params.Set("playQueueVersion", strconv.Itoa(report.PlayQueueVersion))
	}

	base := c.baseURL
	if report.Server != "" {
		base = strings.TrimRight(report.Server, "/")
	}
	resp, err := c.do(ctx, http.MethodGet, base+"/:/timeline?"+params.Encode())
	if err != nil {
		return errors.Wrapf(err, "failed to push %s timeline", report.State)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// BuildStream decides how an item is streamed and returns the stream URLs.
// With forceUpdate the item's media is reloaded first.
func (c *Client) BuildStream(item *media.Item, offset int64, forceUpdate bool) (media.StreamInfo, error) {
	if item == nil {
		return media.StreamInfo{}, errors.New("no item to stream")
	}
	if forceUpdate || item.FirstPart() == nil {
		fresh, err := c.FetchItem(context.Background(), item.RatingKey)
		if err != nil {
			return media.StreamInfo{}, errors.Wrap(err, "failed to reload item")
		}
		item.Media = fresh.Media
		if fresh.Duration > 0 {
			item.Duration = fresh.Duration
		}
	}
	part := item.FirstPart()
	if part == nil {
		return media.StreamInfo{}, errors.Newf("item %s has no playable part", item.RatingKey)
	}

	info := media.StreamInfo{BifURL: c.bifURL(part)}
	if c.canDirectPlay(item) {
		info.URLs = []string{c.authURL(c.serverOf(item) + part.Key)}
		info.PlayStart = float64(offset) / 1000
		zlog.Debug().Msgf("plex: direct play of %s", item.RatingKey)
		return info, nil
	}

	params := url.Values{}
	params.Set("path", "/library/metadata/"+item.RatingKey)
	params.Set("mediaIndex", "0")
	params.Set("partIndex", "0")
	params.Set("protocol", "hls")
	params.Set("offset", strconv.FormatInt(offset/1000, 10))
	params.Set("fastSeek", "1")
	params.Set("directPlay", "0")
	params.Set("directStream", "1")
	params.Set("subtitles", "burn")
	params.Set("session", uuid.NewString())
	params.Set("X-Plex-Client-Identifier", c.clientID)
	params.Set("X-Plex-Product", c.product)
	if c.maxBitrate > 0 {
		params.Set("maxVideoBitrate", strconv.Itoa(c.maxBitrate))
	}
	info.URLs = []string{c.authURL(c.serverOf(item) + "/video/:/transcode/universal/start.m3u8?" + params.Encode())}
	info.IsTranscoded = true
	zlog.Debug().Msgf("plex: transcoding %s from %dms", item.RatingKey, offset)
	return info, nil
}

// TrackURL returns the direct stream URL of a track.
func (c *Client) TrackURL(item *media.Item) string {
	part := item.FirstPart()
	if part == nil {
		return ""
	}
	return c.authURL(c.serverOf(item) + part.Key)
}

// SubtitleURL returns the URL of an externally hosted subtitle stream, or an empty string
// when the stream is embedded.
func (c *Client) SubtitleURL(item *media.Item, stream *media.MediaStream) string {
	if stream == nil || stream.Key == "" {
		return ""
	}
	return c.authURL(c.serverOf(item) + stream.Key)
}

// ImageURL returns a server-side scaled image URL.
func (c *Client) ImageURL(path string, width, height int) string {
	if path == "" {
		return ""
	}
	params := url.Values{}
	params.Set("url", path)
	params.Set("width", strconv.Itoa(width))
	params.Set("height", strconv.Itoa(height))
	return c.authURL(c.baseURL + "/photo/:/transcode?" + params.Encode())
}

func (c *Client) canDirectPlay(item *media.Item) bool {
	if !c.directPlay || len(item.Media) == 0 {
		return false
	}
	if len(c.containers) == 0 {
		return true
	}
	return slices.Contains(c.containers, strings.ToLower(item.Media[0].Container))
}

func (c *Client) bifURL(part *media.Part) string {
	if part.Indexes != "sd" {
		return ""
	}
	return c.authURL(fmt.Sprintf("%s/library/parts/%d/indexes/sd", c.baseURL, part.ID))
}

func (c *Client) serverOf(item *media.Item) string {
	if item.Server != "" {
		return strings.TrimRight(item.Server, "/")
	}
	return c.baseURL
}

func (c *Client) own(item *media.Item) *media.Item {
	if item != nil && item.Server == "" {
		item.Server = c.baseURL
	}
	return item
}

func (c *Client) authURL(raw string) string {
	if c.token == "" {
		return raw
	}
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + "X-Plex-Token=" + url.QueryEscape(c.token)
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	resp, err := c.do(ctx, http.MethodGet, reqURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "failed to parse response from %s", path)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, reqURL string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Client-Identifier", c.clientID)
	req.Header.Set("X-Plex-Product", c.product)
	if c.platform != "" {
		req.Header.Set("X-Plex-Platform", c.platform)
	}
	if c.token != "" {
		req.Header.Set("X-Plex-Token", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, errors.Wrap(ErrNotFound, req.URL.Path)
	case resp.StatusCode >= 400:
		resp.Body.Close()
		return nil, errors.Newf("plex: %s %s returned %d", method, req.URL.Path, resp.StatusCode)
	}
	return resp, nil
}

// retryLogger adapts retryablehttp's leveled logger to zerolog.
type retryLogger struct{}

func (retryLogger) Error(msg string, kv ...any) { zlog.Error().Fields(kv).Msg("plex: " + msg) }
func (retryLogger) Info(msg string, kv ...any) { zlog.Debug().Fields(kv).Msg("plex: " + msg) }
func (retryLogger) Debug(msg string, kv ...any) { zlog.Trace().Fields(kv).Msg("plex: " + msg) }
func (retryLogger) Warn(msg string, kv ...any) { zlog.Warn().Fields(kv).Msg("plex: " + msg) }
