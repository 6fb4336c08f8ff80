package companion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Client calls a player's companion API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a new companion API client.
func NewClient(httpClient *http.Client, baseURL, token string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

func (c *Client) Play(ctx context.Context) error { return c.command(ctx, "play", nil) }
func (c *Client) Pause(ctx context.Context) error { return c.command(ctx, "pause", nil) }
func (c *Client) Stop(ctx context.Context) error { return c.command(ctx, "stop", nil) }

func (c *Client) SkipNext(ctx context.Context) error {
	return c.command(ctx, "skipNext", nil)
}

func (c *Client) SkipPrevious(ctx context.Context) error {
	return c.command(ctx, "skipPrevious", nil)
}

func (c *Client) StepForward(ctx context.Context) error {
	return c.command(ctx, "stepForward", nil)
}

func (c *Client) StepBack(ctx context.Context) error {
	return c.command(ctx, "stepBack", nil)
}

// SeekTo seeks to offset ms.
func (c *Client) SeekTo(ctx context.Context, offset int64) error {
	return c.command(ctx, "seekTo", url.Values{"offset": {strconv.FormatInt(offset, 10)}})
}

// SkipTo jumps to a queue position.
func (c *Client) SkipTo(ctx context.Context, pos int) error {
	return c.command(ctx, "skipTo", url.Values{"pos": {strconv.Itoa(pos)}})
}

// PlayMedia asks the player to play key, through containerKey's play queue when set.
func (c *Client) PlayMedia(ctx context.Context, key, containerKey string, offset int64) error {
	params := url.Values{"key": {key}}
	if containerKey != "" {
		params.Set("containerKey", containerKey)
	}
	if offset > 0 {
		params.Set("offset", strconv.FormatInt(offset, 10))
	}
	return c.command(ctx, "playMedia", params)
}

// Poll returns the player status.
func (c *Client) Poll(ctx context.Context) (*TimelineStatus, error) {
	var status TimelineStatus
	if err := c.get(ctx, "/player/timeline/poll", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) command(ctx context.Context, name string, params url.Values) error {
	var resp response
	return c.get(ctx, "/player/playback/"+name, params, &resp)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	if c.token != "" {
		req.Header.Set(TokenHeader, c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "request %s failed", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		var failure response
		if json.Unmarshal(body, &failure) == nil && failure.Message != "" {
			return errors.Newf("%s: %s (status %d)", path, failure.Message, resp.StatusCode)
		}
		return errors.Newf("%s: status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}
