package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/your-org/unfold/internal/models"
)

// A connector 429 is absorbed here rather than surfaced: the request is
// retried after a doubling backoff, up to rateLimitRetries extra attempts.
// Only after the last attempt does ErrRateLimited reach the caller.
const (
	rateLimitRetries = 2
	rateLimitBackoff = 30 * time.Second
)

// RemoteClient talks to a platform connector sidecar over HTTP JSON. The
// connectors own the platform sessions; this client owns the rate
// discipline: every call first passes the persisted rate gate, so restarts
// do not reset the request budget the remote platform sees.
type RemoteClient struct {
	platform models.Platform
	baseURL  string
	http     *http.Client
	gate     *RateGate
	sink     ErrorSink

	blocked bool
	authed  bool

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRemoteClient builds a client for one platform connector. The rate gate
// state is persisted at statePath.
func NewRemoteClient(pf models.Platform, baseURL, statePath string, maxPerSec float64) (*RemoteClient, error) {
	gate, err := NewRateGate(statePath, string(pf), maxPerSec)
	if err != nil {
		return nil, fmt.Errorf("rate gate for %s: %w", pf, err)
	}
	return &RemoteClient{
		platform: pf,
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 60 * time.Second},
		gate:     gate,
		authed:   true,
		sleep:    sleepCtx,
	}, nil
}

func (c *RemoteClient) Platform() models.Platform { return c.platform }

func (c *RemoteClient) SearchByUsername(ctx context.Context, username string) (*RawProfile, error) {
	var out struct {
		Found   bool       `json:"found"`
		Profile RawProfile `json:"profile"`
	}
	q := url.Values{"username": {username}}
	if err := c.get(ctx, "/search/username", q, &out); err != nil {
		return nil, err
	}
	if !out.Found {
		return nil, nil
	}
	return &out.Profile, nil
}

func (c *RemoteClient) SearchByKeywords(ctx context.Context, keywords string, maxResults int) ([]RawProfile, error) {
	var out struct {
		Profiles []RawProfile `json:"profiles"`
	}
	q := url.Values{
		"q":     {keywords},
		"limit": {strconv.Itoa(maxResults)},
	}
	if err := c.get(ctx, "/search/keywords", q, &out); err != nil {
		return nil, err
	}
	return out.Profiles, nil
}

func (c *RemoteClient) DownloadProfilePhoto(ctx context.Context, prof *models.Profile, path string) (bool, error) {
	q := url.Values{"external_id": {prof.ExternalID}}
	return c.download(ctx, "/media/profile_photo", q, path)
}

func (c *RemoteClient) DownloadPostImages(ctx context.Context, prof *models.Profile, dir string, maxCount int) (bool, error) {
	var out struct {
		Keys []string `json:"keys"`
	}
	q := url.Values{
		"external_id": {prof.ExternalID},
		"limit":       {strconv.Itoa(maxCount)},
	}
	if err := c.get(ctx, "/media/posts", q, &out); err != nil {
		return false, err
	}
	if len(out.Keys) == 0 {
		return false, nil
	}

	any := false
	for i, key := range out.Keys {
		dest := fmt.Sprintf("%s/post_%03d.jpg", dir, i)
		ok, err := c.download(ctx, "/media/post", url.Values{"key": {key}}, dest)
		if err != nil {
			return any, err
		}
		if ok {
			any = true
		}
	}
	return any, nil
}

func (c *RemoteClient) Authenticated() bool { return c.authed }

func (c *RemoteClient) Blocked() bool { return c.blocked }

func (c *RemoteClient) Errors() []ClientError { return c.sink.Errors() }

func (c *RemoteClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// --- Telegram extensions ---

func (c *RemoteClient) LookupByID(ctx context.Context, id int64) (*RawProfile, error) {
	var out struct {
		Found   bool       `json:"found"`
		Profile RawProfile `json:"profile"`
	}
	q := url.Values{"id": {strconv.FormatInt(id, 10)}}
	if err := c.get(ctx, "/lookup", q, &out); err != nil {
		return nil, err
	}
	if !out.Found {
		return nil, nil
	}
	return &out.Profile, nil
}

func (c *RemoteClient) ListMembers(ctx context.Context, group string) ([]RawProfile, error) {
	var out struct {
		Members []RawProfile `json:"members"`
	}
	q := url.Values{"group": {group}}
	if err := c.get(ctx, "/group/members", q, &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

func (c *RemoteClient) MemberActivity(ctx context.Context, group string, messageLimit int) (map[string]int, error) {
	var out struct {
		Activity map[string]int `json:"activity"`
	}
	q := url.Values{
		"group": {group},
		"limit": {strconv.Itoa(messageLimit)},
	}
	if err := c.get(ctx, "/group/activity", q, &out); err != nil {
		return nil, err
	}
	return out.Activity, nil
}

// --- transport ---

func (c *RemoteClient) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	body, err := c.do(ctx, path, q)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", c.platform, path, err)
	}
	return nil
}

func (c *RemoteClient) download(ctx context.Context, path string, q url.Values, dest string) (bool, error) {
	body, err := c.do(ctx, path, q)
	if err != nil {
		return false, err
	}
	if len(body) == 0 {
		return false, nil
	}
	if err := os.WriteFile(dest, body, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", dest, err)
	}
	return true, nil
}

func (c *RemoteClient) do(ctx context.Context, path string, q url.Values) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		body, err := c.doOnce(ctx, path, q)
		if !errors.Is(err, ErrRateLimited) || attempt == rateLimitRetries {
			return body, err
		}
		backoff := rateLimitBackoff * time.Duration(1<<attempt)
		slog.Info("connector rate limited, retrying", "platform", c.platform,
			"path", path, "backoff", backoff, "attempt", attempt+1)
		if err := c.sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}
}

func (c *RemoteClient) doOnce(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if err := c.gate.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.baseURL + path
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", c.platform, path, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.sink.Record(0, err)
		return nil, fmt.Errorf("%s %s: %w", c.platform, path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return nil, nil
	case http.StatusUnauthorized:
		c.authed = false
		c.sink.Record(resp.StatusCode, ErrNotAuthenticated)
		return nil, ErrNotAuthenticated
	case http.StatusForbidden:
		c.blocked = true
		c.sink.Record(resp.StatusCode, ErrBlocked)
		return nil, ErrBlocked
	case http.StatusTooManyRequests:
		c.sink.Record(resp.StatusCode, ErrRateLimited)
		return nil, ErrRateLimited
	default:
		err := fmt.Errorf("%s %s: connector returned %d", c.platform, path, resp.StatusCode)
		c.sink.Record(resp.StatusCode, err)
		return nil, err
	}

	return io.ReadAll(resp.Body)
}

var (
	_ Client         = (*RemoteClient)(nil)
	_ TelegramClient = (*RemoteClient)(nil)
)
