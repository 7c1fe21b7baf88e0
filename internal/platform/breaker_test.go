package platform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/unfold/internal/models"
)

// flakyClient fails every search call until failures runs out, then
// succeeds.
type flakyClient struct {
	failures int
	calls    int
}

func (c *flakyClient) Platform() models.Platform { return models.PlatformInstagram }

func (c *flakyClient) SearchByUsername(ctx context.Context, username string) (*RawProfile, error) {
	c.calls++
	if c.failures > 0 {
		c.failures--
		return nil, errors.New("connection reset")
	}
	return &RawProfile{ExternalID: "42", Username: username}, nil
}

func (c *flakyClient) SearchByKeywords(ctx context.Context, keywords string, maxResults int) ([]RawProfile, error) {
	c.calls++
	if c.failures > 0 {
		c.failures--
		return nil, errors.New("connection reset")
	}
	return nil, nil
}

func (c *flakyClient) DownloadProfilePhoto(ctx context.Context, prof *models.Profile, path string) (bool, error) {
	return false, nil
}

func (c *flakyClient) DownloadPostImages(ctx context.Context, prof *models.Profile, dir string, maxCount int) (bool, error) {
	return false, nil
}

func (c *flakyClient) Authenticated() bool   { return true }
func (c *flakyClient) Blocked() bool         { return false }
func (c *flakyClient) Errors() []ClientError { return nil }
func (c *flakyClient) Close() error          { return nil }

func TestBreakerPassesThroughSuccess(t *testing.T) {
	inner := &flakyClient{}
	bc := NewBreakerClient(inner, time.Minute)

	prof, err := bc.SearchByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, prof)
	assert.Equal(t, "alice", prof.Username)
	assert.False(t, bc.Blocked())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyClient{failures: 100}
	bc := NewBreakerClient(inner, time.Minute)

	for i := 0; i < 5; i++ {
		_, err := bc.SearchByUsername(context.Background(), "alice")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrBlocked), "underlying errors pass through until the breaker trips")
	}

	callsBefore := inner.calls
	_, err := bc.SearchByKeywords(context.Background(), "alice smith", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Equal(t, callsBefore, inner.calls, "open breaker must not reach the platform")
	assert.True(t, bc.Blocked())
}

func TestBreakerRecoversAfterCooldown(t *testing.T) {
	inner := &flakyClient{failures: 5}
	bc := NewBreakerClient(inner, 20*time.Millisecond)

	for i := 0; i < 5; i++ {
		_, err := bc.SearchByUsername(context.Background(), "alice")
		require.Error(t, err)
	}
	require.True(t, bc.Blocked())

	time.Sleep(30 * time.Millisecond)

	prof, err := bc.SearchByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, prof)
	assert.False(t, bc.Blocked())
}
