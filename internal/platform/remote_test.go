package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/unfold/internal/models"
)

func newTestRemote(t *testing.T, baseURL string) (*RemoteClient, *[]time.Duration) {
	t.Helper()
	c, err := NewRemoteClient(models.PlatformInstagram, baseURL,
		filepath.Join(t.TempDir(), "rate.json"), 1000)
	require.NoError(t, err)

	slept := &[]time.Duration{}
	c.sleep = func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	return c, slept
}

func TestRemoteRetriesAfterRateLimit(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"found":true,"profile":{"username":"mrossi"}}`))
	}))
	defer srv.Close()

	c, slept := newTestRemote(t, srv.URL)
	prof, err := c.SearchByUsername(context.Background(), "mrossi")
	require.NoError(t, err)
	require.NotNil(t, prof)
	assert.Equal(t, "mrossi", prof.Username)

	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{rateLimitBackoff, 2 * rateLimitBackoff}, *slept)
	assert.Len(t, c.Errors(), 2)
}

func TestRemoteRateLimitRetriesExhausted(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, slept := newTestRemote(t, srv.URL)
	_, err := c.SearchByUsername(context.Background(), "mrossi")
	assert.ErrorIs(t, err, ErrRateLimited)

	assert.Equal(t, rateLimitRetries+1, calls)
	assert.Len(t, *slept, rateLimitRetries)
}

func TestRemoteUnauthorizedMarksSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, _ := newTestRemote(t, srv.URL)
	_, err := c.SearchByUsername(context.Background(), "mrossi")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.False(t, c.Authenticated())
}

func TestRemoteForbiddenMarksBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c, _ := newTestRemote(t, srv.URL)
	_, err := c.SearchByKeywords(context.Background(), "mario rossi", 10)
	assert.ErrorIs(t, err, ErrBlocked)
	assert.True(t, c.Blocked())
}
