package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerClient wraps a Client with a circuit breaker over its search
// calls. Repeated transport failures against a platform usually mean the
// remote side is throttling or has flagged the session; once the breaker
// trips, search calls fail with ErrBlocked and the orchestrator aborts
// the platform's pass instead of hammering it further.
type BreakerClient struct {
	Client
	cb *gobreaker.CircuitBreaker
}

// NewBreakerClient wraps inner. The breaker opens after five consecutive
// failures and probes again after cooldown.
func NewBreakerClient(inner Client, cooldown time.Duration) *BreakerClient {
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    fmt.Sprintf("platform-%s", inner.Platform()),
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &BreakerClient{Client: inner, cb: cb}
}

func (c *BreakerClient) SearchByUsername(ctx context.Context, username string) (*RawProfile, error) {
	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.Client.SearchByUsername(ctx, username)
	})
	if err != nil {
		return nil, c.mapErr(err)
	}
	prof, _ := res.(*RawProfile)
	return prof, nil
}

func (c *BreakerClient) SearchByKeywords(ctx context.Context, keywords string, maxResults int) ([]RawProfile, error) {
	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.Client.SearchByKeywords(ctx, keywords, maxResults)
	})
	if err != nil {
		return nil, c.mapErr(err)
	}
	profs, _ := res.([]RawProfile)
	return profs, nil
}

func (c *BreakerClient) Blocked() bool {
	return c.cb.State() == gobreaker.StateOpen || c.Client.Blocked()
}

func (c *BreakerClient) mapErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s circuit open: %w", c.Platform(), ErrBlocked)
	}
	return err
}

var _ Client = (*BreakerClient)(nil)
