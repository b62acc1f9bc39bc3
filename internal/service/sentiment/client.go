package sentiment

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"CryptoSatX/internal/domain/models"
	"CryptoSatX/internal/domain/service"
	"CryptoSatX/internal/service/upstream"
	"CryptoSatX/pkg/util"
)

const fngPath = "/fng/"

// Client reads the alternative.me crypto fear & greed index. The index
// updates daily so readings are memoized for cacheTTL.
type Client struct {
	base     *upstream.Base
	cacheTTL time.Duration
	now      func() time.Time

	mu       sync.Mutex
	cached   *models.FearGreed
	cachedAt time.Time
}

var _ service.SentimentSource = (*Client)(nil)

func New(baseURL string, timeout, cacheTTL time.Duration) *Client {
	return &Client{
		base:     upstream.NewBase("alternative_me", baseURL, timeout, upstream.WithRetries(1, 200*time.Millisecond)),
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

type fngResponse struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
		Timestamp      string `json:"timestamp"`
	} `json:"data"`
	Metadata struct {
		Error *string `json:"error"`
	} `json:"metadata"`
}

func (c *Client) FearGreed(ctx context.Context) (*models.FearGreed, error) {
	c.mu.Lock()
	if c.cached != nil && c.now().Sub(c.cachedAt) < c.cacheTTL {
		fg := *c.cached
		c.mu.Unlock()
		return &fg, nil
	}
	c.mu.Unlock()

	var resp fngResponse
	if err := c.base.GetJSON(ctx, fngPath, map[string][]string{"limit": {"1"}}, &resp); err != nil {
		return nil, err
	}
	if resp.Metadata.Error != nil && *resp.Metadata.Error != "" {
		return nil, upstream.Wrap("alternative_me", fngPath, fmt.Errorf("api error: %s", *resp.Metadata.Error))
	}
	if len(resp.Data) == 0 {
		return nil, upstream.Wrap("alternative_me", fngPath, fmt.Errorf("empty index"))
	}
	d := resp.Data[0]
	v, err := strconv.ParseFloat(d.Value, 64)
	if err != nil {
		return nil, upstream.Wrap("alternative_me", fngPath, fmt.Errorf("parse value %q: %w", d.Value, err))
	}
	fg := &models.FearGreed{
		Value:          v,
		Classification: d.Classification,
		Timestamp:      util.ParseTimeDefault(d.Timestamp, c.now().UTC()),
		Source:         "alternative.me",
	}

	c.mu.Lock()
	c.cached, c.cachedAt = fg, c.now()
	c.mu.Unlock()
	out := *fg
	return &out, nil
}
