package price

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"go.uber.org/zap"

	"vaultScope/internal/cache"
	"vaultScope/internal/errs"
	"vaultScope/internal/httpx"
)

// lookbackMargin bounds how stale a price may be relative to the requested
// timestamp. Prices older than this are treated as missing.
const lookbackMargin = 5 * time.Hour

const defaultTTL = time.Minute

// Client fetches historical USD prices from the external oracle API. A
// price is resolved as the latest sample at or before the requested
// timestamp within the lookback window.
type Client struct {
	http    *httpx.Client
	baseURL string
	apiKey  string
	cache   *cache.Cache
	ttl     time.Duration
	logger  *zap.Logger
}

// New builds a price Client. A nil logger falls back to a no-op logger.
func New(http *httpx.Client, baseURL, apiKey string, memo *cache.Cache, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:    http,
		baseURL: baseURL,
		apiKey:  apiKey,
		cache:   memo,
		ttl:     defaultTTL,
		logger:  logger,
	}
}

type pricePoint struct {
	Timestamp int64   `json:"t"`
	Value     float64 `json:"v"`
}

// GetTokenPrice returns the USD price of the oracle id at the given unix
// timestamp. Missing prices surface as PriceNotFoundError, never as zero.
func (c *Client) GetTokenPrice(ctx context.Context, oracleID string, timestamp uint64) (float64, error) {
	// the fetch is shared across waiters and must not inherit any one
	// caller's cancellation
	prodCtx := context.WithoutCancel(ctx)
	key := cache.Key("price", oracleID, fmt.Sprintf("%d", timestamp))
	value, err := c.cache.Wrap(key, c.ttl, func() (interface{}, error) {
		return c.fetchPrice(prodCtx, oracleID, timestamp)
	})
	if err != nil {
		return 0, err
	}
	return value.(float64), nil
}

func (c *Client) fetchPrice(ctx context.Context, oracleID string, timestamp uint64) (float64, error) {
	from := int64(timestamp) - int64(lookbackMargin/time.Second)
	if from < 0 {
		from = 0
	}

	params := url.Values{}
	params.Set("oracle", oracleID)
	params.Set("from", fmt.Sprintf("%d", from))
	params.Set("to", fmt.Sprintf("%d", timestamp))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	endpoint := fmt.Sprintf("%s/api/v2/prices/range?%s", c.baseURL, params.Encode())
	c.logger.Debug("fetching prices",
		zap.String("oracle", oracleID),
		zap.Int64("from", from),
		zap.Uint64("to", timestamp),
	)

	var points []pricePoint
	if err := c.http.GetJSON(ctx, endpoint, &points); err != nil {
		return 0, fmt.Errorf("fetch prices for %s: %w", oracleID, err)
	}

	if len(points) == 0 {
		return 0, errs.PriceNotFound(oracleID, timestamp)
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp < points[j].Timestamp
	})
	return points[len(points)-1].Value, nil
}
