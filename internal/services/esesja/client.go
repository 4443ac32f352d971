package esesja

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/mwidera/plenum/internal/catalog"
	"github.com/mwidera/plenum/internal/config"
	"github.com/mwidera/plenum/internal/logging"
	"github.com/mwidera/plenum/internal/services"
)

// HTTPDoer describes the HTTP client used by the discoverer.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client discovers recorded sessions from an esesja.tv-style listing and
// resolves stream URLs from session pages. A single Client is shared across
// pipeline workers, so request throttling is serialized internally.
type Client struct {
	httpClient HTTPDoer
	baseURL    string
	userAgent  string
	delay      time.Duration
	logger     *slog.Logger

	mu          sync.Mutex
	lastRequest time.Time
}

// NewClient builds a discoverer from configuration. The listing host throttles
// aggressive crawlers, so requests are spaced by source.request_delay_ms.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	timeout := time.Duration(cfg.Source.RequestTimeout) * time.Second
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.Source.BaseURL,
		userAgent:  cfg.Source.UserAgent,
		delay:      time.Duration(cfg.Source.RequestDelayMS) * time.Millisecond,
		logger:     logging.NewComponentLogger(logger, "esesja"),
	}
}

// NewClientWithDoer constructs a discoverer with an injected HTTP client.
func NewClientWithDoer(doer HTTPDoer, baseURL, userAgent string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		httpClient: doer,
		baseURL:    baseURL,
		userAgent:  userAgent,
		logger:     logging.NewComponentLogger(logger, "esesja"),
	}
}

// WithRequestDelay overrides the spacing between successive requests.
func (c *Client) WithRequestDelay(delay time.Duration) *Client {
	c.delay = delay
	return c
}

// Discover fetches the requested number of listing pages and returns the
// sessions in listed order, newest first. Partial pages at the end of the
// listing are fine; an empty first page is reported as an error because it
// usually means the site markup changed.
func (c *Client) Discover(ctx context.Context, pages int) ([]catalog.Item, error) {
	if pages < 1 {
		pages = 1
	}
	var items []catalog.Item
	seen := make(map[string]struct{})
	for page := 1; page <= pages; page++ {
		body, err := c.get(ctx, c.pageURL(page), "fetch listing")
		if err != nil {
			return nil, err
		}
		pageItems, err := parseListing(c.baseURL, body)
		body.Close()
		if err != nil {
			return nil, err
		}
		c.logger.Debug("parsed listing page",
			logging.Int("page", page),
			logging.Int("sessions", len(pageItems)))
		if len(pageItems) == 0 {
			if page == 1 {
				return nil, services.Wrap(services.ErrNetwork, "esesja", "fetch listing",
					"listing page contained no sessions; site layout may have changed", nil)
			}
			break
		}
		for _, item := range pageItems {
			if _, dup := seen[item.Identifier]; dup {
				continue
			}
			seen[item.Identifier] = struct{}{}
			items = append(items, item)
		}
	}
	c.logger.Info("discovered sessions", logging.Int("count", len(items)))
	return items, nil
}

func (c *Client) pageURL(page int) string {
	if page <= 1 {
		return c.baseURL
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) get(ctx context.Context, rawURL, operation string) (io.ReadCloser, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "esesja", operation, "build request", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept-Language", "pl-PL,pl;q=0.9,en;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "esesja", operation,
			fmt.Sprintf("request %s failed", rawURL), err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, services.Wrap(services.ErrNetwork, "esesja", operation,
			fmt.Sprintf("%s returned HTTP %d", rawURL, resp.StatusCode), nil)
	}
	return resp.Body, nil
}

// throttle spaces successive requests. The first request goes out
// immediately. The mutex is held across the wait so concurrent callers queue
// up and each request keeps the configured spacing.
func (c *Client) throttle(ctx context.Context) error {
	if c.delay <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lastRequest.IsZero() {
		wait := c.delay - time.Since(c.lastRequest)
		if wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	c.lastRequest = time.Now()
	return nil
}
