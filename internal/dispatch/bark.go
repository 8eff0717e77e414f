package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shichaoxia/baby-monitor/internal/config"
)

// BarkPusher issues push notifications through the Bark service: one GET per
// recipient key, tagged groupable and archivable. The HTTP client is shared
// across all push goroutines; its calls are stateless.
type BarkPusher struct {
	client  *http.Client
	baseURL string
	group   string
	keys    []string
}

// NewBarkPusher builds a pusher from the notify configuration.
func NewBarkPusher(cfg config.Notify) *BarkPusher {
	return &BarkPusher{
		client:  &http.Client{Timeout: time.Duration(cfg.RequestTimeout) * time.Second},
		baseURL: cfg.BarkBaseURL,
		group:   cfg.BarkGroup,
		keys:    cfg.BarkKeys,
	}
}

// Keys returns the configured recipient keys.
func (p *BarkPusher) Keys() []string {
	return p.keys
}

// PushKey sends one notification to a single recipient. A non-200 status or
// transport failure is a per-recipient error; there is no retry.
func (p *BarkPusher) PushKey(ctx context.Context, key, title, body string) error {
	endpoint := fmt.Sprintf("%s/%s/%s/%s",
		p.baseURL, key, url.PathEscape(title), url.PathEscape(body))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	q := req.URL.Query()
	q.Set("group", p.group)
	q.Set("isArchive", "1")
	req.URL.RawQuery = q.Encode()

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("push transport: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push status %d", resp.StatusCode)
	}
	return nil
}

// maskKey shortens a recipient key for logs.
func maskKey(key string) string {
	if len(key) <= 5 {
		return key + "***"
	}
	return key[:5] + "***"
}
