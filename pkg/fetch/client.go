package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const userAgent = "bake/1.0"

// Client downloads source archives over HTTP(S)
type Client struct {
	httpClient *http.Client
}

// NewClient creates a client without an overall timeout
func NewClient() *Client {
	return NewClientWithTimeout(0)
}

// NewClientWithTimeout bounds each download by timeout. Zero means no limit.
func NewClientWithTimeout(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				MaxIdleConns:    4,
				IdleConnTimeout: 30 * time.Second,
			},
		},
	}
}

// Download streams url into w. It returns the bytes written and the size the
// server announced, -1 when unknown. A body shorter than the announced size
// is an error.
func (c *Client) Download(ctx context.Context, url string, w io.Writer) (written, size int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, -1, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, -1, fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, -1, fmt.Errorf("server returned %s", resp.Status)
	}

	size = resp.ContentLength
	written, err = io.Copy(w, resp.Body)
	if err != nil {
		return written, size, fmt.Errorf("reading body: %w", err)
	}
	if size >= 0 && written != size {
		return written, size, fmt.Errorf("truncated download: got %d of %d bytes", written, size)
	}
	return written, size, nil
}
