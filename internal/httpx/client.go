package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	clierr "github.com/ggonzalez94/yieldscout/internal/errors"
	"golang.org/x/time/rate"
)

type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// New builds a client. requestsPerMinute <= 0 disables rate limiting.
func New(timeout time.Duration, requestsPerMinute int) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "yieldscout/1.0",
	}
	if requestsPerMinute > 0 {
		burst := requestsPerMinute / 10
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
	}
	return c
}

// DoJSON performs req once and decodes a 2xx body into out. There is no retry:
// callers own retry policy.
func (c *Client) DoJSON(ctx context.Context, req *http.Request, out any) (http.Header, error) {
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, contextError(ctx, err)
		}
	}

	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, mapNetError(ctx, err)
	}
	buf, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp.Header, mapNetError(ctx, readErr)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return resp.Header, clierr.New(clierr.CodeUnavailable, "provider rate limited request (status 429)")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.Header, clierr.New(clierr.CodeUnavailable, fmt.Sprintf("provider returned unexpected status %d", resp.StatusCode))
	}

	if out == nil {
		return resp.Header, nil
	}
	if len(bytes.TrimSpace(buf)) == 0 {
		return resp.Header, clierr.New(clierr.CodeDataFormat, "provider returned empty response")
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return resp.Header, clierr.Wrap(clierr.CodeDataFormat, "decode provider JSON", err)
	}
	return resp.Header, nil
}

func mapNetError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return contextError(ctx, err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return clierr.Wrap(clierr.CodeTimeout, "provider timeout", err)
	}
	return clierr.Wrap(clierr.CodeUnavailable, "provider request failed", err)
}

func contextError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return clierr.Wrap(clierr.CodeTimeout, "request cancelled", err)
	}
	return clierr.Wrap(clierr.CodeTimeout, "request timed out", err)
}
