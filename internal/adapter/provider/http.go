package provider

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// caller is the shared HTTP plumbing of the concrete adapters: a bounded
// per-call timeout and a per-adapter rate limit.
type caller struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
}

func newCaller(httpClient *http.Client, timeout time.Duration, perSecond float64) *caller {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &caller{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		timeout:    timeout,
	}
}

// do sends req and returns status and body. The context deadline covers
// waiting on the limiter as well as the round trip.
func (c *caller) do(ctx context.Context, req *http.Request) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}

	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// classify turns a raw exchange into a Result.
func classify(status int, body []byte, err error) Result {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Fail(FailureNetwork, "request timed out")
		}
		return Fail(FailureNetwork, "%v", err)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return Fail(FailureAuth, "upstream rejected credentials [%d]", status)
	}
	if status < 200 || status > 299 {
		return Fail(FailureStatus, "upstream error [%d]: %s", status, truncate(string(body), 200))
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Fail(FailureEmpty, "upstream returned an empty body")
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return Fail(FailureMalformed, "upstream returned non-JSON payload")
	}
	return Success(trimmed)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
