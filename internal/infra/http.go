package infra

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpClient is the shared client for all providers. Individual fetches rely
// on this transport timeout; there is no per-request retry logic.
var httpClient = &http.Client{Timeout: 30 * time.Second}

// SetHTTPClient replaces the shared client. Intended for tests.
func SetHTTPClient(c *http.Client) { httpClient = c }

// HTTPStatusError is returned when an upstream responds with a non-success
// HTTP status.
type HTTPStatusError struct {
	URL    string
	Status int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

// DoGet performs a GET request with the given headers and returns the
// response body, status code, and error. A non-2xx status yields an
// *HTTPStatusError with the body already drained and closed.
// The caller must close the returned body on success.
func DoGet(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, resp.StatusCode, &HTTPStatusError{URL: url, Status: resp.StatusCode}
	}
	return resp.Body, resp.StatusCode, nil
}

// GetBytes performs a GET request and returns the full response body.
func GetBytes(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	body, _, err := DoGet(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", url, err)
	}
	return data, nil
}
