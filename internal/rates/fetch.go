package rates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	requestTimeout = 15 * time.Second
	maxBodySize    = 4 << 20 // 4 MB
)

// ErrFetchFailed is returned when the rate sheet server answers with a
// non-2xx status.
var ErrFetchFailed = errors.New("rates: fetch failed")

// Fetch downloads a rate sheet in the CSV layout accepted by ParseCSV.
// A nil client uses http.DefaultClient.
func Fetch(ctx context.Context, client *http.Client, url string) (*Table, error) {
	body, err := get(ctx, client, url)
	if err != nil {
		return nil, err
	}

	t, err := ParseCSV(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rates: parsing %s: %w", url, err)
	}
	return t, nil
}

func get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("rates: creating request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")
	req.Header.Set("User-Agent", "cfplan/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rates: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("rates: reading response: %w", err)
	}
	return body, nil
}
