package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"StudyPlanner/internal/domain"
)

// Feed describes one subscribed calendar export URL.
type Feed struct {
	ID  string
	URL string
}

// Fetcher downloads raw ICS payloads. Failures are classified into the
// FetchError taxonomy so the pipeline can surface them verbatim.
type Fetcher struct {
	client *http.Client
}

// NewFetcher wires an HTTP client; nil gets a default with a 15s timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client}
}

// Fetch downloads one feed. Any returned error is a *domain.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, feed Feed) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, &domain.FetchError{Kind: domain.FetchNetworkError, Feed: feed.ID, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		kind := domain.FetchNetworkError
		if isTimeout(err) {
			kind = domain.FetchTimeout
		}
		return nil, &domain.FetchError{Kind: kind, Feed: feed.ID, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Export URLs embed an auth token; 401/403 means it expired.
		return nil, &domain.FetchError{
			Kind: domain.FetchAuthExpired,
			Feed: feed.ID,
			Err:  fmt.Errorf("status %s", resp.Status),
		}
	case resp.StatusCode != http.StatusOK:
		return nil, &domain.FetchError{
			Kind: domain.FetchNetworkError,
			Feed: feed.ID,
			Err:  fmt.Errorf("status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.FetchError{Kind: domain.FetchNetworkError, Feed: feed.ID, Err: err}
	}

	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
