package entitycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/moxious/historynet/resolver/pkg/lookup"
)

// ErrServiceUnavailable means the lookup service reports its index was
// never generated. It is retryable and never cached as absent.
var ErrServiceUnavailable = errors.New("entity lookup service unavailable")

// HTTPFetcher implements Fetcher against the lookup service's batch
// endpoint.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (f *HTTPFetcher) FetchBatch(ctx context.Context, q lookup.BatchQuery) (*lookup.BatchResult, error) {
	params := url.Values{}
	if len(q.ExternalIDs) > 0 {
		params.Set("externalIds", strings.Join(q.ExternalIDs, ","))
	}
	if len(q.Titles) > 0 {
		params.Set("titles", strings.Join(q.Titles, ","))
	}
	if len(q.NodeIDs) > 0 {
		params.Set("nodeIds", strings.Join(q.NodeIDs, ","))
	}

	endpoint := f.BaseURL + "/api/entities?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return nil, ErrServiceUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("entity lookup failed with status %d", resp.StatusCode)
	}

	var out lookup.BatchResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode lookup response: %w", err)
	}
	if out.Results == nil {
		out.Results = make(map[string]*lookup.Result)
	}
	return &out, nil
}
