// Package rxnav provides the client for the RxNav drug-terminology service and
// the extraction of savable candidates from its responses.
package rxnav

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rxcatalog/medications-catalog/entities"
	"github.com/rxcatalog/medications-catalog/interfaces"
	"github.com/rxcatalog/medications-catalog/logging"
	"github.com/rxcatalog/medications-catalog/metrics"
	rxentities "github.com/rxcatalog/medications-catalog/rxnav/entities"
)

// DefaultBaseURL is the public RxNav REST root.
const DefaultBaseURL = "https://rxnav.nlm.nih.gov/REST"

// maxResponseSize bounds how much of a lookup body is read.
const maxResponseSize = 8 * 1024 * 1024

var _ interfaces.ConceptLookup = (*Client)(nil)

// Client queries the Prescribe drugs endpoint. It neither caches nor retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client with the given base URL and network timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Drugs looks up concepts by name. Any transport, status or decoding failure
// is returned wrapped in entities.ErrExternalService.
func (c *Client) Drugs(ctx context.Context, name string) (*rxentities.DrugsResponse, error) {
	endpoint := fmt.Sprintf("%s/Prescribe/drugs.json?name=%s", c.baseURL, url.QueryEscape(name))

	start := time.Now()
	resp, err := c.fetch(ctx, endpoint)
	metrics.LookupDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LookupErrors.Inc()
		return nil, fmt.Errorf("%w: %w", entities.ErrExternalService, err)
	}

	return resp, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) (*rxentities.DrugsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", endpoint, err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup returned status %d", response.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var drugs rxentities.DrugsResponse
	if err := json.Unmarshal(body, &drugs); err != nil {
		return nil, fmt.Errorf("malformed lookup response: %w", err)
	}

	logging.Debug("Lookup completed", "endpoint", endpoint, "bytes", len(body))
	return &drugs, nil
}
