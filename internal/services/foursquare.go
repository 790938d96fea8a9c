package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"healthbot/internal/models"

	"golang.org/x/time/rate"
)

// VenueSearcher is the location enrichment collaborator.
type VenueSearcher interface {
	Search(ctx context.Context, query, near string, radiusMeters int) ([]models.Venue, error)
}

const foursquareAPIVersion = "20170421"

// FoursquareClient searches venues via the Foursquare v2 API.
// Requests are rate limited client-side to stay under the API's
// per-hour quota.
type FoursquareClient struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	limiter      *rate.Limiter
}

// NewFoursquareClient creates a new Foursquare venue search client
func NewFoursquareClient(clientID, clientSecret string) *FoursquareClient {
	return &FoursquareClient{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		baseURL:      "https://api.foursquare.com",
		clientID:     clientID,
		clientSecret: clientSecret,
		limiter:      rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// foursquareSearchResponse is the subset of the venues/search response
// the bot consumes.
type foursquareSearchResponse struct {
	Response struct {
		Venues []models.Venue `json:"venues"`
	} `json:"response"`
}

// Search returns venues matching the query near the given location,
// in the order the API returned them.
func (c *FoursquareClient) Search(ctx context.Context, query, near string, radiusMeters int) ([]models.Venue, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnrichmentUnavailable, err)
	}

	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("client_secret", c.clientSecret)
	params.Set("v", foursquareAPIVersion)
	params.Set("query", query)
	params.Set("near", near)
	params.Set("radius", strconv.Itoa(radiusMeters))

	endpoint := fmt.Sprintf("%s/v2/venues/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build venue search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnrichmentUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrEnrichmentUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrEnrichmentUnavailable, resp.StatusCode, body)
	}

	var parsed foursquareSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: parsing response: %v", ErrEnrichmentUnavailable, err)
	}
	return parsed.Response.Venues, nil
}
