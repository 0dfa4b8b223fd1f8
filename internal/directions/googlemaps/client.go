// Package googlemaps provides a client for the Google Directions API in
// transit mode.
package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/punctualhq/punctual/internal/directions"
	"github.com/punctualhq/punctual/internal/provider/resilience"
)

const (
	// ProviderName identifies this directions provider.
	ProviderName = "googlemaps"

	// DefaultBaseURL is the Google Maps API base URL.
	DefaultBaseURL = "https://maps.googleapis.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Google Directions client.
type ClientConfig struct {
	// APIKey is the Google Maps API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to the public API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Google Directions API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Google Directions client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Route retrieves a transit route between two free-text places. The target
// time is sent as departure_time or arrival_time depending on the basis.
func (c *Client) Route(ctx context.Context, req directions.EstimateRequest) (*directions.ProviderRoute, error) {
	query := url.Values{}
	query.Set("origin", req.Origin)
	query.Set("destination", req.Destination)
	query.Set("mode", "transit")
	query.Set("alternatives", "false")
	query.Set("key", c.apiKey)

	ts := strconv.FormatInt(req.TargetTime.Unix(), 10)
	if req.Basis == directions.BasisArrival {
		query.Set("arrival_time", ts)
	} else {
		query.Set("departure_time", ts)
	}

	endpoint := fmt.Sprintf("%s/maps/api/directions/json?%s", c.baseURL, query.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.logger.Debug().
		Str("origin", req.Origin).
		Str("destination", req.Destination).
		Str("basis", string(req.Basis)).
		Msg("requesting directions from Google")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &directions.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach directions provider",
			Err:      directions.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleHTTPError(resp.StatusCode)
	}

	var apiResp directionsResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if apiResp.Status != statusOK {
		return nil, c.handleStatusError(&apiResp)
	}

	route, err := c.toProviderRoute(&apiResp)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("legs", len(route.Legs)).
		Int("duration_seconds", route.DurationSeconds).
		Msg("received directions from Google")

	return route, nil
}

// handleHTTPError maps transport-level failures to domain errors.
func (c *Client) handleHTTPError(statusCode int) error {
	if statusCode >= 500 {
		return &directions.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", statusCode),
			Message:  "directions provider is temporarily unavailable",
			Err:      directions.ErrProviderUnavailable,
		}
	}
	return &directions.Error{
		Provider: ProviderName,
		Code:     fmt.Sprintf("HTTP_%d", statusCode),
		Message:  fmt.Sprintf("directions provider returned status %d", statusCode),
		Err:      directions.ErrProviderUnavailable,
	}
}

// handleStatusError maps the API's status field to domain errors. Google
// returns HTTP 200 for most application-level failures.
func (c *Client) handleStatusError(resp *directionsResponse) error {
	message := resp.ErrorMessage
	if message == "" {
		message = "directions request failed with status " + resp.Status
	}

	switch resp.Status {
	case statusZeroResults, statusNotFound:
		return &directions.Error{
			Provider: ProviderName,
			Code:     resp.Status,
			Message:  "no route found between the given places",
			Err:      directions.ErrNoRouteFound,
		}
	case statusOverQueryLimit:
		return &directions.Error{
			Provider: ProviderName,
			Code:     resp.Status,
			Message:  "API quota exceeded, please try again later",
			Err:      directions.ErrRateLimitExceeded,
		}
	case statusRequestDenied:
		return &directions.Error{
			Provider: ProviderName,
			Code:     resp.Status,
			Message:  "API access denied - check API key configuration",
			Err:      directions.ErrProviderUnavailable,
		}
	case statusInvalidRequest:
		return &directions.Error{
			Provider: ProviderName,
			Code:     resp.Status,
			Message:  message,
			Err:      directions.ErrInvalidRequest,
		}
	default:
		return &directions.Error{
			Provider: ProviderName,
			Code:     resp.Status,
			Message:  message,
			Err:      directions.ErrProviderUnavailable,
		}
	}
}

// toProviderRoute converts the API response to the domain model.
func (c *Client) toProviderRoute(resp *directionsResponse) (*directions.ProviderRoute, error) {
	if len(resp.Routes) == 0 || len(resp.Routes[0].Legs) == 0 {
		return nil, &directions.Error{
			Provider: ProviderName,
			Code:     "EMPTY_ROUTE",
			Message:  "no route found between the given places",
			Err:      directions.ErrNoRouteFound,
		}
	}

	// Transit directions between two places always come back as one leg;
	// the steps within it are what we care about.
	leg := &resp.Routes[0].Legs[0]

	route := &directions.ProviderRoute{
		DurationSeconds: leg.Duration.Value,
		DistanceMeters:  leg.Distance.Value,
		Legs:            make([]directions.RouteLeg, 0, len(leg.Steps)),
	}

	for i := range leg.Steps {
		step := &leg.Steps[i]
		routeLeg := directions.RouteLeg{
			Mode:         step.TravelMode,
			Distance:     step.Distance.Text,
			Duration:     step.Duration.Text,
			Instructions: stripBold(step.HTMLInstructions),
		}

		if step.TransitDetails != nil {
			td := step.TransitDetails
			detail := &directions.TransitDetail{
				LineName:      td.Line.Name,
				LineShortName: td.Line.ShortName,
				VehicleType:   td.Line.Vehicle.Type,
				DepartureStop: td.DepartureStop.Name,
				ArrivalStop:   td.ArrivalStop.Name,
				NumStops:      td.NumStops,
				Headsign:      td.Headsign,
			}
			if td.DepartureTime != nil {
				t := time.Unix(td.DepartureTime.Value, 0).UTC()
				detail.DepartureTime = &t
			}
			if td.ArrivalTime != nil {
				t := time.Unix(td.ArrivalTime.Value, 0).UTC()
				detail.ArrivalTime = &t
			}
			routeLeg.Transit = detail
		}

		route.Legs = append(route.Legs, routeLeg)
	}

	return route, nil
}

// stripBold removes the <b> markup Google embeds in instruction text.
func stripBold(s string) string {
	s = strings.ReplaceAll(s, "<b>", "")
	return strings.ReplaceAll(s, "</b>", "")
}
