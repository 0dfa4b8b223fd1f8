// Package twilio provides an SMS delivery client backed by the Twilio
// Messages API.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/punctualhq/punctual/internal/notify"
	"github.com/punctualhq/punctual/internal/provider/resilience"
)

const (
	// ProviderName identifies this delivery provider.
	ProviderName = "twilio"

	// DefaultBaseURL is the Twilio REST API base URL.
	DefaultBaseURL = "https://api.twilio.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Twilio client.
type ClientConfig struct {
	// AccountSID is the Twilio account identifier (required).
	AccountSID string

	// AuthToken is the Twilio API auth token (required).
	AuthToken string

	// FromNumber is the sending phone number (required).
	FromNumber string

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

// Client is a Twilio Messages API client.
type Client struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Twilio client.
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
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// messageResponse represents a Twilio message resource.
type messageResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// errorResponse represents a Twilio API error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// Send delivers an SMS. Twilio confirms acceptance synchronously; the
// returned status reflects queueing, not receipt.
func (c *Client) Send(ctx context.Context, to, body string) (*notify.SendResult, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.fromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(c.accountSID, c.authToken)

	c.logger.Debug().
		Str("to", to).
		Int("body_length", len(body)).
		Msg("sending SMS via Twilio")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &notify.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach delivery provider",
			Err:      notify.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode, respBody)
	}

	var msg messageResponse
	if err := json.Unmarshal(respBody, &msg); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	c.logger.Debug().
		Str("message_sid", msg.SID).
		Str("status", msg.Status).
		Msg("SMS accepted by Twilio")

	return &notify.SendResult{MessageID: msg.SID, Status: msg.Status}, nil
}

// handleErrorResponse maps Twilio error responses to domain errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return &notify.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  fmt.Sprintf("delivery provider returned status %d", statusCode),
			Err:      notify.ErrProviderUnavailable,
		}
	}

	switch {
	case statusCode >= 500:
		return &notify.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", statusCode),
			Message:  "delivery provider is temporarily unavailable",
			Err:      notify.ErrProviderUnavailable,
		}
	case statusCode == http.StatusTooManyRequests:
		return &notify.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "delivery provider rate limit exceeded",
			Err:      notify.ErrProviderUnavailable,
		}
	case isInvalidNumberCode(apiErr.Code):
		return &notify.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("TWILIO_%d", apiErr.Code),
			Message:  apiErr.Message,
			Err:      notify.ErrInvalidRecipient,
		}
	default:
		return &notify.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("TWILIO_%d", apiErr.Code),
			Message:  apiErr.Message,
			Err:      notify.ErrDeliveryFailed,
		}
	}
}

// Twilio error codes for unusable destination numbers.
const (
	codeInvalidToNumber  = 21211
	codeUnroutableNumber = 21614
	codeBlockedRecipient = 21610
	codePermissionDenied = 21408
)

func isInvalidNumberCode(code int) bool {
	switch code {
	case codeInvalidToNumber, codeUnroutableNumber, codeBlockedRecipient, codePermissionDenied:
		return true
	}
	return false
}
