// Package slack implements the small slice of the Slack Web API used to
// retire an event's project channels: look a channel up, rename it, archive it.
package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cohort-hub/admissions/pkg/circuitbreaker"
	"github.com/cohort-hub/admissions/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// DefaultBaseURL is the public Slack Web API endpoint.
const DefaultBaseURL = "https://slack.com/api"

// ClientConfig contains configuration for the Slack Web API client.
type ClientConfig struct {
	// BaseURL is the Web API base URL (overridden in tests)
	BaseURL string

	// BotToken is the xoxb- token used as a bearer credential
	BotToken string

	// Timeout is the per-request HTTP timeout
	Timeout time.Duration

	// Logger for structured logging
	Logger *slog.Logger

	// HTTPClient overrides the default client when set
	HTTPClient *http.Client

	// Retrier overrides the default Slack retrier when set
	Retrier *retry.Retrier
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(botToken string) ClientConfig {
	return ClientConfig{
		BaseURL:  DefaultBaseURL,
		BotToken: botToken,
		Timeout:  15 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// ErrMissingToken is returned when the client is built without a bot token.
var ErrMissingToken = errors.New("slack: bot token is required")

// APIError is an {"ok": false} response from Slack.
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack %s: %s", e.Method, e.Code)
}

// caller-side error codes; retrying or tripping the breaker on these is pointless.
var permanentCodes = map[string]bool{
	"channel_not_found": true,
	"not_in_channel":    true,
	"is_archived":       true,
	"already_archived":  true,
	"name_taken":        true,
	"invalid_name":      true,
	"invalid_auth":      true,
	"not_authed":        true,
	"missing_scope":     true,
}

// IsPermanent reports whether err is a Slack error that will not succeed on retry.
func IsPermanent(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return permanentCodes[apiErr.Code]
	}
	return retry.IsPermanent(err)
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Channel is the subset of a Slack conversation object the archiver reads.
type Channel struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	NameNormalized string `json:"name_normalized"`
	IsArchived     bool   `json:"is_archived"`
}

// Client is a Slack Web API client.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
	retrier    *retry.Retrier
	breaker    *circuitbreaker.CircuitBreaker
}

// NewClient creates a new Slack Web API client.
func NewClient(config ClientConfig) (*Client, error) {
	if strings.TrimSpace(config.BotToken) == "" {
		return nil, ErrMissingToken
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	logger := config.Logger.With("component", "slack")
	retrier := config.Retrier
	if retrier == nil {
		retrier = retry.SlackRetrier(func(attempt int, err error, delay time.Duration) {
			logger.Warn("slack api retry", "attempt", attempt, "error", err, "delay", delay)
		})
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		retrier:    retrier,
		breaker: circuitbreaker.SlackAPIBreaker(
			func(name string, from, to circuitbreaker.State) {
				logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			},
			func(err error) bool {
				return !IsPermanent(err) && !errors.Is(err, context.Canceled)
			},
		),
	}, nil
}

// ConversationInfo fetches a channel by id.
func (c *Client) ConversationInfo(ctx context.Context, channelID string) (*Channel, error) {
	var resp struct {
		Channel Channel `json:"channel"`
	}
	if err := c.call(ctx, "conversations.info", url.Values{"channel": {channelID}}, &resp); err != nil {
		return nil, err
	}
	return &resp.Channel, nil
}

// RenameConversation renames a channel.
func (c *Client) RenameConversation(ctx context.Context, channelID, name string) (*Channel, error) {
	var resp struct {
		Channel Channel `json:"channel"`
	}
	params := url.Values{"channel": {channelID}, "name": {name}}
	if err := c.call(ctx, "conversations.rename", params, &resp); err != nil {
		return nil, err
	}
	return &resp.Channel, nil
}

// ArchiveConversation archives a channel.
func (c *Client) ArchiveConversation(ctx context.Context, channelID string) error {
	return c.call(ctx, "conversations.archive", url.Values{"channel": {channelID}}, nil)
}

// BreakerState exposes the circuit breaker state for health reporting.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// call performs a Web API method with circuit breaking and retries.
func (c *Client) call(ctx context.Context, method string, params url.Values, result interface{}) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			err := c.callOnce(ctx, method, params, result)
			if err == nil || IsPermanent(err) {
				return err
			}
			var throttled *retry.ThrottledError
			if errors.As(err, &throttled) {
				return err
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				// Unknown Slack error codes are treated as final.
				return retry.Permanent(err)
			}
			return retry.Retryable(err)
		})
	})
}

// callOnce performs a single form-encoded POST to the Web API.
func (c *Client) callOnce(ctx context.Context, method string, params url.Values, result interface{}) error {
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/" + method

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.BotToken)

	c.logger.Debug("slack api request", "method", method)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		after := 30 * time.Second
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil {
				after = time.Duration(seconds) * time.Second
			}
		}
		return retry.Throttled(fmt.Errorf("slack %s: rate limited", method), after)
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("slack %s: status %d", method, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return retry.Permanent(fmt.Errorf("slack %s: status %d", method, resp.StatusCode))
	}

	var envelope struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return retry.Permanent(fmt.Errorf("slack %s: decode response: %w", method, err))
	}
	if !envelope.OK {
		return &APIError{Method: method, Code: envelope.Error}
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return retry.Permanent(fmt.Errorf("slack %s: decode result: %w", method, err))
		}
	}
	return nil
}
