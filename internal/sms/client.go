// Package sms talks to the Twilio Messaging REST API and verifies Twilio
// webhook signatures.
package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lead_intake_backend/platform/config"
	"lead_intake_backend/platform/logger"

	"github.com/sony/gobreaker"
)

// ErrDisabled is returned when no Twilio credentials are configured.
var ErrDisabled = errors.New("sms provider not configured")

// Message is the provider's view of an accepted message.
type Message struct {
	ID     string `json:"sid"`
	Status string `json:"status"`
}

// APIError is an error response from Twilio.
type APIError struct {
	StatusCode int    `json:"status"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("twilio returned %d (code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("twilio returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	http       *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        *logger.Logger
}

// NewClient returns nil when Twilio is not configured; a nil client reports
// ErrDisabled on every send.
func NewClient(cfg config.TwilioConfig, log *logger.Logger) *Client {
	if !cfg.IsTwilioEnabled() {
		return nil
	}

	timeout := cfg.GetTwilioTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimRight(cfg.GetTwilioBaseURL(), "/")
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}

	return &Client{
		baseURL:    baseURL,
		accountSID: cfg.GetTwilioAccountSID(),
		authToken:  cfg.GetTwilioAuthToken(),
		from:       cfg.GetTwilioPhoneNumber(),
		http:       &http.Client{Timeout: timeout},
		breaker:    newBreaker(log),
		log:        log,
	}
}

func newBreaker(log *logger.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "twilio-sms",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("sms: circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		// Rejected requests (bad number, unverified recipient) say nothing
		// about provider health.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
	})
}

// Send submits one SMS. It fails fast while the circuit breaker is open.
func (c *Client) Send(ctx context.Context, to, body string) (Message, error) {
	if c == nil {
		return Message{}, ErrDisabled
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.send(ctx, to, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Message{}, fmt.Errorf("twilio unavailable: %w", err)
		}
		return Message{}, err
	}
	return result.(Message), nil
}

func (c *Client) send(ctx context.Context, to, body string) (Message, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Message{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return Message{}, fmt.Errorf("twilio request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Message{}, fmt.Errorf("read twilio response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		apiErr.StatusCode = resp.StatusCode
		return Message{}, apiErr
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode twilio response: %w", err)
	}

	c.log.Info("sms sent via twilio", "sid", msg.ID, "status", msg.Status)
	return msg, nil
}
