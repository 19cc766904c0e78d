package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"
)

// Option configures a Client
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// WithHTTPClient sets the HTTP client used for API calls
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func applyOptions(opts []Option) *options {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Client sends text messages through the WhatsApp Cloud API behind a circuit breaker
type Client struct {
	http     *http.Client
	endpoint string
	token    string
	breaker  *gobreaker.CircuitBreaker
	logger   *slog.Logger
}

// NewClient creates a Cloud API client
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("%w: APIURL is required", ErrInvalidConfig)
	}
	if cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("%w: PhoneNumberID is required", ErrInvalidConfig)
	}
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("%w: AccessToken is required", ErrInvalidConfig)
	}

	o := applyOptions(opts)
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		http:     o.httpClient,
		endpoint: strings.TrimRight(cfg.APIURL, "/") + "/" + cfg.PhoneNumberID + "/messages",
		token:    cfg.AccessToken,
		logger:   o.logger,
	}

	minRequests := max(cfg.BreakerMinRequests, 1)
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "whatsapp",
		MaxRequests: max(cfg.BreakerHalfOpenProbe, 1),
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= cfg.BreakerFailureRatio
		},
		// A rejected message says nothing about API availability
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return c, nil
}

type textMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendText implements Sender
func (c *Client) SendText(ctx context.Context, to, body string) (string, error) {
	phone, err := normalizePhone(to)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(body) == "" {
		return "", ErrEmptyMessage
	}

	msg := textMessage{MessagingProduct: "whatsapp", To: phone, Type: "text"}
	msg.Text.Body = body

	id, err := c.breaker.Execute(func() (any, error) {
		return c.post(ctx, msg)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", errors.Join(ErrCircuitOpen, err)
		}
		return "", err
	}

	return id.(string), nil
}

func (c *Client) post(ctx context.Context, msg textMessage) (string, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Join(ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Join(ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Join(ErrRequestFailed, err)
	}

	var out sendResponse
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := fmt.Errorf("status %d", resp.StatusCode)
		if out.Error != nil {
			apiErr = fmt.Errorf("status %d: %s (code %d)", resp.StatusCode, out.Error.Message, out.Error.Code)
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", errors.Join(ErrRejected, apiErr)
		}
		return "", errors.Join(ErrRequestFailed, apiErr)
	}

	if len(out.Messages) == 0 || out.Messages[0].ID == "" {
		return "", errors.Join(ErrRequestFailed, errors.New("response has no message id"))
	}

	return out.Messages[0].ID, nil
}

// State returns the current circuit breaker state
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}
