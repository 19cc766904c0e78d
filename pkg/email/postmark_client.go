package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/mrz1836/postmark"
)

// Postmark API error codes that describe the message rather than the service.
// See https://postmarkapp.com/developer/api/overview#error-codes
var rejectionCodes = []int64{
	300, // invalid email request
	406, // inactive recipient
}

// PostmarkClient sends patient emails through Postmark's transactional API.
type PostmarkClient struct {
	client *postmark.Client
	from   string
	reply  string
}

// PostmarkOption configures a PostmarkClient.
type PostmarkOption func(*PostmarkClient)

// WithPostmarkHTTPClient replaces the HTTP client used for API calls.
func WithPostmarkHTTPClient(hc *http.Client) PostmarkOption {
	return func(c *PostmarkClient) {
		if hc != nil {
			c.client.HTTPClient = hc
		}
	}
}

// NewPostmarkClient validates cfg and creates a Postmark-backed sender.
func NewPostmarkClient(cfg Config, opts ...PostmarkOption) (*PostmarkClient, error) {
	switch {
	case cfg.PostmarkServerToken == "":
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	case cfg.PostmarkAccountToken == "":
		return nil, fmt.Errorf("%w: PostmarkAccountToken is required", ErrInvalidConfig)
	case cfg.SenderEmail == "":
		return nil, fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	case !emailRegex.MatchString(cfg.SenderEmail):
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	case cfg.SupportEmail != "" && !emailRegex.MatchString(cfg.SupportEmail):
		return nil, fmt.Errorf("%w: SupportEmail must be a valid email address", ErrInvalidConfig)
	}

	c := &PostmarkClient{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		from:   cfg.SenderEmail,
		reply:  cfg.SupportEmail,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MustNewPostmarkClient is NewPostmarkClient that panics on invalid config.
func MustNewPostmarkClient(cfg Config, opts ...PostmarkOption) *PostmarkClient {
	c, err := NewPostmarkClient(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// SendEmail returns the Postmark message id. Provider rejections wrap
// ErrRejected, every other failure wraps ErrFailedToSendEmail.
func (c *PostmarkClient) SendEmail(ctx context.Context, params SendEmailParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}

	resp, err := c.client.SendEmail(ctx, postmark.Email{
		From:       c.from,
		ReplyTo:    c.reply,
		To:         params.SendTo,
		Subject:    params.Subject,
		Tag:        params.Tag,
		HTMLBody:   params.BodyHTML,
		TextBody:   params.BodyText,
		TrackOpens: true,
	})
	if code, msg, ok := apiError(resp, err); ok {
		cause := fmt.Errorf("postmark error %d: %s", code, msg)
		if slices.Contains(rejectionCodes, code) {
			return "", errors.Join(ErrRejected, cause)
		}
		return "", errors.Join(ErrFailedToSendEmail, cause)
	}
	if err != nil {
		return "", errors.Join(ErrFailedToSendEmail, err)
	}
	return resp.MessageID, nil
}

// apiError extracts the Postmark error code, reported either in the response
// body of a 200 or as an APIError for non-2xx responses.
func apiError(resp postmark.EmailResponse, err error) (int64, string, bool) {
	if resp.ErrorCode != 0 {
		return int64(resp.ErrorCode), resp.Message, true
	}
	var apiErr postmark.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode != 0 {
		return int64(apiErr.ErrorCode), apiErr.Message, true
	}
	var apiErrPtr *postmark.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && apiErrPtr.ErrorCode != 0 {
		return int64(apiErrPtr.ErrorCode), apiErrPtr.Message, true
	}
	return 0, "", false
}
