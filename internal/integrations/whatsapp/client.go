// Package whatsapp is the outbound messaging transport client. It owns the
// wire shapes for text and single-choice button sends, and the bounded retry
// discipline applied to every transport call.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"agrinudge/internal/retry"
)

const defaultBaseURL = "https://graph.facebook.com/v22.0"

// maxButtons is the channel's limit on single-choice options per message.
const maxButtons = 3

// Getter resolves credentials from the parameter store.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware
// context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("whatsapp: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client sends outbound messages through the messaging gateway. Credentials
// (access token, phone number id) are fetched from the parameter store on
// first use and cached for the process lifetime.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	getter      Getter
	paramPrefix string
	policy      retry.Policy

	credOnce      sync.Once
	accessToken   string
	phoneNumberID string
	credErr       error
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// NewClient creates a transport client backed by the given parameter getter.
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("whatsapp: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("whatsapp: parameter prefix must not be empty")
	}
	c := &Client{
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		getter:      ps,
		paramPrefix: paramPrefix,
		policy:      retry.Default,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveCredentials(ctx context.Context) (token, phoneID string, err error) {
	c.credOnce.Do(func() {
		c.accessToken, c.credErr = c.getter.GetParameter(ctx, c.paramPrefix+"/whatsapp/access-token")
		if c.credErr != nil {
			c.credErr = fmt.Errorf("whatsapp: fetch access token: %w", c.credErr)
			return
		}
		c.phoneNumberID, c.credErr = c.getter.GetParameter(ctx, c.paramPrefix+"/whatsapp/phone-number-id")
		if c.credErr != nil {
			c.credErr = fmt.Errorf("whatsapp: fetch phone number id: %w", c.credErr)
		}
	})
	return c.accessToken, c.phoneNumberID, c.credErr
}

type textBody struct {
	Body string `json:"body"`
}

type outboundMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *textBody    `json:"text,omitempty"`
	Interactive      *interactive `json:"interactive,omitempty"`
}

type interactive struct {
	Type   string   `json:"type"`
	Body   textBody `json:"body"`
	Action struct {
		Buttons []button `json:"buttons"`
	} `json:"action"`
}

type button struct {
	Type  string `json:"type"`
	Reply struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"reply"`
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	if strings.TrimSpace(body) == "" {
		return errors.New("whatsapp: message body must not be empty")
	}
	return c.send(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &textBody{Body: body},
	})
}

// SendButtons sends a single-choice prompt with up to three options.
func (c *Client) SendButtons(ctx context.Context, to, body string, options []string) error {
	if len(options) == 0 || len(options) > maxButtons {
		return fmt.Errorf("whatsapp: button count %d out of range 1..%d", len(options), maxButtons)
	}
	iv := &interactive{Type: "button", Body: textBody{Body: body}}
	for i, opt := range options {
		var b button
		b.Type = "reply"
		b.Reply.ID = fmt.Sprintf("option_%d", i)
		b.Reply.Title = opt
		iv.Action.Buttons = append(iv.Action.Buttons, b)
	}
	return c.send(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive:      iv,
	})
}

// retryableSendError treats network failures, 5xx, and 429 as transient.
// Other client errors are permanent and must not be retried.
func retryableSendError(err error) bool {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

func (c *Client) send(ctx context.Context, msg outboundMessage) error {
	token, phoneID, err := c.resolveCredentials(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("whatsapp: marshal message: %w", err)
	}
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, phoneID)

	sendErr := c.policy.Do(ctx, retryableSendError, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if reqErr != nil {
			return fmt.Errorf("whatsapp: create request: %w", reqErr)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		res, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return doErr
		}
		defer func() { _ = res.Body.Close() }()

		if res.StatusCode < 200 || res.StatusCode >= 300 {
			buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
			return &HTTPStatusError{StatusCode: res.StatusCode, URL: url, Body: string(buf)}
		}
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	})
	if sendErr != nil {
		return fmt.Errorf("whatsapp: send to %s: %w", msg.To, sendErr)
	}
	return nil
}

// FetchMedia downloads inbound media (crop images) by media id: one request
// to resolve the short-lived media URL, one to fetch the bytes.
func (c *Client) FetchMedia(ctx context.Context, mediaID string) ([]byte, error) {
	token, _, err := c.resolveCredentials(ctx)
	if err != nil {
		return nil, err
	}

	metaURL := fmt.Sprintf("%s/%s", c.baseURL, mediaID)
	raw, err := c.doGet(ctx, metaURL, token)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: resolve media url: %w", err)
	}
	var meta struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("whatsapp: decode media metadata: %w", err)
	}
	if meta.URL == "" {
		return nil, errors.New("whatsapp: media metadata missing url")
	}

	data, err := c.doGet(ctx, meta.URL, token)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: download media: %w", err)
	}
	return data, nil
}

func (c *Client) doGet(ctx context.Context, url, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{StatusCode: res.StatusCode, URL: url, Body: string(buf)}
	}
	return io.ReadAll(io.LimitReader(res.Body, 16<<20))
}
