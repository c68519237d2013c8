package completion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/tidwall/gjson"
)

const DefaultTimeout = 30 * time.Second

// Client implements Completer over the OpenAI Chat Completions API.
// The credential is supplied per request, so a settings change takes effect
// on the next query without rebuilding the client.
type Client struct {
	api     openai.Client
	timeout time.Duration
}

type clientConfig struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*clientConfig)

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(u string) Option {
	return func(c *clientConfig) { c.baseURL = u }
}

// WithHTTPClient sets the transport, e.g. one dialing through a proxy.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = hc }
}

// WithTimeout bounds every Complete call.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

func NewClient(opts ...Option) *Client {
	cfg := clientConfig{timeout: DefaultTimeout}
	for _, o := range opts {
		o(&cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	}

	return &Client{
		api:     openai.NewClient(reqOpts...),
		timeout: cfg.timeout,
	}
}

func (c *Client) Complete(ctx context.Context, apiKey string, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.api.Chat.Completions.New(ctx, buildParams(req), option.WithAPIKey(apiKey))
	if err != nil {
		log.Debug("Completion failed", "model", req.Model, "err", err)
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", &Error{Kind: MalformedResponse, Err: errors.New("no choices in response")}
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", &Error{Kind: MalformedResponse, Err: ErrEmptyReply}
	}

	log.Debug("Completion ready",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	return content, nil
}

func buildParams(req Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(req.Model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	return params
}

func classify(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: Timeout, Err: err}
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &Error{Kind: BoundaryError, Message: apiMessage(apiErr), Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: Timeout, Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &Error{Kind: TransportFailure, Err: err}
	}

	return &Error{Kind: MalformedResponse, Err: err}
}

// apiMessage extracts the human-readable message of a non-success reply,
// falling back to the raw body.
func apiMessage(e *openai.Error) string {
	if e.Message != "" {
		return e.Message
	}

	raw := e.RawJSON()
	if m := gjson.Get(raw, "error.message").String(); m != "" {
		return m
	}
	if m := gjson.Get(raw, "message").String(); m != "" {
		return m
	}
	if raw != "" {
		return raw
	}
	return fmt.Sprintf("status %d", e.StatusCode)
}
