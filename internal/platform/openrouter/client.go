package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	BaseURL  string
	ChatPath string
	Model    string
	Referer  string
	Title    string
	// Timeout bounds a single HTTP call. Zero leaves it to the caller's context.
	Timeout time.Duration
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one chat-completions call. The API key travels with the
// request and is never stored on the client.
type Request struct {
	APIKey         string
	Model          string
	Prompt         string
	ResponseFormat map[string]any
}

type Completion struct {
	ID      string
	Model   string
	Content string
	Usage   json.RawMessage
}

type Client struct {
	baseURL    string
	host       string
	chatPath   string
	model      string
	referer    string
	title      string
	timeout    time.Duration
	httpClient *http.Client
}

func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("openrouter: base_url required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("openrouter: invalid base_url %q", cfg.BaseURL)
	}
	chatPath := strings.TrimSpace(cfg.ChatPath)
	if chatPath == "" {
		chatPath = "/api/v1/chat/completions"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("openrouter: model required")
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		baseURL:    baseURL,
		host:       u.Hostname(),
		chatPath:   chatPath,
		model:      model,
		referer:    strings.TrimSpace(cfg.Referer),
		title:      strings.TrimSpace(cfg.Title),
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Transport: tr},
	}, nil
}

// NewWithHTTPClient is intended for tests; it avoids network access by using a custom RoundTripper.
func NewWithHTTPClient(cfg Config, httpClient *http.Client) (*Client, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c, nil
}

// Host is the provider hostname, used for pre-flight DNS checks.
func (c *Client) Host() string { return c.host }

func (c *Client) Model() string { return c.model }

type chatCompletionRequest struct {
	Model          string         `json:"model"`
	Messages       []Message      `json:"messages"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text,omitempty"`
	} `json:"choices"`
	Usage json.RawMessage `json:"usage,omitempty"`
	Error *struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends the prompt as a single user message.
func (c *Client) Complete(ctx context.Context, r Request) (*Completion, error) {
	if strings.TrimSpace(r.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	model := strings.TrimSpace(r.Model)
	if model == "" {
		model = c.model
	}
	body := chatCompletionRequest{
		Model:          model,
		Messages:       []Message{{Role: "user", Content: r.Prompt}},
		ResponseFormat: r.ResponseFormat,
	}
	var out chatCompletionResponse
	if err := c.doJSON(ctx, r.APIKey, body, &out); err != nil {
		return nil, err
	}
	if out.Error != nil && len(out.Choices) == 0 {
		status := http.StatusBadGateway
		if n, ok := out.Error.Code.(float64); ok && n >= 400 {
			status = int(n)
		}
		return nil, &HTTPError{StatusCode: status, Body: truncate(out.Error.Message, MaxErrorBody)}
	}
	content := extractContent(out)
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyReply
	}
	return &Completion{ID: out.ID, Model: out.Model, Content: content, Usage: out.Usage}, nil
}

func extractContent(resp chatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	if s := resp.Choices[0].Message.Content; s != "" {
		return s
	}
	return resp.Choices[0].Text
}

func (c *Client) setHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(apiKey))
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}
}

func (c *Client) doJSON(ctx context.Context, apiKey string, body any, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}

	ctx2 := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx2, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx2, http.MethodPost, c.baseURL+c.chatPath, &buf)
	if err != nil {
		return err
	}
	c.setHeaders(req, apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBody))
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}
