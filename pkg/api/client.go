package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-voicechat/internal/httpc"
	"github.com/teslashibe/go-voicechat/pkg/chat"
)

// Client talks to a voicechat server. It implements chat.Generator and the
// voice session's Transcriber, so a terminal client can run against a
// remote server instead of calling the providers directly.
type Client struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api: base url %q must be http or https", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpc.NewClient(httpc.UploadTimeout),
		dialer:  &websocket.Dialer{HandshakeTimeout: httpc.DefaultConnectTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "api.client")
	return c, nil
}

// GenerateText sends prompt as a single user message to POST /api/generate.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	body := GenerateRequest{Messages: []chat.Message{chat.NewUserMessage(prompt)}}

	var out GenerateResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/generate", body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", ErrEmptyResponse
	}
	return out.Response, nil
}

// Transcribe uploads audio as the multipart "audio" field of POST /api/transcribe.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreatePart(audioPartHeader(mimeType))
	if err != nil {
		return "", fmt.Errorf("api: create audio part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("api: write audio part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("api: close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/transcribe", &buf)
	if err != nil {
		return "", fmt.Errorf("api: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	var out TranscribeResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	c.logger.Debug("transcribed",
		"bytes", len(audio),
		"chars", len(out.Result),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return out.Result, nil
}

func audioPartHeader(mimeType string) map[string][]string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	ext := "bin"
	if _, sub, ok := strings.Cut(mimeType, "/"); ok {
		ext, _, _ = strings.Cut(sub, ";")
	}
	return map[string][]string{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="audio"; filename="recording.%s"`, ext)},
		"Content-Type":        {mimeType},
	}
}

// Conversations lists the server-hosted conversations.
func (c *Client) Conversations(ctx context.Context) (ConversationList, error) {
	var out ConversationList
	err := c.doJSON(ctx, http.MethodGet, "/api/conversations", nil, &out)
	return out, err
}

// CreateConversation creates and selects a new conversation.
func (c *Client) CreateConversation(ctx context.Context) (ConversationView, error) {
	var out ConversationView
	err := c.doJSON(ctx, http.MethodPost, "/api/conversations", nil, &out)
	return out, err
}

// DeleteConversation deletes conversation id.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/conversations/"+url.PathEscape(id), nil, nil)
}

// SendMessage submits content to conversation id and returns the updated
// conversation including the assistant reply.
func (c *Client) SendMessage(ctx context.Context, id, content string) (ConversationView, error) {
	var out ConversationView
	path := "/api/conversations/" + url.PathEscape(id) + "/messages"
	err := c.doJSON(ctx, http.MethodPost, path, CreateMessageRequest{Content: content}, &out)
	return out, err
}

// Health checks GET /health.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/health", nil, nil)
}

// Subscribe opens the event stream. The returned channel is closed when ctx
// is done or the connection drops.
func (c *Client) Subscribe(ctx context.Context) (<-chan Event, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws/events"

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: "websocket handshake failed", Details: err.Error()}
		}
		return nil, fmt.Errorf("api: dial events: %w", err)
	}

	events := make(chan Event, 16)
	stop := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-stop:
		}
	}()

	go func() {
		defer close(events)
		defer close(stop)
		defer conn.Close()
		for {
			var ev Event
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.logger.Warn("event stream closed", "error", err)
				}
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	c.logger.Info("subscribed to events", "url", wsURL)
	return events, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var er ErrorResponse
		if json.Unmarshal(data, &er) == nil && er.Error != "" {
			apiErr.Message = er.Error
			apiErr.Details = er.Details
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}

// Verify Client implements chat.Generator at compile time.
var _ chat.Generator = (*Client)(nil)
