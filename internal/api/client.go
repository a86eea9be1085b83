package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"chat-client/internal/models"
	"chat-client/internal/observability"
)

const defaultTimeout = 15 * time.Second

var tracer = otel.Tracer("chat-client/internal/api")

// StatusError is a non-2xx answer from the chat API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client talks to the chat REST API on behalf of one identity.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a copy of the client bound to another bearer token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

func (c *Client) FetchConversations(ctx context.Context) ([]models.Conversation, error) {
	var out []models.Conversation
	err := c.do(ctx, "fetch_conversations", http.MethodGet, "/api/chat", nil, &out)
	return out, err
}

// AccessChat returns the direct chat with userID, creating it if needed.
func (c *Client) AccessChat(ctx context.Context, userID string) (models.Conversation, error) {
	var out models.Conversation
	err := c.do(ctx, "access_chat", http.MethodPost, "/api/chat", map[string]string{"userId": userID}, &out)
	return out, err
}

func (c *Client) FetchHistory(ctx context.Context, conversationID string) ([]models.Message, error) {
	var out []models.Message
	err := c.do(ctx, "fetch_history", http.MethodGet, "/api/message/"+url.PathEscape(conversationID), nil, &out)
	return out, err
}

func (c *Client) SendMessage(ctx context.Context, conversationID, content string) (models.Message, error) {
	var out models.Message
	body := map[string]string{"content": content, "chatId": conversationID}
	err := c.do(ctx, "send_message", http.MethodPost, "/api/message", body, &out)
	return out, err
}

// CreateGroup creates a group with the caller as admin. The server expects
// the member ids as a JSON-encoded string.
func (c *Client) CreateGroup(ctx context.Context, name string, userIDs []string) (models.Conversation, error) {
	users, err := json.Marshal(userIDs)
	if err != nil {
		return models.Conversation{}, err
	}
	var out models.Conversation
	body := map[string]string{"name": name, "users": string(users)}
	err = c.do(ctx, "create_group", http.MethodPost, "/api/chat/group", body, &out)
	return out, err
}

func (c *Client) RenameGroup(ctx context.Context, conversationID, name string) (models.Conversation, error) {
	var out models.Conversation
	body := map[string]string{"chatId": conversationID, "chatName": name}
	err := c.do(ctx, "rename_group", http.MethodPut, "/api/chat/rename", body, &out)
	return out, err
}

func (c *Client) AddToGroup(ctx context.Context, conversationID, userID string) (models.Conversation, error) {
	var out models.Conversation
	body := map[string]string{"chatId": conversationID, "userId": userID}
	err := c.do(ctx, "group_add", http.MethodPut, "/api/chat/groupadd", body, &out)
	return out, err
}

func (c *Client) RemoveFromGroup(ctx context.Context, conversationID, userID string) (models.Conversation, error) {
	var out models.Conversation
	body := map[string]string{"chatId": conversationID, "userId": userID}
	err := c.do(ctx, "group_remove", http.MethodPut, "/api/chat/groupremove", body, &out)
	return out, err
}

func (c *Client) PublicRooms(ctx context.Context) ([]models.Conversation, error) {
	var out []models.Conversation
	err := c.do(ctx, "public_rooms", http.MethodGet, "/api/chat/public-rooms", nil, &out)
	return out, err
}

func (c *Client) CreatePublicRoom(ctx context.Context, name string) (models.Conversation, error) {
	var out models.Conversation
	err := c.do(ctx, "create_public_room", http.MethodPost, "/api/chat/public", map[string]string{"name": name}, &out)
	return out, err
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	var out []models.User
	err := c.do(ctx, "search_users", http.MethodGet, "/api/user?search="+url.QueryEscape(query), nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) (err error) {
	ctx, span := tracer.Start(ctx, "api."+op)
	span.SetAttributes(attribute.String("http.method", method), attribute.String("http.route", path))
	started := time.Now()
	status := 0
	defer func() {
		observability.ObserveAPIRequest(op, status, started)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("api request failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode
	span.SetAttributes(attribute.Int("http.status_code", status))

	if status < 200 || status >= 300 {
		var payload struct {
			Message string `json:"message"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &payload) != nil || payload.Message == "" {
			payload.Message = strings.TrimSpace(string(data))
		}
		return &StatusError{StatusCode: status, Message: payload.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
