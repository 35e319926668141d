// Package history is the REST side of the chat subsystem: stateless
// request wrappers over the backend's /api/chat endpoints. Real-time
// delivery happens elsewhere; this client only fetches and mutates
// persisted chat state.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/campusconnect/campuschat/internal/model"
)

const defaultTimeout = 15 * time.Second

// Client calls the chat REST API with bearer authentication.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// New creates a chat API client for the given server base URL and token.
func New(serverURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(serverURL, "/") + "/api/chat",
		token:   token,
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Conversations lists the caller's direct-message threads, server-ordered by
// recency.
func (c *Client) Conversations(ctx context.Context) ([]model.Conversation, error) {
	var out []model.Conversation
	if err := c.get(ctx, "/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MessageHistory fetches the full direct-message history with another user.
func (c *Client) MessageHistory(ctx context.Context, otherUserID int64) ([]model.ChatMessage, error) {
	var out []model.ChatMessage
	if err := c.get(ctx, fmt.Sprintf("/messages/%d", otherUserID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChatUsers fetches the roster of users eligible for direct chat. The
// same-department scoping is enforced server-side.
func (c *Client) ChatUsers(ctx context.Context) ([]model.User, error) {
	var out []model.User
	if err := c.get(ctx, "/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead marks all messages from the given counterpart as read.
func (c *Client) MarkRead(ctx context.Context, otherUserID int64) error {
	return c.post(ctx, fmt.Sprintf("/mark-read/%d", otherUserID))
}

// GroupMessages fetches the history of a department group chat.
func (c *Client) GroupMessages(ctx context.Context, departmentID int64, chatType model.ChatType) ([]model.ChatMessage, error) {
	q := url.Values{"chatType": {string(chatType)}}
	var out []model.ChatMessage
	if err := c.get(ctx, fmt.Sprintf("/groups/%d", departmentID), q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GroupParticipants fetches the member roster of a department's group chats.
func (c *Client) GroupParticipants(ctx context.Context, departmentID int64) ([]model.User, error) {
	var out []model.User
	if err := c.get(ctx, fmt.Sprintf("/groups/%d/participants", departmentID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GroupPermissions fetches what the caller may do in a group chat.
func (c *Client) GroupPermissions(ctx context.Context, departmentID int64, chatType model.ChatType) (model.GroupPermissions, error) {
	q := url.Values{"chatType": {string(chatType)}}
	var out model.GroupPermissions
	if err := c.get(ctx, fmt.Sprintf("/groups/%d/permissions", departmentID), q, &out); err != nil {
		return model.GroupPermissions{}, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	_, err = c.do(req)
	return err
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat api %s: %w", req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("chat api %s: read response: %w", req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("chat api %s: HTTP %d", req.URL.Path, resp.StatusCode)
	}
	return body, nil
}
