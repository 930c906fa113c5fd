// Package client is the Go consumer of the feed service: an HTTP API
// client, a paginated local view of the feed, and the reconciliation of
// that view against pushed change events.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/juju/errors"

	"feedboard/domain"
)

// Client calls the feed service HTTP API with a bearer token.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: http.DefaultClient,
	}
}

type pageResult struct {
	Posts      []domain.Post `json:"posts"`
	TotalItems int           `json:"totalItems"`
	ErrMsg     string        `json:"errMsg"`
}

// FetchPage retrieves one page of posts and the total post count.
func (c *Client) FetchPage(ctx context.Context, page int) ([]domain.Post, int, error) {
	var res pageResult
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/feed/posts?page=%d", page), nil, &res)
	if err != nil {
		return nil, 0, err
	}
	return res.Posts, res.TotalItems, nil
}

// Status fetches the signed-in user's status text.
func (c *Client) Status(ctx context.Context) (string, error) {
	var res struct {
		Status string `json:"status"`
		ErrMsg string `json:"errMsg"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/status", nil, &res); err != nil {
		return "", err
	}
	return res.Status, nil
}

// SetStatus replaces the signed-in user's status text.
func (c *Client) SetStatus(ctx context.Context, status string) error {
	body := map[string]string{"status": status}
	var res struct {
		ErrMsg string `json:"errMsg"`
	}
	return c.do(ctx, http.MethodPut, "/auth/status", body, &res)
}

// do runs one JSON round trip. Error responses surface their errMsg
// from the service's error envelope.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var envelope struct {
			ErrMsg string `json:"errMsg"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.ErrMsg != "" {
			return errors.Errorf("%s %s: %s", method, path, envelope.ErrMsg)
		}
		return errors.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	return json.Unmarshal(raw, out)
}
