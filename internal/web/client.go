package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"screenblur/internal/control"
	"screenblur/internal/models"
)

// Client talks to a running daemon's control API
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(addr string) *Client {
	return &Client{
		baseURL: "http://" + addr,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("control API returned %d: %s", e.StatusCode, e.Message)
}

func (c *Client) State() (control.View, error) {
	var view control.View
	err := c.do(http.MethodGet, "/api/state", nil, &view)
	return view, err
}

func (c *Client) Apply(p control.Patch) (control.View, error) {
	var view control.View
	err := c.do(http.MethodPost, "/api/state", p, &view)
	return view, err
}

func (c *Client) Toggle() (control.View, error) {
	var view control.View
	err := c.do(http.MethodPost, "/api/toggle", nil, &view)
	return view, err
}

func (c *Client) Status() (*models.StatusReport, error) {
	var report models.StatusReport
	if err := c.do(http.MethodGet, "/api/status", nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) Monitors() ([]models.MonitorStatus, error) {
	var monitors []models.MonitorStatus
	err := c.do(http.MethodGet, "/api/monitors", nil, &monitors)
	return monitors, err
}

func (c *Client) Restarts(limit int) ([]*models.RestartEvent, error) {
	var events []*models.RestartEvent
	err := c.do(http.MethodGet, fmt.Sprintf("/api/restarts?limit=%d", limit), nil, &events)
	return events, err
}

func (c *Client) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
