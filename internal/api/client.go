package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/OCAP2/dockyard/internal/docking"
	"github.com/OCAP2/dockyard/internal/station"
	"github.com/OCAP2/dockyard/pkg/core"
)

// Error is a non-2xx response from the API.
type Error struct {
	Status int
	Rejection
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request returned status %d", e.Status)
	}
	return fmt.Sprintf("%s (%d): %s", e.Outcome, e.Status, e.Message)
}

// Health is the body of GET /api/health.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Frame   uint64 `json:"frame"`
	Session string `json:"session"`
	Clients int    `json:"clients"`
	Time    string `json:"time"`
}

// Client talks to a running dockyard server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks that the server is reachable.
func (c *Client) Healthcheck(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &h)
	return h, err
}

// Station fetches the latest snapshot.
func (c *Client) Station(ctx context.Context) (*station.Snapshot, error) {
	var snap station.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/station", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Topology fetches the connectivity graph.
func (c *Client) Topology(ctx context.Context) (Topology, error) {
	var t Topology
	err := c.do(ctx, http.MethodGet, "/api/topology", nil, &t)
	return t, err
}

// Catalog lists launchable blueprints.
func (c *Client) Catalog(ctx context.Context) ([]docking.Blueprint, error) {
	var out []docking.Blueprint
	err := c.do(ctx, http.MethodGet, "/api/catalog", nil, &out)
	return out, err
}

// Launch requests a launch of the named blueprint.
func (c *Client) Launch(ctx context.Context, blueprint string) (docking.LaunchResult, error) {
	var r docking.LaunchResult
	err := c.do(ctx, http.MethodPost, "/api/launch", LaunchRequest{Blueprint: blueprint}, &r)
	return r, err
}

// Fault injects a fault into a random operational module.
func (c *Client) Fault(ctx context.Context) (core.Module, error) {
	var m core.Module
	err := c.do(ctx, http.MethodPost, "/api/fault", nil, &m)
	return m, err
}

// QueueFault schedules a fault injection without waiting for its outcome.
func (c *Client) QueueFault(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/fault?queued=true", nil, nil)
}

// Repair clears every critical module and returns how many were repaired.
func (c *Client) Repair(ctx context.Context) (int, error) {
	var out struct {
		Repaired int `json:"repaired"`
	}
	err := c.do(ctx, http.MethodPost, "/api/repair", nil, &out)
	return out.Repaired, err
}

// Undock detaches a module from the station.
func (c *Client) Undock(ctx context.Context, id string) (core.Module, error) {
	var m core.Module
	err := c.do(ctx, http.MethodDelete, "/api/modules/"+id, nil, &m)
	return m, err
}

// SetHub makes a module the active hub.
func (c *Client) SetHub(ctx context.Context, id string) (docking.HubRef, error) {
	var h docking.HubRef
	err := c.do(ctx, http.MethodPut, "/api/hub", HubRequest{ModuleID: id}, &h)
	return h, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s request failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr.Rejection)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
