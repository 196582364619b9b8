// SPDX-License-Identifier: BSD-3-Clause

package liqctld

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Client is a thin HTTP-over-Unix-socket client for the Cooling-lib
// Backend, used by the Cooling-lib Repository. It carries no retry logic
// of its own; callers decide how to react to errors per the propagation
// policy.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	requestTimeout time.Duration
}

// NewClient dials socketPath lazily (on first request) and returns a
// Client bound to it. If a call's context carries no deadline, requestTimeout
// bounds it instead; a non-positive timeout falls back to defaultHTTPTimeout.
func NewClient(socketPath string, requestTimeout time.Duration) *Client {
	if requestTimeout <= 0 {
		requestTimeout = defaultHTTPTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					d := net.Dialer{}
					return d.DialContext(ctx, "unix", socketPath)
				},
			},
		},
		baseURL:        "http://unix",
		requestTimeout: requestTimeout,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHTTPServer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr APIError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message == "" {
			apiErr = APIError{Code: resp.StatusCode, Message: resp.Status}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Handshake calls GET /handshake.
func (c *Client) Handshake(ctx context.Context) (bool, error) {
	var resp HandshakeResponse
	if err := c.do(ctx, http.MethodGet, "/handshake", nil, &resp); err != nil {
		return false, err
	}
	return resp.Shake, nil
}

// Devices calls GET /devices.
func (c *Client) Devices(ctx context.Context) ([]DeviceDescriptor, error) {
	var resp []DeviceDescriptor
	if err := c.do(ctx, http.MethodGet, "/devices", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Legacy690 calls PUT /devices/{id}/legacy690.
func (c *Client) Legacy690(ctx context.Context, id int) (DeviceDescriptor, error) {
	var resp DeviceDescriptor
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/devices/%d/legacy690", id), nil, &resp)
	return resp, err
}

// Initialize calls POST /devices/{id}/initialize.
func (c *Client) Initialize(ctx context.Context, id int, pumpMode string) ([]StatusEntry, error) {
	var resp []StatusEntry
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/devices/%d/initialize", id), InitializeRequest{PumpMode: pumpMode}, &resp)
	return resp, err
}

// Status calls GET /devices/{id}/status.
func (c *Client) Status(ctx context.Context, id int) ([]StatusEntry, error) {
	var resp StatusResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/devices/%d/status", id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Status, nil
}

// SetFixedSpeed calls PUT /devices/{id}/speed/fixed.
func (c *Client) SetFixedSpeed(ctx context.Context, id int, channel string, duty int) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/devices/%d/speed/fixed", id), SpeedFixedRequest{Channel: channel, Duty: duty}, nil)
}

// SetSpeedProfile calls PUT /devices/{id}/speed/profile.
func (c *Client) SetSpeedProfile(ctx context.Context, id int, channel string, profile []ProfilePoint, tempSensor string) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/devices/%d/speed/profile", id), SpeedProfileRequest{Channel: channel, Profile: profile, TemperatureSensor: tempSensor}, nil)
}

// SetColor calls PUT /devices/{id}/color.
func (c *Client) SetColor(ctx context.Context, id int, req ColorRequest) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/devices/%d/color", id), req, nil)
}

// SetScreen calls PUT /devices/{id}/screen.
func (c *Client) SetScreen(ctx context.Context, id int, req ScreenRequest) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/devices/%d/screen", id), req, nil)
}

// Quit calls POST /quit.
func (c *Client) Quit(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/quit", nil, nil)
}

// defaultHTTPTimeout bounds a single client call when the caller does not
// supply its own context deadline.
const defaultHTTPTimeout = 10 * time.Second
