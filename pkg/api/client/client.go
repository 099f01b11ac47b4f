// Package client talks to a running davsync agent.
package client

//go:generate mockery -name Client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sidkik/davsync/pkg/api"
	"github.com/sidkik/davsync/pkg/errors"
	"github.com/sidkik/davsync/pkg/sync"
)

// ErrAgentNotRunning is returned when the agent can't be reached.
var ErrAgentNotRunning = errors.NewFriendlyError("The davsync agent isn't running.\n" +
	"Start it with `davsync agent`, or run `davsync sync --local` to sync without it.")

// queryTimeout bounds the requests that don't run a sync.
const queryTimeout = 10 * time.Second

// Client is used for communicating with the davsync agent.
type Client interface {
	GetStatus(ctx context.Context) (sync.Status, error)
	GetActivity(ctx context.Context, limit int) ([]sync.ActivityEntry, error)

	// TriggerSync blocks until the sync completes.
	TriggerSync(ctx context.Context) error
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the agent listening on `address`.
func New(address string) Client {
	return httpClient{
		baseURL: "http://" + address,
		http:    &http.Client{},
	}
}

func (c httpClient) GetStatus(ctx context.Context) (sync.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var resp api.StatusResponse
	if _, err := c.do(ctx, http.MethodGet, api.StatusPath, nil, &resp); err != nil {
		return sync.Status{}, err
	}
	return resp.Status, nil
}

func (c httpClient) GetActivity(ctx context.Context, limit int) ([]sync.ActivityEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := url.Values{"limit": []string{strconv.Itoa(limit)}}
	var resp api.ActivityResponse
	if _, err := c.do(ctx, http.MethodGet, api.ActivityPath, query, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (c httpClient) TriggerSync(ctx context.Context) error {
	var resp api.SyncResponse
	if _, err := c.do(ctx, http.MethodPost, api.SyncPath, nil, &resp); err != nil {
		return err
	}
	return resp.Error.Unmarshal()
}

// do sends the request and decodes the JSON response into `out`. Responses
// with an error status are still decoded, since the body describes the
// error.
func (c httpClient) do(ctx context.Context, method, path string, query url.Values,
	out interface{}) (int, error) {
	reqURL := c.baseURL + path
	if len(query) != 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return 0, errors.WithContext(err, "create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			return 0, ErrAgentNotRunning
		}
		return 0, errors.WithContext(err, "send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, errors.WithContext(err, "read response")
	}

	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, errors.WithContext(
			fmt.Errorf("%s: %s", resp.Status, body), "unexpected response")
	}
	return resp.StatusCode, nil
}
