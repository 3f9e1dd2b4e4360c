// Copyright 2025 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mgmtapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/scionproto/srvpool/pkg/endpointpool"
	"github.com/scionproto/srvpool/pkg/private/serrors"
)

// Client queries the management API of a running service.
type Client struct {
	// Addr is the address of the API, either host:port or a URL.
	Addr string
	// HTTPClient is used for the requests. If nil, http.DefaultClient is
	// used.
	HTTPClient *http.Client
}

// Status fetches the status of the pool.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var rep StatusResponse
	err := c.do(ctx, http.MethodGet, "/status", &rep)
	return rep, err
}

// Endpoints fetches the endpoints of the pool.
func (c *Client) Endpoints(ctx context.Context) ([]endpointpool.EndpointInfo, error) {
	var rep []endpointpool.EndpointInfo
	err := c.do(ctx, http.MethodGet, "/endpoints", &rep)
	return rep, err
}

// TriggerResolution requests an immediate resolution.
func (c *Client) TriggerResolution(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/resolve", nil)
}

func (c *Client) do(ctx context.Context, method, path string, rep any) error {
	url := c.baseURL() + path
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return serrors.Wrap("creating request", err, "url", url)
	}
	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return serrors.Wrap("requesting management API", err, "url", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var p Problem
		if err := json.NewDecoder(resp.Body).Decode(&p); err == nil && p.Title != "" {
			return serrors.New("management API error", "status", resp.StatusCode,
				"title", p.Title, "detail", p.Detail)
		}
		return serrors.New("management API error", "status", resp.StatusCode)
	}
	if rep == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(rep); err != nil {
		return serrors.Wrap("decoding response", err, "url", url)
	}
	return nil
}

func (c *Client) baseURL() string {
	addr := strings.TrimSuffix(c.Addr, "/")
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return addr + BaseURL
}
