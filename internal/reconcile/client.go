// Copyright 2026 The Clubly Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/clubly/clubly/internal/integration"
)

// ContractRecord is one contract/customer row as the external system
// reports it. The payload is untrusted; only status and an email-or-
// document identifier are relied upon.
type ContractRecord struct {
	Email    string `json:"email"`
	Document string `json:"document"`
	Name     string `json:"name"`
	Status   string `json:"status"`
}

type contractsResponse struct {
	Contracts []ContractRecord `json:"contracts"`
}

// ContractFetcher fetches the external system's current contract list for
// one tenant's integration config.
type ContractFetcher interface {
	FetchContracts(ctx context.Context, cfg *integration.Config) ([]ContractRecord, error)
}

// Client calls the external contract API over HTTPS. The endpoint is
// possibly slow or unavailable; every call is bounded by the configured
// timeout and retried a bounded number of times.
type Client struct {
	http *resty.Client
}

// NewClient creates a contract API client.
func NewClient(timeout time.Duration, retryCount int) *Client {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{http: client}
}

// FetchContracts retrieves the authoritative contract list for a tenant.
// The base URL and auth token come from the tenant's integration config,
// so one client serves every tenant.
func (c *Client) FetchContracts(ctx context.Context, cfg *integration.Config) ([]ContractRecord, error) {
	var payload contractsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(cfg.AuthToken).
		SetResult(&payload).
		Get(cfg.BaseURL + "/contracts")
	if err != nil {
		return nil, fmt.Errorf("contract fetch failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("contract API returned status %d", resp.StatusCode())
	}
	return payload.Contracts, nil
}
