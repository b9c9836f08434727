/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package anilist implements the upstream GraphQL client used to fetch
// user statistics. Failures are classified into a permanent "user not
// found" signal and transient errors; only the former may ever lead to
// eviction downstream.
package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"

	"github.com/anicards-project/anicards/pkg/common/structs"
	"github.com/anicards-project/anicards/pkg/logger"
)

// ErrUserNotFound signals that the upstream identity no longer exists.
// This is the only failure that counts toward eviction.
var ErrUserNotFound = errors.New("anilist: user not found")

// UpstreamError is any transient upstream failure: network error,
// timeout, rate limit or server error. Refreshes retry these on the next
// cycle without touching the failure counter.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("anilist: upstream error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("anilist: upstream error: %s", e.Message)
}

// Config holds the upstream client settings.
type Config struct {
	URL           string
	Timeout       time.Duration
	RetryCount    int
	RetryInterval time.Duration
}

// Client is the interface the orchestrator and server depend on.
type Client interface {
	// GetUserID resolves a username to its stable upstream id.
	GetUserID(ctx context.Context, username string) (int64, error)

	// FetchUserStats fetches the full statistics snapshot for a user.
	FetchUserStats(ctx context.Context, username string) (*structs.UserSnapshot, error)
}

// AniListClient talks to the AniList GraphQL endpoint.
type AniListClient struct {
	httpClient *httpclient.Client
	url        string
}

var _ Client = (*AniListClient)(nil)

// NewClient builds a client with timeout and constant-backoff retries.
func NewClient(cfg *Config) *AniListClient {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.URL == "" {
		cfg.URL = "https://graphql.anilist.co"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}

	backoff := heimdall.NewConstantBackoff(cfg.RetryInterval, 100*time.Millisecond)
	client := httpclient.NewClient(
		httpclient.WithHTTPTimeout(cfg.Timeout),
		httpclient.WithRetryCount(cfg.RetryCount),
		httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
	)

	return &AniListClient{
		httpClient: client,
		url:        cfg.URL,
	}
}

type gqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type gqlError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// post sends a GraphQL request and returns the raw response body after
// status and GraphQL-level error classification.
func (c *AniListClient) post(ctx context.Context, query string, variables map[string]interface{}) ([]byte, error) {
	payload, err := json.Marshal(gqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: err.Error()}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// The canonical "identity not found" signal. A 404 that does
		// not carry it is still a failed response, never usable data.
		if hasNotFoundError(body) || !hasGraphQLData(body) {
			return nil, ErrUserNotFound
		}
		return nil, &UpstreamError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	case resp.StatusCode != http.StatusOK:
		return nil, &UpstreamError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if err := classifyGraphQLErrors(body); err != nil {
		return nil, err
	}

	return body, nil
}

func hasGraphQLData(body []byte) bool {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false
	}
	return len(envelope.Data) > 0 && string(envelope.Data) != "null"
}

func hasNotFoundError(body []byte) bool {
	var envelope struct {
		Errors []gqlError `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false
	}
	for _, gqlErr := range envelope.Errors {
		if gqlErr.Status == http.StatusNotFound || strings.EqualFold(gqlErr.Message, "Not Found.") ||
			strings.EqualFold(gqlErr.Message, "Not Found") {
			return true
		}
	}
	return false
}

// classifyGraphQLErrors inspects the errors array of a 200 response.
// A 404-status error is the permanent not-found signal; anything else is
// treated as transient.
func classifyGraphQLErrors(body []byte) error {
	var envelope struct {
		Errors []gqlError `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Errors) == 0 {
		return nil
	}

	if hasNotFoundError(body) {
		return ErrUserNotFound
	}

	first := envelope.Errors[0]
	return &UpstreamError{Status: first.Status, Message: first.Message}
}

// GetUserID resolves a username to its upstream id.
func (c *AniListClient) GetUserID(ctx context.Context, username string) (int64, error) {
	log := logger.Logger(ctx).WithField("service", "anilist")

	body, err := c.post(ctx, queryUserID, map[string]interface{}{
		"userName": username,
	})
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.WithError(err).Error("failed to resolve user id")
		}
		return 0, err
	}

	var resp struct {
		Data struct {
			User *struct {
				ID int64 `json:"id"`
			} `json:"User"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, &UpstreamError{Message: fmt.Sprintf("failed to parse user id response: %v", err)}
	}
	if resp.Data.User == nil {
		return 0, ErrUserNotFound
	}
	return resp.Data.User.ID, nil
}

// FetchUserStats fetches and maps the full statistics snapshot. The
// combined query mirrors what the cards need: aggregate stats with top
// breakdowns, social totals, activity history, favourites and the
// planning/rewatched/completed list pages.
func (c *AniListClient) FetchUserStats(ctx context.Context, username string) (*structs.UserSnapshot, error) {
	log := logger.Logger(ctx).WithField("service", "anilist")
	log.WithField("username", username).Debug("fetching user stats")

	userID, err := c.GetUserID(ctx, username)
	if err != nil {
		return nil, err
	}

	body, err := c.post(ctx, queryUserStats, map[string]interface{}{
		"userName": username,
		"userId":   userID,
	})
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.WithError(err).Error("failed to fetch user stats")
		}
		return nil, err
	}

	snapshot, err := mapStatsResponse(userID, username, body)
	if err != nil {
		return nil, err
	}

	log.WithField("userId", userID).Debug("fetched user stats")
	return snapshot, nil
}
