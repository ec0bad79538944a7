// Package gateway is a minimal REST client for the chat gateway that owns
// scope membership and live statuses.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	presence "presence-ledger/internal/presence/domain"
	sampler "presence-ledger/internal/sampler/application"
)

var errNotFound = errors.New("gateway: not found")

// Client talks to the gateway REST API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient constructs a gateway client.
func NewClient(baseURL, token string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("gateway: empty base url")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Scopes lists the scope ids visible to the configured token.
func (c *Client) Scopes(ctx context.Context) ([]string, error) {
	var resp scopesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/scopes", nil, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	ids := make([]string, 0, len(resp.Scopes))
	for _, scope := range resp.Scopes {
		if scope.ID != "" {
			ids = append(ids, scope.ID)
		}
	}
	return ids, nil
}

// ListMembers lists the members of one scope with their current status.
// Members reporting a status the ledger does not track fall back to the
// default status.
func (c *Client) ListMembers(ctx context.Context, scopeID string) ([]sampler.Member, error) {
	if scopeID == "" {
		return nil, errors.New("gateway: empty scope id")
	}
	path := "/api/v1/scopes/" + url.PathEscape(scopeID) + "/members"
	var resp membersResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	members := make([]sampler.Member, 0, len(resp.Members))
	for _, member := range resp.Members {
		if member.SubjectID == "" {
			continue
		}
		status, err := presence.ParseStatus(member.Status)
		if err != nil {
			status = presence.DefaultStatus
		}
		members = append(members, sampler.Member{
			SubjectID:   member.SubjectID,
			DisplayName: member.DisplayName,
			Status:      status,
		})
	}
	return members, nil
}

type scopesResponse struct {
	Scopes []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"scopes"`
}

type membersResponse struct {
	Members []struct {
		SubjectID   string `json:"subject_id"`
		DisplayName string `json:"display_name"`
		Status      string `json:"status"`
	} `json:"members"`
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway: http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
