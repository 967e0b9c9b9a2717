// Package remote is the HTTP client for the rule service: attribute and
// operator catalogs, rule save and rule test.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/solatis/rulebuilder/internal/tree"
	"github.com/solatis/rulebuilder/internal/types"
)

const (
	// maxErrorBodySize limits how much of an error response is kept.
	maxErrorBodySize = 4096

	// DefaultTimeout applies when Options.Timeout is zero.
	DefaultTimeout = 10 * time.Second
)

// Options configures a Client.
type Options struct {
	BaseURL string
	// Token is sent as a bearer token when set.
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client talks to the rule service over JSON/HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a rule service client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{baseURL: base, token: opts.Token, httpClient: hc}, nil
}

type attributesResponse struct {
	Attributes []types.Attribute `json:"attributes"`
}

type operatorsResponse struct {
	Operators map[string]string `json:"operators"`
}

type rulePayload struct {
	Conditions json.RawMessage `json:"conditions"`
}

type saveResponse struct {
	ID     string `json:"id"`
	RuleID string `json:"rule_id"`
}

// FetchAttributes returns the attributes available to a rule.
func (c *Client) FetchAttributes(ctx context.Context, cc types.CatalogContext) ([]types.Attribute, error) {
	var resp attributesResponse
	if err := c.do(ctx, http.MethodGet, rulePath(cc, "attributes"), nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch attributes: %w", err)
	}
	return resp.Attributes, nil
}

// FetchOperators returns the {token: label} operator map for a data type.
func (c *Client) FetchOperators(ctx context.Context, dt types.DataType) (map[string]string, error) {
	var resp operatorsResponse
	if err := c.do(ctx, http.MethodGet, "/operators/"+url.PathEscape(string(dt)), nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch operators: %w", err)
	}
	return resp.Operators, nil
}

// Save submits the tree as the rule's conditions and returns the rule ID
// reported by the service, or cc.Rule when it reports none.
func (c *Client) Save(ctx context.Context, cc types.CatalogContext, root *types.Group) (string, error) {
	body, err := payload(root)
	if err != nil {
		return "", err
	}

	var resp saveResponse
	if err := c.do(ctx, http.MethodPost, rulePath(cc, "save"), body, &resp); err != nil {
		return "", fmt.Errorf("save rule: %w", err)
	}

	switch {
	case resp.RuleID != "":
		return resp.RuleID, nil
	case resp.ID != "":
		return resp.ID, nil
	default:
		return cc.Rule, nil
	}
}

// Test submits the tree for a test run and passes the service's JSON result through.
func (c *Client) Test(ctx context.Context, cc types.CatalogContext, root *types.Group) (json.RawMessage, error) {
	body, err := payload(root)
	if err != nil {
		return nil, err
	}

	var resp json.RawMessage
	if err := c.do(ctx, http.MethodPost, rulePath(cc, "test"), body, &resp); err != nil {
		return nil, fmt.Errorf("test rule: %w", err)
	}
	return resp, nil
}

func rulePath(cc types.CatalogContext, leaf string) string {
	return fmt.Sprintf("/workspaces/%s/rules/%s/%s",
		url.PathEscape(cc.Workspace), url.PathEscape(cc.Rule), leaf)
}

func payload(root *types.Group) ([]byte, error) {
	conditions, err := tree.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("marshal conditions: %w", err)
	}
	body, err := tree.EncodeJSON(rulePayload{Conditions: conditions})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return body, nil
}

// do executes one request. Transport failures and non-2xx answers wrap
// types.ErrRemoteUnavailable.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("%w: %s %s returned %d: %s",
			types.ErrRemoteUnavailable, method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
