package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Client is the HTTP/JSON client for the remote tool-server lifecycle API.
// Every request carries the bearer credential; a missing credential fails
// locally with a configuration error before any network call is made.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a lifecycle API client. An empty API key is accepted at
// construction: the configuration error surfaces on first use, not here.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// errMissingKey names the missing setting, per the configuration-error
// contract.
func (c *Client) checkKey() error {
	if c.apiKey == "" {
		return fmt.Errorf("mcp: API key is not configured (set mcp.api_key in config or the KLAVIS_API_KEY environment variable)")
	}
	return nil
}

// do runs one request and decodes the JSON response into out. Non-2xx
// responses are surfaced with status code and body text.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	if err := c.checkKey(); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s returned status %d: %s", method, path, resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}
	return nil
}

// GetUserInstances lists the servers installed for a user.
func (c *Client) GetUserInstances(ctx context.Context, userID, platformName string) ([]Instance, error) {
	query := url.Values{}
	query.Set("user_id", userID)
	query.Set("platform_name", platformName)

	var resp struct {
		Instances []Instance `json:"instances"`
	}
	if err := c.do(ctx, http.MethodGet, "/user/instances?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Instances, nil
}

// CreateInstanceResponse is the remote response to instance creation. A
// non-empty OAuthURL means the server requires an authorization handshake
// before its tools can be used.
type CreateInstanceResponse struct {
	ServerURL  string `json:"serverUrl"`
	InstanceID string `json:"instanceId"`
	OAuthURL   string `json:"oauthUrl,omitempty"`
}

// CreateInstance creates a server instance for (serverName, userID,
// platformName).
func (c *Client) CreateInstance(ctx context.Context, serverName, userID, platformName string) (*CreateInstanceResponse, error) {
	body := map[string]string{
		"serverName":     serverName,
		"userId":         userID,
		"platformName":   platformName,
		"connectionType": connectionType,
	}
	var resp CreateInstanceResponse
	if err := c.do(ctx, http.MethodPost, "/mcp-server/instance/create", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListToolsResponse is the remote tool-discovery response.
type ListToolsResponse struct {
	Success bool            `json:"success"`
	Tools   json.RawMessage `json:"tools,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ListTools discovers the tools exposed at a server URL.
func (c *Client) ListTools(ctx context.Context, serverURL string) (*ListToolsResponse, error) {
	body := map[string]string{
		"serverUrl":      serverURL,
		"format":         "mcp_native",
		"connectionType": connectionType,
	}
	var resp ListToolsResponse
	if err := c.do(ctx, http.MethodPost, "/mcp-server/list-tools", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CallToolResponse is the remote tool-invocation response.
type CallToolResponse struct {
	Success bool   `json:"success"`
	Result  *struct {
		Content interface{} `json:"content"`
		IsError bool        `json:"isError,omitempty"`
	} `json:"result,omitempty"`
	Error string `json:"error,omitempty"`
}

// CallTool invokes a named tool at a server URL with opaque arguments.
func (c *Client) CallTool(ctx context.Context, serverURL, toolName string, toolArgs interface{}) (*CallToolResponse, error) {
	body := map[string]interface{}{
		"serverUrl":      serverURL,
		"toolName":       toolName,
		"toolArgs":       toolArgs,
		"connectionType": connectionType,
	}
	var resp CallToolResponse
	if err := c.do(ctx, http.MethodPost, "/mcp-server/call-tool", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteInstance removes a server instance.
func (c *Client) DeleteInstance(ctx context.Context, instanceID string) error {
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message,omitempty"`
	}
	if err := c.do(ctx, http.MethodDelete, "/mcp-server/instance/delete/"+url.PathEscape(instanceID), nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("failed to delete instance %s: %s", instanceID, resp.Message)
	}
	return nil
}

// GetAvailableServers lists the installable server catalog.
func (c *Client) GetAvailableServers(ctx context.Context) ([]ServerInfo, error) {
	var resp struct {
		Servers []ServerInfo `json:"servers"`
	}
	if err := c.do(ctx, http.MethodGet, "/mcp-server/servers", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Servers, nil
}

// AuthStatus is the remote auth-metadata response for an instance.
type AuthStatus struct {
	Success  bool            `json:"success"`
	AuthData json.RawMessage `json:"authData,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Authenticated reports whether the instance has completed authorization.
func (a *AuthStatus) Authenticated() bool {
	return a.Success && len(a.AuthData) > 0 && string(a.AuthData) != "null"
}

// GetAuthStatus fetches the auth metadata for an instance.
func (c *Client) GetAuthStatus(ctx context.Context, instanceID string) (*AuthStatus, error) {
	var resp AuthStatus
	if err := c.do(ctx, http.MethodGet, "/mcp-server/instance/get-auth/"+url.PathEscape(instanceID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
