package mcp

import (
	"context"
	"fmt"
	"sync"
)

// MCPTool is the runtime-facing surface agents use to enumerate installed
// external tools and invoke them during task execution. It keeps a local
// instanceId→name cache populated only by GetUserInstances; the cache is
// valid for the current process lifetime and is implicitly invalidated by
// restart.
type MCPTool struct {
	client       *Client
	userID       string
	platformName string

	mu        sync.Mutex
	instances map[string]Instance // keyed by instance id
}

// NewMCPTool creates the tool façade for a user.
func NewMCPTool(client *Client, userID, platformName string) *MCPTool {
	return &MCPTool{
		client:       client,
		userID:       userID,
		platformName: platformName,
		instances:    make(map[string]Instance),
	}
}

// GetUserInstances refreshes the instance cache from the remote API and
// returns the installed instances. It must be called before ListTools or
// CallTool can address an instance: resolving the server URL for a tool
// endpoint requires the cached record.
func (t *MCPTool) GetUserInstances(ctx context.Context) ([]Instance, error) {
	instances, err := t.client.GetUserInstances(ctx, t.userID, t.platformName)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.instances = make(map[string]Instance, len(instances))
	for _, instance := range instances {
		t.instances[instance.ID] = instance
	}
	t.mu.Unlock()

	return instances, nil
}

// lookup returns the cached instance or the deliberate ordering error.
func (t *MCPTool) lookup(instanceID string) (Instance, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	instance, ok := t.instances[instanceID]
	if !ok {
		return Instance{}, fmt.Errorf("instance %q not found, call getUserInstances first", instanceID)
	}
	return instance, nil
}

// ListTools enumerates the tools of a cached instance. An unknown id is a
// hard failure naming the missing instance.
func (t *MCPTool) ListTools(ctx context.Context, instanceID string) *ToolResult {
	instance, err := t.lookup(instanceID)
	if err != nil {
		return &ToolResult{Success: false, Error: err.Error()}
	}

	resp, err := t.client.ListTools(ctx, instance.ServerURL)
	if err != nil {
		return &ToolResult{Success: false, Error: err.Error()}
	}
	if !resp.Success {
		return &ToolResult{Success: false, Error: resp.Error}
	}
	return &ToolResult{Success: true, Data: resp.Tools}
}

// CallTool invokes a named tool on a cached instance with opaque arguments,
// normalizing success and failure into the uniform result shape.
func (t *MCPTool) CallTool(ctx context.Context, instanceID, toolName string, args interface{}) *ToolResult {
	instance, err := t.lookup(instanceID)
	if err != nil {
		return &ToolResult{Success: false, Error: err.Error()}
	}

	resp, err := t.client.CallTool(ctx, instance.ServerURL, toolName, args)
	if err != nil {
		return &ToolResult{Success: false, Error: err.Error()}
	}
	if !resp.Success {
		return &ToolResult{Success: false, Error: resp.Error}
	}
	if resp.Result != nil && resp.Result.IsError {
		return &ToolResult{
			Success: false,
			Error:   fmt.Sprintf("tool %s reported an error: %v", toolName, resp.Result.Content),
		}
	}

	var data interface{}
	if resp.Result != nil {
		data = resp.Result.Content
	}
	return &ToolResult{Success: true, Data: data}
}
