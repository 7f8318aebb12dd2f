package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toolServer(t *testing.T, callResponse map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user/instances":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"instances": []map[string]interface{}{
					{"id": "inst-1", "name": "gmail", "serverUrl": "https://tools.example/inst-1"},
				},
			})
		case "/mcp-server/list-tools":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": true,
				"tools":   []map[string]string{{"name": "send_email"}},
			})
		case "/mcp-server/call-tool":
			json.NewEncoder(w).Encode(callResponse)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestListToolsUnknownInstanceNamesIt(t *testing.T) {
	server := toolServer(t, nil)
	defer server.Close()

	tool := NewMCPTool(NewClient(server.URL, "key"), "user-1", "webpilot")

	result := tool.ListTools(context.Background(), "unknown-id")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unknown-id")
	assert.Contains(t, result.Error, "getUserInstances")
}

func TestListToolsAfterGetUserInstances(t *testing.T) {
	server := toolServer(t, nil)
	defer server.Close()

	tool := NewMCPTool(NewClient(server.URL, "key"), "user-1", "webpilot")

	instances, err := tool.GetUserInstances(context.Background())
	require.NoError(t, err)
	require.Len(t, instances, 1)

	result := tool.ListTools(context.Background(), "inst-1")
	assert.True(t, result.Success)
	assert.NotNil(t, result.Data)
}

func TestCallToolNormalizesRemoteError(t *testing.T) {
	server := toolServer(t, map[string]interface{}{
		"success": true,
		"result":  map[string]interface{}{"content": "quota exceeded", "isError": true},
	})
	defer server.Close()

	tool := NewMCPTool(NewClient(server.URL, "key"), "user-1", "webpilot")
	_, err := tool.GetUserInstances(context.Background())
	require.NoError(t, err)

	result := tool.CallTool(context.Background(), "inst-1", "send_email", map[string]string{"to": "a@b.c"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "send_email")
	assert.Contains(t, result.Error, "quota exceeded")
}

func TestCallToolSuccess(t *testing.T) {
	server := toolServer(t, map[string]interface{}{
		"success": true,
		"result":  map[string]interface{}{"content": "sent"},
	})
	defer server.Close()

	tool := NewMCPTool(NewClient(server.URL, "key"), "user-1", "webpilot")
	_, err := tool.GetUserInstances(context.Background())
	require.NoError(t, err)

	result := tool.CallTool(context.Background(), "inst-1", "send_email", nil)
	assert.True(t, result.Success)
	assert.Equal(t, "sent", result.Data)
}

func TestClientMissingKeyFailsBeforeNetwork(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	_, err := client.GetAvailableServers(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KLAVIS_API_KEY")
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestClientNon2xxIncludesStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-key")
	_, err := client.GetAvailableServers(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid api key")
}
