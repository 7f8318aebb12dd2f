package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nxtscape/webpilot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, deltas []string, capture *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, capture))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for i, delta := range deltas {
			payload := map[string]interface{}{
				"choices": []map[string]interface{}{{
					"delta": map[string]interface{}{"content": delta},
				}},
			}
			if i == 0 {
				payload["choices"].([]map[string]interface{})[0]["delta"].(map[string]interface{})["role"] = "assistant"
			}
			data, _ := json.Marshal(payload)
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestNewProviderRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewProvider("")
	assert.Error(t, err)
}

func TestCompleteAccumulatesStream(t *testing.T) {
	server := sseServer(t, []string{"Hello", ", ", "world"}, nil)
	defer server.Close()

	provider, err := NewProvider("test-key", WithBaseURL(server.URL), WithModel("test-model"))
	require.NoError(t, err)

	msg, err := provider.Complete(context.Background(), []*types.Message{
		types.NewUserMessage("hi"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", msg.Content)
	assert.Equal(t, types.ChatRoleAssistant, msg.Role)
}

func TestTemperatureIncludedWhenSet(t *testing.T) {
	var captured map[string]interface{}
	server := sseServer(t, []string{"ok"}, &captured)
	defer server.Close()

	provider, err := NewProvider("test-key", WithBaseURL(server.URL), WithTemperature(0.1))
	require.NoError(t, err)

	_, err = provider.Complete(context.Background(), []*types.Message{types.NewUserMessage("hi")})
	require.NoError(t, err)
	assert.InDelta(t, 0.1, captured["temperature"], 1e-9)
}

func TestNon2xxSurfacesStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider, err := NewProvider("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = provider.Complete(context.Background(), []*types.Message{types.NewUserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestImageAttachmentBecomesMultimodalMessage(t *testing.T) {
	var captured map[string]interface{}
	server := sseServer(t, []string{"ok"}, &captured)
	defer server.Close()

	provider, err := NewProvider("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	msg := types.NewUserMessage("what is shown?").WithImage("aGVsbG8=")
	_, err = provider.Complete(context.Background(), []*types.Message{msg})
	require.NoError(t, err)

	messages := captured["messages"].([]interface{})
	require.Len(t, messages, 1)
	content := messages[0].(map[string]interface{})["content"].([]interface{})
	assert.Len(t, content, 2)
}
