package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

func completionServer(t *testing.T, content string, seen *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		payload, _ := json.Marshal(content)
		fmt.Fprintf(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",`+
			`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":%s}}]}`, payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompleteSendsConversation(t *testing.T) {
	var seen capturedRequest
	srv := completionServer(t, "Tell me about a recent project.", &seen)

	client := NewOpenAIClient(Config{APIKey: "test", BaseURL: srv.URL + "/v1/", Model: "gpt-4o-mini", MaxTokens: 300, Temperature: 0.7})
	out, err := client.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "You are an interviewer."},
		{Role: RoleUser, Content: "Hi"},
		{Role: RoleAssistant, Content: "Hello!"},
		{Role: RoleUser, Content: "Ready."},
	}, Options{})

	require.NoError(t, err)
	assert.Equal(t, "Tell me about a recent project.", out)
	assert.Equal(t, "gpt-4o-mini", seen.Model)
	assert.Equal(t, 300, seen.MaxTokens)
	assert.InDelta(t, 0.7, seen.Temperature, 0.0001)
	require.Len(t, seen.Messages, 4)
	assert.Equal(t, RoleSystem, seen.Messages[0].Role)
	assert.Equal(t, RoleAssistant, seen.Messages[2].Role)
}

func TestCompleteOverridesPerCall(t *testing.T) {
	var seen capturedRequest
	srv := completionServer(t, "ok", &seen)

	client := NewOpenAIClient(Config{APIKey: "test", BaseURL: srv.URL + "/v1/", Model: "m", MaxTokens: 300, Temperature: 0.7})
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "grade"}}, Options{Temperature: 0.2, MaxTokens: 1500})

	require.NoError(t, err)
	assert.Equal(t, 1500, seen.MaxTokens)
	assert.InDelta(t, 0.2, seen.Temperature, 0.0001)
}

func TestCompleteJSONStripsFences(t *testing.T) {
	srv := completionServer(t, "```json\n{\"overallScore\": 7}\n```", nil)

	client := NewOpenAIClient(Config{APIKey: "test", BaseURL: srv.URL + "/v1/", Model: "m"})
	out, err := client.CompleteJSON(context.Background(), []Message{{Role: RoleUser, Content: "grade"}}, Options{})

	require.NoError(t, err)
	assert.Equal(t, `{"overallScore": 7}`, out)
}

func TestCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"bad model","type":"invalid_request_error","code":"model_not_found"}}`)
	}))
	t.Cleanup(srv.Close)

	client := NewOpenAIClient(Config{APIKey: "test", BaseURL: srv.URL + "/v1/", Model: "nope"})
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, Options{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestCompleteRejectsEmptyConversation(t *testing.T) {
	client := NewOpenAIClient(Config{APIKey: "test", Model: "m"})
	_, err := client.Complete(context.Background(), nil, Options{})
	assert.Error(t, err)
}

func TestCleanJSONResponse(t *testing.T) {
	assert.Equal(t, `{"a":1}`, CleanJSONResponse("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, CleanJSONResponse("  {\"a\":1}  "))
}
