package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sozercan/cheatsheet-ai/internal/config"
	"github.com/sozercan/cheatsheet-ai/internal/upstream"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4",
  "choices": [
    {
      "index": 0,
      "finish_reason": "stop",
      "logprobs": null,
      "message": {"role": "assistant", "content": "A blockchain is a shared ledger.", "refusal": null}
    }
  ],
  "usage": {"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19}
}`

type recordedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestClient(t *testing.T, url string) *OpenAI {
	t.Helper()
	client, err := NewOpenAI(&config.OpenAIConfig{
		Provider:    "openai",
		APIKey:      "sk-test",
		APIEndpoint: url,
		Model:       "gpt-4",
		MaxTokens:   100,
	}, upstream.Policy{Timeout: 2 * time.Second, Attempts: 3, Delay: time.Millisecond})
	require.NoError(t, err)
	return client
}

func TestOpenAIComplete(t *testing.T) {
	var got recordedRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), "unexpected path %s", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)
	resp, err := client.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "Please respond in en."},
		{Role: RoleUser, Content: "earlier question"},
		{Role: RoleAssistant, Content: "earlier answer"},
		{Role: RoleUser, Content: "What is a blockchain?"},
	})
	require.NoError(t, err)

	assert.Equal(t, "A blockchain is a shared ledger.", resp.Content)
	assert.Equal(t, int64(19), resp.Usage.TotalTokens)

	assert.Equal(t, "gpt-4", got.Model)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "assistant", got.Messages[2].Role)
	assert.Equal(t, "What is a blockchain?", got.Messages[3].Content)
}

func TestOpenAICompleteModelOverride(t *testing.T) {
	var got recordedRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer ts.Close()

	_, err := newTestClient(t, ts.URL).Complete(context.Background(),
		[]Message{{Role: RoleUser, Content: "hi"}}, WithModel("gpt-4o-mini"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", got.Model)
}

func TestOpenAICompleteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":{"message":"bad gateway","type":"server_error"}}`))
			return
		}
		_, _ = w.Write([]byte(completionBody))
	}))
	defer ts.Close()

	resp, err := newTestClient(t, ts.URL).Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.NotEmpty(t, resp.Content)
}

func TestOpenAICompleteRejected(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key","param":null}}`))
	}))
	defer ts.Close()

	_, err := newTestClient(t, ts.URL).Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.ErrorIs(t, err, upstream.ErrRejected)

	var status *upstream.StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusUnauthorized, status.StatusCode)
	assert.Equal(t, "Incorrect API key provided", upstream.Message(err))
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI(&config.OpenAIConfig{Provider: "openai"}, upstream.Policy{})
	assert.Error(t, err)
}
