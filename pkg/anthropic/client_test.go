package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fontintel/fontintel/internal/resilience"
)

func newTestClient(baseURL string) Client {
	return NewClient("test-key", option.WithBaseURL(baseURL))
}

func messageBody(text, stopReason string) map[string]any {
	return map[string]any{
		"id":   "msg_test_001",
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"model":       "claude-sonnet-4-5",
		"stop_reason": stopReason,
		"usage": map[string]any{
			"input_tokens":                10,
			"output_tokens":               5,
			"cache_creation_input_tokens": 0,
			"cache_read_input_tokens":     3,
		},
	}
}

func serveJSON(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func testRequest() MessageRequest {
	return MessageRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 1024,
		System:    CachedSystem("You classify typefaces."),
		Messages:  []Message{{Role: "user", Content: "Classify"}},
	}
}

func TestCreateMessage(t *testing.T) {
	ts := serveJSON(t, http.StatusOK, messageBody(`{"style_primary":"serif"}`, "end_turn"))

	resp, err := newTestClient(ts.URL).CreateMessage(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "msg_test_001", resp.ID)
	assert.Equal(t, `{"style_primary":"serif"}`, resp.Text())
	assert.False(t, resp.Truncated())
	assert.Equal(t, int64(10), resp.Usage.InputTokens)
	assert.Equal(t, int64(3), resp.Usage.CacheReadInputTokens)
}

func TestCreateMessage_Truncated(t *testing.T) {
	ts := serveJSON(t, http.StatusOK, messageBody(`{"style_primary": {"val`, "max_tokens"))

	resp, err := newTestClient(ts.URL).CreateMessage(context.Background(), testRequest())
	require.NoError(t, err)
	assert.True(t, resp.Truncated())
}

func TestCreateMessage_Refusal(t *testing.T) {
	ts := serveJSON(t, http.StatusOK, messageBody("", "refusal"))

	resp, err := newTestClient(ts.URL).CreateMessage(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRefusal))
	require.NotNil(t, resp)
	assert.Equal(t, StopRefusal, resp.StopReason)
}

func TestCreateMessage_StatusErrors(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadRequest} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var calls atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"type":  "error",
					"error": map[string]any{"type": "api_error", "message": "boom"},
				})
			}))
			defer ts.Close()

			_, err := newTestClient(ts.URL).CreateMessage(context.Background(), testRequest())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "anthropic: create message")

			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, status, se.HTTPStatus())
			assert.Equal(t, status, resilience.StatusOf(err))
			assert.Equal(t, status != http.StatusBadRequest, resilience.IsRetryable(err))
			assert.Equal(t, int32(1), calls.Load(), "sdk retries must be disabled")
		})
	}
}

func TestMessageResponse_TextSkipsNonText(t *testing.T) {
	r := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "a"},
		{Type: "thinking", Text: "hidden"},
		{Type: "text", Text: "b"},
	}}
	assert.Equal(t, "ab", r.Text())

	var nilResp *MessageResponse
	assert.Equal(t, "", nilResp.Text())
	assert.False(t, nilResp.Truncated())
}

func TestToSDKMessages_Roles(t *testing.T) {
	out := toSDKMessages([]Message{{Role: "user", Content: "q"}, {Role: "assistant", Content: "a"}, {Role: "other", Content: "x"}})
	require.Len(t, out, 3)
	assert.Equal(t, "user", string(out[0].Role))
	assert.Equal(t, "assistant", string(out[1].Role))
	assert.Equal(t, "user", string(out[2].Role))
}

func TestToSDKSystemBlocks_CacheControl(t *testing.T) {
	out := toSDKSystemBlocks(CachedSystem("static"))
	require.Len(t, out, 1)
	assert.Equal(t, "static", out[0].Text)
	assert.Equal(t, "1h", string(out[0].CacheControl.TTL))
}

func TestEstimateCost(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 18.0, u.EstimateCost("claude-sonnet-4-5"), 1e-9)
	assert.Equal(t, 0.0, u.EstimateCost("unknown-model"))
	assert.NotPanics(t, func() { u.LogUsage("claude-sonnet-4-5", "visual") })
}
