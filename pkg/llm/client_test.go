package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civic-connect/civic-api/pkg/config"
)

func completionServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body["model"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]interface{}{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
}

func newTestClient(url string) *Client {
	return New(config.AssistantConfig{BaseURL: url + "/v1", APIKey: "test-key", Model: "test-model", Timeout: time.Second})
}

func TestCompleteReturnsTrimmedContent(t *testing.T) {
	srv := completionServer(t, "  refined text \n", http.StatusOK)
	defer srv.Close()

	out, err := newTestClient(srv.URL).Complete(context.Background(), "system", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "refined text", out)
}

func TestCompleteEmptyReply(t *testing.T) {
	srv := completionServer(t, "   ", http.StatusOK)
	defer srv.Close()

	_, err := newTestClient(srv.URL).Complete(context.Background(), "", "prompt")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestCompleteServerError(t *testing.T) {
	srv := completionServer(t, "", http.StatusInternalServerError)
	defer srv.Close()

	_, err := newTestClient(srv.URL).Complete(context.Background(), "", "prompt")
	assert.Error(t, err)
}

func TestExtractJSONArray(t *testing.T) {
	fenced := "Here you go:\n```json\n[{\"jobId\":\"1\",\"matchScore\":80},]\n```"
	assert.Equal(t, `[{"jobId":"1","matchScore":80}]`, ExtractJSONArray(fenced))
	assert.Equal(t, `[1, 2]`, ExtractJSONArray("scores: [1, 2] done"))
	assert.Equal(t, "", ExtractJSONArray("no array here"))
}
