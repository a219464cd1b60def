package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-chat/internal/config"
)

func newTestClient(baseURL string) *Client {
	return New(&config.LLMConfig{
		BaseURL:     baseURL,
		Model:       "test-model",
		MaxTokens:   100,
		TimeoutSecs: 5,
	})
}

func collect(ch <-chan string) []string {
	var out []string
	for v := range ch {
		out = append(out, v)
	}
	return out
}

func sseHandler(lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, l := range lines {
			fmt.Fprintf(w, "%s\n\n", l)
		}
	}
}

func delta(content string) string {
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":%q}}]}`, content)
}

func Test_Stream_CumulativeSnapshots(t *testing.T) {
	srv := httptest.NewServer(sseHandler(delta("Hel"), delta("lo"), "data: [DONE]"))
	defer srv.Close()

	out := collect(newTestClient(srv.URL).Stream(context.Background(), "hi"))
	assert.Equal(t, []string{"Hel", "Hello"}, out)
}

func Test_Stream_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	out := collect(newTestClient(srv.URL).Stream(context.Background(), "hi"))
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "Error 500")
	assert.Contains(t, out[0], "boom")
}

func Test_Stream_ConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	out := collect(newTestClient(srv.URL).Stream(context.Background(), "hi"))
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "Error")
}

func Test_Stream_SkipsMalformedLines(t *testing.T) {
	srv := httptest.NewServer(sseHandler(
		delta("Hel"),
		"data: not json at all",
		`data: {"unexpected":"shape"}`,
		delta("lo"),
		"data: [DONE]",
	))
	defer srv.Close()

	out := collect(newTestClient(srv.URL).Stream(context.Background(), "hi"))
	assert.Equal(t, []string{"Hel", "Hello"}, out)
}

func Test_Stream_DoneStopsBeforeTrailingData(t *testing.T) {
	srv := httptest.NewServer(sseHandler(
		delta("Hi"),
		"data: [DONE]",
		delta(" ignored"),
	))
	defer srv.Close()

	out := collect(newTestClient(srv.URL).Stream(context.Background(), "hi"))
	assert.Equal(t, []string{"Hi"}, out)
}

func Test_Stream_RequestShape(t *testing.T) {
	t.Setenv("TEST_LLM_TOKEN", "test-token")

	var got request
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		sseHandler("data: [DONE]")(w, r)
	}))
	defer srv.Close()

	client := New(&config.LLMConfig{
		BaseURL:     srv.URL,
		Model:       "test-model",
		TokenEnv:    "TEST_LLM_TOKEN",
		MaxTokens:   100,
		TimeoutSecs: 5,
	})
	collect(client.Stream(context.Background(), "the prompt"))

	assert.Equal(t, "Bearer test-token", auth)

	assert.Equal(t, "test-model", got.Model)
	assert.True(t, got.Stream)
	assert.Equal(t, 100, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "the prompt", got.Messages[0].Content)
}
