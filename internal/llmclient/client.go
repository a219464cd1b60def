package llmclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"doc-chat/internal/config"
)

const completionsPath = "/v1/chat/completions"

// Client streams completions from an OpenAI-compatible chat endpoint.
type Client struct {
	baseURL    string
	model      string
	token      string
	maxTokens  int
	timeout    time.Duration
	httpClient *http.Client
}

func New(cfg *config.LLMConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		token:      cfg.Token(),
		maxTokens:  cfg.MaxTokens,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	Messages  []message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
	Stream    bool      `json:"stream"`
}

type deltaChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Stream posts the prompt and emits cumulative answer snapshots on the
// returned channel: each value is the whole answer so far, so consumers
// replace, never append. The channel closes when the endpoint signals
// completion, the connection ends, or the timeout expires. A non-success
// status or a failed connection yields a single error-text item before the
// close; callers can only tell it apart from model output by convention.
// The stream is finite and not restartable.
func (c *Client) Stream(ctx context.Context, prompt string) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		c.run(ctx, prompt, out)
	}()
	return out
}

func (c *Client) run(ctx context.Context, prompt string, out chan<- string) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(request{
		Model:     c.model,
		Messages:  []message{{Role: "user", Content: prompt}},
		MaxTokens: c.maxTokens,
		Stream:    true,
	})
	if err != nil {
		emit(ctx, out, fmt.Sprintf("Error: %v", err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		emit(ctx, out, fmt.Sprintf("Error: %v", err))
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("completion request failed")
		emit(ctx, out, fmt.Sprintf("Error: %v", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		log.Warn().Int("status", resp.StatusCode).Msg("completion request rejected")
		emit(ctx, out, fmt.Sprintf("Error %d: %s", resp.StatusCode, respBody))
		return
	}

	c.readStream(ctx, resp.Body, out)
}

// readStream parses the server-sent event stream. Malformed lines are
// skipped; the data: [DONE] sentinel ends the stream before any trailing
// transport data is processed. A read error mid-stream terminates the
// sequence at the last delivered snapshot.
func (c *Client) readStream(ctx context.Context, body io.Reader, out chan<- string) {
	var full strings.Builder
	reader := bufio.NewReader(body)
	for {
		line, readErr := reader.ReadString('\n')
		line = strings.TrimSpace(line)

		if line != "" && !strings.HasPrefix(line, ":") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var chunk deltaChunk
			if err := json.Unmarshal([]byte(data), &chunk); err == nil &&
				len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				full.WriteString(chunk.Choices[0].Delta.Content)
				if !emit(ctx, out, full.String()) {
					return
				}
			}
		}

		if readErr != nil {
			return
		}
	}
}

func emit(ctx context.Context, out chan<- string, snapshot string) bool {
	select {
	case out <- snapshot:
		return true
	case <-ctx.Done():
		return false
	}
}
