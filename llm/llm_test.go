package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bugeai-chat/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type completionRequest struct {
	Model    string    `json:"model"`
	Stream   bool      `json:"stream"`
	Messages []Message `json:"messages"`
}

func newFakeOpenAI(t *testing.T, handler func(w http.ResponseWriter, req completionRequest)) *OpenAIProvider {
	t.Helper()
	return newFakeOpenAIWithTimeout(t, 5, handler)
}

func newFakeOpenAIWithTimeout(t *testing.T, timeout int, handler func(w http.ResponseWriter, req completionRequest)) *OpenAIProvider {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handler(w, req)
	}))
	t.Cleanup(server.Close)

	provider, err := NewOpenAIProvider(Config{
		APIKey:  "sk-test",
		BaseURL: server.URL + "/v1",
		Model:   "gpt-test",
		Timeout: timeout,
	})
	require.NoError(t, err)
	return provider
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-test","choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, content)
}

func writeStream(w http.ResponseWriter, chunks ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, chunk := range chunks {
		fmt.Fprintf(w, "data: {\"id\":\"chatcmpl-1\",\"object\":\"chat.completion.chunk\",\"model\":\"gpt-test\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", chunk)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func TestOpenAIProviderChat(t *testing.T) {
	var got completionRequest
	provider := newFakeOpenAI(t, func(w http.ResponseWriter, req completionRequest) {
		got = req
		writeCompletion(w, "你好！")
	})

	reply, err := provider.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "be nice"},
		{Role: RoleUser, Content: "你好"},
	})
	require.NoError(t, err)
	assert.Equal(t, "你好！", reply)

	assert.Equal(t, "gpt-test", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
}

func TestOpenAIProviderStreamChat(t *testing.T) {
	provider := newFakeOpenAI(t, func(w http.ResponseWriter, req completionRequest) {
		assert.True(t, req.Stream)
		writeStream(w, "Hel", "lo", "!")
	})

	stream, err := provider.StreamChat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)

	var sb strings.Builder
	done := false
	for chunk := range stream {
		require.NoError(t, chunk.Error)
		sb.WriteString(chunk.Content)
		if chunk.Done {
			done = true
		}
	}
	assert.True(t, done)
	assert.Equal(t, "Hello!", sb.String())
}

func TestOpenAIProviderSlowStreamOutlivesTimeout(t *testing.T) {
	provider := newFakeOpenAIWithTimeout(t, 1, func(w http.ResponseWriter, req completionRequest) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := 0; i < 4; i++ {
			fmt.Fprintf(w, "data: {\"id\":\"chatcmpl-1\",\"object\":\"chat.completion.chunk\",\"model\":\"gpt-test\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"c%d\"}}]}\n\n", i)
			flusher.Flush()
			time.Sleep(400 * time.Millisecond)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	stream, err := provider.StreamChat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)

	var sb strings.Builder
	done := false
	for chunk := range stream {
		require.NoError(t, chunk.Error)
		sb.WriteString(chunk.Content)
		if chunk.Done {
			done = true
		}
	}
	assert.True(t, done)
	assert.Equal(t, "c0c1c2c3", sb.String())
}

func TestOpenAIProviderChatTimesOut(t *testing.T) {
	release := make(chan struct{})
	provider := newFakeOpenAIWithTimeout(t, 1, func(w http.ResponseWriter, req completionRequest) {
		select {
		case <-release:
		case <-time.After(3 * time.Second):
		}
		writeCompletion(w, "too late")
	})
	// runs before the server shuts down
	t.Cleanup(func() { close(release) })

	start := time.Now()
	_, err := provider.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestOpenAIProviderStreamChatAPIError(t *testing.T) {
	provider := newFakeOpenAI(t, func(w http.ResponseWriter, req completionRequest) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)
	})

	_, err := provider.StreamChat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.False(t, IsRetryableError(err))
}

func TestOpenAIProviderGenerateTitle(t *testing.T) {
	var got completionRequest
	provider := newFakeOpenAI(t, func(w http.ResponseWriter, req completionRequest) {
		got = req
		writeCompletion(w, "  \"Weekend trip to Kyoto\"\n")
	})

	history := []Message{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleUser, Content: "Plan a trip"},
		{Role: RoleAssistant, Content: "Sure"},
	}
	title, err := provider.GenerateTitle(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, "Weekend trip to Kyoto", title)

	// the persona prompt is replaced by the title prompt
	require.Len(t, got.Messages, 4)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
	assert.NotEqual(t, "persona", got.Messages[0].Content)
}

func TestValidateConfig(t *testing.T) {
	provider, err := NewOpenAIProvider(Config{})
	require.NoError(t, err)
	assert.Error(t, provider.ValidateConfig())
	assert.Equal(t, "OpenAI Compatible", provider.Name())

	provider, err = NewOpenAIProvider(Config{APIKey: "sk"})
	require.NoError(t, err)
	assert.NoError(t, provider.ValidateConfig())
}

func TestCleanTitle(t *testing.T) {
	cases := map[string]string{
		"":                      DefaultTitle,
		"  'Quoted'  ":          "Quoted",
		"“中文标题”":                "中文标题",
		"First line\nsecond":    "First line",
		strings.Repeat("长", 60): strings.Repeat("长", 50) + "...",
	}
	for in, want := range cases {
		assert.Equal(t, want, cleanTitle(in), "input %q", in)
	}
}

func TestTrimHistory(t *testing.T) {
	count := func(messages []Message) int {
		total := 0
		for _, m := range messages {
			total += len(m.Content)
		}
		return total
	}

	history := []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "aaaa"},
		{Role: RoleAssistant, Content: "bbbb"},
		{Role: RoleUser, Content: "cccc"},
	}

	t.Run("fits", func(t *testing.T) {
		out, trimmed := TrimHistory(history, 100, count)
		assert.False(t, trimmed)
		assert.Equal(t, history, out)
	})

	t.Run("drops oldest but keeps system", func(t *testing.T) {
		out, trimmed := TrimHistory(history, 11, count)
		assert.True(t, trimmed)
		require.Len(t, out, 3)
		assert.Equal(t, "sys", out[0].Content)
		assert.Equal(t, "bbbb", out[1].Content)
		assert.Equal(t, "cccc", out[2].Content)
	})

	t.Run("newest message always kept", func(t *testing.T) {
		out, trimmed := TrimHistory(history, 1, count)
		assert.True(t, trimmed)
		require.Len(t, out, 2)
		assert.Equal(t, "cccc", out[1].Content)
	})

	t.Run("no budget", func(t *testing.T) {
		out, trimmed := TrimHistory(history, 0, count)
		assert.False(t, trimmed)
		assert.Len(t, out, 4)
	})
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, tokensPerReply, EstimateTokens(nil))
	assert.Equal(t, tokensPerReply+tokensPerMessage+2, EstimateTokens([]Message{{Role: RoleUser, Content: "你好吗"}}))
}

type flakyProvider struct {
	failures int
	err      error
	calls    int
}

func (p *flakyProvider) StreamChat(ctx context.Context, messages []Message) (<-chan StreamResponse, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, p.err
	}
	ch := make(chan StreamResponse, 1)
	ch <- StreamResponse{Done: true}
	close(ch)
	return ch, nil
}

func (p *flakyProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	return "", nil
}

func (p *flakyProvider) GenerateTitle(ctx context.Context, messages []Message) (string, error) {
	return "", nil
}

func (p *flakyProvider) Name() string          { return "flaky" }
func (p *flakyProvider) ValidateConfig() error { return nil }

func TestStreamChatWithRetry(t *testing.T) {
	previous := retryBackoff
	retryBackoff = func(int) time.Duration { return time.Millisecond }
	t.Cleanup(func() { retryBackoff = previous })

	logger := utils.NewNopLogger()

	t.Run("retries network errors", func(t *testing.T) {
		provider := &flakyProvider{failures: 2, err: errors.New("dial tcp: connection refused")}
		stream, err := StreamChatWithRetry(context.Background(), provider, nil, 2, logger)
		require.NoError(t, err)
		assert.Equal(t, 3, provider.calls)
		assert.True(t, (<-stream).Done)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		provider := &flakyProvider{failures: 5, err: errors.New("i/o timeout")}
		_, err := StreamChatWithRetry(context.Background(), provider, nil, 1, logger)
		require.Error(t, err)
		assert.Equal(t, 2, provider.calls)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		provider := &flakyProvider{failures: 5, err: errors.New("invalid api key")}
		_, err := StreamChatWithRetry(context.Background(), provider, nil, 3, logger)
		require.Error(t, err)
		assert.Equal(t, 1, provider.calls)
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		retryBackoff = func(int) time.Duration { return time.Hour }
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		provider := &flakyProvider{failures: 5, err: errors.New("network unreachable")}
		_, err := StreamChatWithRetry(ctx, provider, nil, 3, logger)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
