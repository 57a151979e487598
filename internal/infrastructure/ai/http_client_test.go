package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diting-rss/diting/internal/domain/model"
)

func chatCompletionResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
}

func TestHTTPClientSummarize(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		require.Equal(t, "/chat/completions", r.URL.Path)

		json.NewEncoder(w).Encode(chatCompletionResponse("## 科技\n\n- 摘要内容 "))
	}))
	defer server.Close()

	client := NewHTTPClient(model.SummarizerConfig{
		APIKey: "test-key",
		APIUrl: server.URL,
		Model:  "qwen-turbo",
	})

	got, err := client.Summarize(context.Background(), "提示词")
	require.NoError(t, err)

	assert.Equal(t, "## 科技\n\n- 摘要内容", got)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "qwen-turbo", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "提示词", gotReq.Messages[1].Content)
	assert.False(t, gotReq.Stream)
}

func TestHTTPClientRetriesRetryableStatus(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(chatCompletionResponse("恢复后的摘要"))
	}))
	defer server.Close()

	client := NewHTTPClient(model.SummarizerConfig{APIKey: "k", APIUrl: server.URL})

	got, err := client.Summarize(context.Background(), "提示词")
	require.NoError(t, err)
	assert.Equal(t, "恢复后的摘要", got)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPClientDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewHTTPClient(model.SummarizerConfig{APIKey: "bad", APIUrl: server.URL})

	_, err := client.Summarize(context.Background(), "提示词")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPClientRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	client := NewHTTPClient(model.SummarizerConfig{APIKey: "k", APIUrl: server.URL})

	_, err := client.Summarize(context.Background(), "提示词")
	assert.Error(t, err)
}

func TestIsRetryableStatus(t *testing.T) {
	assert.True(t, isRetryableStatus(http.StatusTooManyRequests))
	assert.True(t, isRetryableStatus(http.StatusInternalServerError))
	assert.True(t, isRetryableStatus(http.StatusBadGateway))
	assert.False(t, isRetryableStatus(http.StatusBadRequest))
	assert.False(t, isRetryableStatus(http.StatusUnauthorized))
}

func TestNewClientStrategySelection(t *testing.T) {
	// 显式http策略强制使用原生客户端
	client := NewClient(model.SummarizerConfig{Strategy: "http", APIKey: "k"})
	assert.Equal(t, "http", client.Name())

	// 默认策略优先结构化客户端
	client = NewClient(model.SummarizerConfig{APIKey: "k"})
	assert.Equal(t, "openai", client.Name())

	// 结构化客户端创建失败时回退到原生客户端
	client = NewClient(model.SummarizerConfig{})
	assert.Equal(t, "http", client.Name())
}
