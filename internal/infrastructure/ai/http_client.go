package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/diting-rss/diting/internal/domain/model"
	"github.com/diting-rss/diting/internal/infrastructure/logger"
)

const (
	// httpCallTimeout 原生HTTP策略的单次调用超时时间
	httpCallTimeout = 90 * time.Second
	// maxAttempts 可重试错误的最大尝试次数
	maxAttempts = 3
)

// HTTPClient 原生HTTP策略，显式构造请求头与请求体调用同一远端接口
// 作为结构化客户端不可用时的回退路径
type HTTPClient struct {
	config model.SummarizerConfig
	client *http.Client
}

// NewHTTPClient 创建原生HTTP客户端
func NewHTTPClient(config model.SummarizerConfig) *HTTPClient {
	applyDefaults(&config)

	transport := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		TLSHandshakeTimeout:   15 * time.Second,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}

	return &HTTPClient{
		config: config,
		client: &http.Client{
			Timeout:   httpCallTimeout,
			Transport: transport,
		},
	}
}

// Name 返回策略名称
func (c *HTTPClient) Name() string {
	return "http"
}

// chatRequest 兼容OpenAI协议的请求体
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	Stream      bool          `json:"stream"`
}

// chatMessage 对话消息
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse 兼容OpenAI协议的响应体
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Summarize 基于提示词生成Markdown摘要
// 可重试错误按指数退避最多重试两次，其余错误直接返回
func (c *HTTPClient) Summarize(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   c.config.MaxTokens,
		Temperature: 0.7,
		TopP:        0.8,
	})
	if err != nil {
		return "", fmt.Errorf("构建API请求体失败: %w", err)
	}

	endpoint := strings.TrimRight(c.config.APIUrl, "/") + "/chat/completions"

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, retryable, err := c.doRequest(ctx, endpoint, body)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable || attempt == maxAttempts {
			return "", err
		}

		delay := bo.NextBackOff()
		logger.Warn("摘要API请求失败，准备重试", "attempt", attempt, "retry_in", delay, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("摘要API调用失败，已重试%d次: %w", maxAttempts, lastErr)
}

// doRequest 执行一次HTTP请求，第二个返回值表示错误是否可重试
func (c *HTTPClient) doRequest(ctx context.Context, endpoint string, body []byte) (string, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, httpCallTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("创建API请求失败: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("User-Agent", "diting/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("发送API请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("摘要API返回错误(状态码:%d): %s", resp.StatusCode, string(preview))
		return "", isRetryableStatus(resp.StatusCode), err
	}

	var response chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", false, fmt.Errorf("解析API响应失败: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", false, fmt.Errorf("摘要API响应不包含有效内容")
	}

	logger.Debug("原生HTTP客户端调用成功",
		"model", c.config.Model,
		"prompt_tokens", response.Usage.PromptTokens,
		"total_tokens", response.Usage.TotalTokens)

	return strings.TrimSpace(response.Choices[0].Message.Content), false, nil
}

// isRetryableStatus 判断状态码是否值得重试
func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
