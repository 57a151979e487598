package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/diting-rss/diting/internal/domain/model"
	"github.com/diting-rss/diting/internal/infrastructure/logger"
)

const (
	// defaultAPIUrl 兼容OpenAI协议的默认后端地址（通义千问兼容模式）
	defaultAPIUrl = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	// defaultModel 默认摘要模型
	defaultModel = "qwen-turbo"
	// defaultMaxTokens 结构化客户端的默认令牌预算
	defaultMaxTokens = 1500

	systemPrompt = "You are a helpful assistant."
)

// OpenAIClient 结构化客户端策略，基于官方SDK调用兼容OpenAI协议的后端
type OpenAIClient struct {
	client openai.Client
	config model.SummarizerConfig
}

// NewOpenAIClient 创建结构化客户端
// API密钥缺失时返回错误，调用方据此回退到原生HTTP策略
func NewOpenAIClient(config model.SummarizerConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, errors.New("未配置API密钥，无法创建结构化客户端")
	}

	applyDefaults(&config)

	return &OpenAIClient{
		client: openai.NewClient(
			option.WithAPIKey(config.APIKey),
			option.WithBaseURL(config.APIUrl),
		),
		config: config,
	}, nil
}

// Name 返回策略名称
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Summarize 基于提示词生成Markdown摘要
func (c *OpenAIClient) Summarize(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(int64(c.config.MaxTokens)),
		Temperature: openai.Float(0.7),
		TopP:        openai.Float(0.8),
	})
	if err != nil {
		return "", fmt.Errorf("调用摘要API失败: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("摘要API响应不包含有效内容")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	logger.Debug("结构化客户端调用成功",
		"model", c.config.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return content, nil
}

// applyDefaults 填充摘要配置的默认值
func applyDefaults(config *model.SummarizerConfig) {
	if config.APIUrl == "" {
		config.APIUrl = defaultAPIUrl
		logger.Warn("未配置摘要API地址，使用默认值", "default_url", defaultAPIUrl)
	}
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaultMaxTokens
	}
}
