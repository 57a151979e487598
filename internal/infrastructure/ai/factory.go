package ai

import (
	"github.com/diting-rss/diting/internal/domain/model"
	"github.com/diting-rss/diting/internal/domain/service"
	"github.com/diting-rss/diting/internal/infrastructure/logger"
)

// NewClient 根据配置选择摘要调用策略，选择只在构造时发生一次
// strategy为http时强制使用原生HTTP策略；其余情况优先结构化客户端，
// 创建失败时回退到原生HTTP策略
func NewClient(config model.SummarizerConfig) service.AIClient {
	if config.Strategy == "http" {
		logger.Info("按配置使用原生HTTP摘要策略")
		return NewHTTPClient(config)
	}

	client, err := NewOpenAIClient(config)
	if err != nil {
		logger.Warn("结构化客户端不可用，回退到原生HTTP策略", "error", err)
		return NewHTTPClient(config)
	}

	logger.Info("使用结构化客户端摘要策略", "model", client.config.Model)
	return client
}
