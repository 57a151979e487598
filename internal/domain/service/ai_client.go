package service

import "context"

// AIClient 定义摘要后端的调用接口
// 两种实现策略（结构化客户端与原生HTTP）在构造时二选一，调用方不感知差异
type AIClient interface {
	// Summarize 基于提示词生成Markdown摘要
	Summarize(ctx context.Context, prompt string) (string, error)

	// Name 返回当前策略名称，仅用于日志
	Name() string
}
