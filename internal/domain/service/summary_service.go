package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diting-rss/diting/internal/domain/model"
	"github.com/diting-rss/diting/internal/infrastructure/logger"
	"github.com/diting-rss/diting/internal/middleware"
)

const (
	// emptyDigestText 输入为空时的整体结果
	emptyDigestText = "今日无新闻更新。"
	// failedDigestText 没有任何可用摘要时的整体结果
	failedDigestText = "无法生成摘要，请查看日志了解详细信息。"
	// degradedText 单个分类摘要失败时的降级句
	degradedText = "摘要生成失败，请稍后重试。"
	// missingLinkText 提示词中要求标注链接缺失的字面量
	missingLinkText = "原始链接缺失"
)

// SummaryService 定义摘要生成的领域服务接口
type SummaryService interface {
	// GenerateDigest 为各分类生成Markdown摘要并拼接为完整摘要文档
	GenerateDigest(ctx context.Context, groups []model.CategoryGroup) string
}

// summaryService 实现SummaryService接口
type summaryService struct {
	client  AIClient
	limiter *middleware.RateLimiter
}

// NewSummaryService 创建一个新的摘要服务实例
// maxCalls限制每日API调用次数，0表示不限制
func NewSummaryService(client AIClient, maxCalls int) SummaryService {
	return &summaryService{
		client:  client,
		limiter: middleware.NewRateLimiter(int64(maxCalls), 24*time.Hour),
	}
}

// GenerateDigest 为各分类生成Markdown摘要并拼接为完整摘要文档
// 单个分类的失败只产生该分类的降级段落，不影响其余分类
func (s *summaryService) GenerateDigest(ctx context.Context, groups []model.CategoryGroup) string {
	total := 0
	for _, group := range groups {
		total += len(group.Items)
	}
	if total == 0 {
		logger.Warn("没有需要处理的新闻")
		return emptyDigestText
	}

	stats := make([]string, 0, len(groups))
	for _, group := range groups {
		stats = append(stats, fmt.Sprintf("%s(%d条)", group.Category, len(group.Items)))
	}
	logger.Info("新闻分类统计", "categories", strings.Join(stats, ", "), "strategy", s.client.Name())

	sections := make([]string, 0, len(groups))
	for _, group := range groups {
		section := s.summarizeCategory(ctx, group)
		if section == "" {
			continue
		}
		sections = append(sections, section)
	}

	if len(sections) == 0 {
		return failedDigestText
	}

	return strings.Join(sections, "\n\n")
}

// summarizeCategory 生成单个分类的摘要，失败时返回降级段落
func (s *summaryService) summarizeCategory(ctx context.Context, group model.CategoryGroup) string {
	logger.Info("开始生成分类摘要", "category", group.Category, "items_count", len(group.Items))

	if !s.limiter.Check() {
		logger.Error("已达到API调用次数上限，该分类降级处理", "category", group.Category)
		return degradedSection(group.Category)
	}

	prompt := BuildPrompt(group.Category, group.Items)

	summary, err := s.client.Summarize(ctx, prompt)
	if err != nil {
		logger.Error("生成分类摘要时出错", "category", group.Category, "error", err)
		return degradedSection(group.Category)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		logger.Error("摘要后端返回空内容", "category", group.Category)
		return degradedSection(group.Category)
	}

	logger.Info("分类摘要生成成功", "category", group.Category, "length", len(summary))
	return summary
}

// degradedSection 构造降级段落：二级标题加固定失败句
func degradedSection(category string) string {
	return fmt.Sprintf("## %s\n\n%s", category, degradedText)
}

// BuildPrompt 构造分类摘要的提示词
// 提示词内容是确定性的：逐条列出标题、来源、正文、链接及媒体数量，
// 两端以固定分隔线包裹，两种调用策略产生完全相同的提示词
func BuildPrompt(category string, items []model.NewsItem) string {
	texts := make([]string, 0, len(items))
	for _, item := range items {
		var b strings.Builder
		b.WriteString(fmt.Sprintf("标题：%s\n", orDefault(item.Title, "无标题")))
		b.WriteString(fmt.Sprintf("来源：%s\n", orDefault(item.SourceName, "未知来源")))
		b.WriteString(fmt.Sprintf("内容：%s\n", orDefault(item.Content, "无内容")))
		b.WriteString(fmt.Sprintf("链接：%s\n", orDefault(item.Link, "无链接")))
		if len(item.Media.Images) > 0 {
			b.WriteString(fmt.Sprintf("包含 %d 张图片\n", len(item.Media.Images)))
		}
		if len(item.Media.Videos) > 0 {
			b.WriteString(fmt.Sprintf("包含 %d 个视频\n", len(item.Media.Videos)))
		}
		texts = append(texts, b.String())
	}

	separator := strings.Repeat("=", 50)
	return fmt.Sprintf(`请你作为一个专业的新闻编辑，帮我总结以下%s类新闻的要点。

要求：
1. 用简洁的语言概括新闻的主要内容
2. 突出重要信息和关键数据
3. 保持客观中立的态度
4. 按重要性排序
5. 使用规范的Markdown格式
6. 遵循以下格式规范：
   - 使用二级标题(##)标记分类名
   - 重要新闻使用无序列表(-)
   - 关键数据或重要引用使用粗体(**)标记
   - 每条新闻之间使用空行分隔
   - 需要用[链接]给出新闻的原始链接，如果无链接，则指出“%s”

以下是需要总结的新闻：

%s
%s
%s

请生成一个格式规范的摘要，示例格式如下：
## %s

- 第一条重要新闻概述，**关键数据**，核心信息，原始链接

- 第二条新闻概述，包含**重要引用**或数据，原始链接

[其他新闻概述...]`, category, missingLinkText, separator, strings.Join(texts, "\n"), separator, category)
}

// orDefault 空字符串时返回默认值
func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
