package service

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/diting-rss/diting/internal/domain/model"
	"github.com/diting-rss/diting/internal/infrastructure/logger"
)

// 截断标记，截断发生时替换文本末尾三个字符
const ellipsisMarker = "..."

// MediaResolver 定义媒体资源解析接口，由基础设施层实现
// 视频原样透传，图片被下载、缩放并落盘为本地存储引用
type MediaResolver interface {
	Resolve(ctx context.Context, media model.MediaRefs, policy model.MediaPolicy) model.MediaRefs
}

// ContentService 定义内容清洗与过滤的领域服务接口
type ContentService interface {
	// Process 对一批新闻执行过滤、文本规整与媒体处理
	Process(ctx context.Context, items []model.NewsItem, contentType model.SourceType, rules model.RulesConfig) []model.NewsItem
}

// contentService 实现ContentService接口
type contentService struct {
	resolver MediaResolver
}

// NewContentService 创建一个新的内容处理服务实例
func NewContentService(resolver MediaResolver) ContentService {
	return &contentService{resolver: resolver}
}

// Process 对一批新闻执行过滤、文本规整与媒体处理
// 过滤在规整之前基于原始文本进行；单条失败只丢弃该条，批次继续
func (s *contentService) Process(ctx context.Context, items []model.NewsItem, contentType model.SourceType, rules model.RulesConfig) []model.NewsItem {
	processed := make([]model.NewsItem, 0, len(items))
	filtered := 0

	for _, item := range items {
		if shouldFilter(item, rules.ContentFilters) {
			filtered++
			continue
		}

		out, ok := s.processItem(ctx, item, contentType, rules)
		if !ok {
			continue
		}
		processed = append(processed, out)
	}

	if filtered > 0 {
		logger.Info("过滤规则命中", "filtered_count", filtered)
	}
	return processed
}

// processItem 处理单条新闻，失败被吸收并丢弃该条
func (s *contentService) processItem(ctx context.Context, item model.NewsItem, contentType model.SourceType, rules model.RulesConfig) (out model.NewsItem, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("处理新闻内容时出错", "title", item.Title, "error", r)
			ok = false
		}
	}()

	item.Content = NormalizeText(item.Content, rules.ContentExtractors, false)
	item.Title = NormalizeText(item.Title, rules.ContentExtractors, true)

	if contentType == model.SourceTypeImage || contentType == model.SourceTypeVideo {
		if s.resolver != nil {
			item.Media = s.resolver.Resolve(ctx, item.Media, rules.ImageProcessing)
		}
	}

	return item, true
}

// shouldFilter 判断新闻是否命中过滤规则
// 任一规则的模式是原始标题或原始正文的子串即命中
func shouldFilter(item model.NewsItem, filters []model.FilterRule) bool {
	for _, rule := range filters {
		if rule.Pattern == "" {
			continue
		}
		if strings.Contains(item.Title, rule.Pattern) || strings.Contains(item.Content, rule.Pattern) {
			return true
		}
	}
	return false
}

// NormalizeText 规整文本：去除HTML标签、折叠空白、按规则截断
func NormalizeText(text string, rules model.ExtractorRules, isTitle bool) string {
	if text == "" {
		return text
	}

	text = stripHTMLTags(text)

	maxLength := rules.Summary.MaxLength
	if isTitle {
		maxLength = rules.Title.MaxLength
	}

	return truncateRunes(text, maxLength)
}

// stripHTMLTags 去除HTML标签并折叠空白字符
func stripHTMLTags(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logger.Warn("解析HTML失败，返回原始内容", "error", err)
		return strings.TrimSpace(html)
	}

	return strings.Join(strings.Fields(doc.Text()), " ")
}

// truncateRunes 按字符数截断文本，结果长度不超过maxLength
// 截断发生时末尾三个字符替换为截断标记
func truncateRunes(text string, maxLength int) string {
	if maxLength <= 0 {
		return text
	}

	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	if maxLength <= len(ellipsisMarker) {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-len(ellipsisMarker)]) + ellipsisMarker
}
