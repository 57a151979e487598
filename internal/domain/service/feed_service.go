package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gilliek/go-opml/opml"
	"github.com/mmcdole/gofeed"

	"github.com/diting-rss/diting/internal/domain/model"
	"github.com/diting-rss/diting/internal/infrastructure/logger"
)

// 单个订阅源的抓取超时时间
const fetchTimeout = 30 * time.Second

// FeedService 定义订阅源抓取的领域服务接口
type FeedService interface {
	// LoadSources 合并配置中的源列表与可选的OPML文件
	LoadSources(sources []model.SourceConfig, opmlFile string) ([]model.SourceConfig, error)

	// FetchSource 抓取单个订阅源并返回新闻条目，失败时返回空列表而不报错
	FetchSource(ctx context.Context, source model.SourceConfig) []model.NewsItem
}

// feedService 实现FeedService接口
type feedService struct {
	parser *gofeed.Parser
	client *http.Client
}

// NewFeedService 创建一个新的订阅源服务实例
func NewFeedService() FeedService {
	return &feedService{
		parser: gofeed.NewParser(),
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// LoadSources 合并配置中的源列表与可选的OPML文件
func (s *feedService) LoadSources(sources []model.SourceConfig, opmlFile string) ([]model.SourceConfig, error) {
	merged := make([]model.SourceConfig, 0, len(sources))
	merged = append(merged, sources...)

	if opmlFile == "" {
		return merged, nil
	}

	doc, err := opml.NewOPMLFromFile(opmlFile)
	if err != nil {
		return nil, fmt.Errorf("解析OPML文件失败: %w", err)
	}

	for _, outline := range doc.Outlines() {
		merged = append(merged, extractOpmlSources(outline)...)
	}

	logger.Info("订阅源列表加载完成", "config_count", len(sources), "total_count", len(merged))
	return merged, nil
}

// extractOpmlSources 递归提取outline中的订阅源，OPML导入的源一律按文本源处理
func extractOpmlSources(outline opml.Outline) []model.SourceConfig {
	var sources []model.SourceConfig

	if outline.XMLURL != "" {
		sources = append(sources, model.SourceConfig{
			Name: outline.Title,
			URL:  outline.XMLURL,
			Type: model.SourceTypeText,
		})
	}

	for _, child := range outline.Outlines {
		sources = append(sources, extractOpmlSources(child)...)
	}

	return sources
}

// FetchSource 抓取单个订阅源并返回新闻条目
// 抓取或解析失败只影响当前源：记录日志并返回空列表，不向调用方抛出错误
func (s *feedService) FetchSource(ctx context.Context, source model.SourceConfig) []model.NewsItem {
	logger.Info("开始解析订阅源", "name", source.Name, "url", source.URL)
	defer logger.TimeTrack("FetchSource")()

	reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, source.URL, nil)
	if err != nil {
		logger.Error("创建订阅源请求失败", "name", source.Name, "error", err)
		return nil
	}

	resp, err := s.client.Do(req)
	if err != nil {
		logger.Error("获取订阅源失败", "name", source.Name, "url", source.URL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Error("订阅源返回异常状态码", "name", source.Name, "status", resp.StatusCode)
		return nil
	}

	feed, err := s.parser.Parse(resp.Body)
	if err != nil {
		logger.Error("解析订阅源失败", "name", source.Name, "error", err)
		return nil
	}

	items := make([]model.NewsItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		item, ok := buildItem(entry, source)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	logger.Info("订阅源解析完成", "name", source.Name, "items_count", len(items))
	return items
}

// buildItem 将单个feed条目转换为NewsItem，条目级失败被吸收并跳过
func buildItem(entry *gofeed.Item, source model.SourceConfig) (item model.NewsItem, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("处理订阅条目时出错", "source", source.Name, "error", r)
			ok = false
		}
	}()

	if entry == nil {
		return model.NewsItem{}, false
	}

	content := entry.Content
	if content == "" {
		content = entry.Description
	}

	category := source.Category
	if category == "" {
		category = model.DefaultCategory
	}

	item = model.NewsItem{
		Title:       entry.Title,
		Link:        entry.Link,
		Description: entry.Description,
		Content:     content,
		Published:   parsePublished(entry),
		SourceName:  source.Name,
		SourceType:  source.Type,
		Category:    category,
		Media:       extractMedia(entry, content),
	}
	return item, true
}

// parsePublished 解析发布时间，解析失败时使用当前时间
func parsePublished(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}
	return time.Now()
}

// extractMedia 提取条目引用的媒体资源
// 顺序：media:content扩展、media:thumbnail扩展、正文中的<img src>
func extractMedia(entry *gofeed.Item, content string) model.MediaRefs {
	var media model.MediaRefs

	if mediaExt, exists := entry.Extensions["media"]; exists {
		for _, ext := range mediaExt["content"] {
			url := ext.Attrs["url"]
			if url == "" {
				continue
			}
			switch {
			case strings.HasPrefix(ext.Attrs["type"], "image/"):
				media.Images = append(media.Images, url)
			case strings.HasPrefix(ext.Attrs["type"], "video/"):
				media.Videos = append(media.Videos, url)
			}
		}

		for _, ext := range mediaExt["thumbnail"] {
			if url := ext.Attrs["url"]; url != "" {
				media.Images = append(media.Images, url)
			}
		}
	}

	media.Images = append(media.Images, scanContentImages(content)...)
	return media
}

// scanContentImages 从正文HTML中扫描<img src>引用
func scanContentImages(content string) []string {
	if content == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		logger.Warn("解析正文HTML失败，跳过图片提取", "error", err)
		return nil
	}

	var urls []string
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if src, exists := sel.Attr("src"); exists && src != "" {
			urls = append(urls, src)
		}
	})
	return urls
}
