package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diting-rss/diting/internal/domain/model"
	"github.com/diting-rss/diting/internal/domain/service"
	"github.com/diting-rss/diting/internal/infrastructure/ai"
	"github.com/diting-rss/diting/internal/infrastructure/database"
	"github.com/diting-rss/diting/internal/infrastructure/logger"
	"github.com/diting-rss/diting/internal/infrastructure/mail"
	"github.com/diting-rss/diting/internal/infrastructure/media"
	"github.com/diting-rss/diting/internal/infrastructure/render"
	"github.com/diting-rss/diting/internal/middleware"
)

// 抓取阶段的并发上限
const fetchConcurrency = 3

// ImageStore 暴露本次运行已落盘的图片列表
type ImageStore interface {
	StoredImages() []model.StoredImage
}

// DigestMailer 定义摘要投递接口
type DigestMailer interface {
	SendDailyReport(html string, images []model.StoredImage, date string) error
}

// DigestProcessorService 定义摘要流水线的应用服务接口
type DigestProcessorService interface {
	// ProcessDigest 执行一次完整的摘要流水线并返回最终HTML文档
	ProcessDigest(ctx context.Context, params model.PipelineParams) (string, error)
}

// digestProcessorService 实现DigestProcessorService接口
type digestProcessorService struct {
	feed     service.FeedService
	content  service.ContentService
	store    ImageStore
	summary  service.SummaryService
	renderer *render.Renderer
	mailer   DigestMailer

	validator *service.Validator
	metrics   *middleware.MetricsCollector

	// 数据库相关，仅在启用历史记录时初始化
	db         database.Database
	digestRepo database.DigestRepository
}

// meteredAIClient 包装摘要客户端，将每次调用计入运行指标
type meteredAIClient struct {
	inner service.AIClient
	proc  *digestProcessorService
}

func (c *meteredAIClient) Summarize(ctx context.Context, prompt string) (string, error) {
	out, err := c.inner.Summarize(ctx, prompt)
	if c.proc.metrics != nil {
		c.proc.metrics.RecordAPICall(err == nil)
	}
	return out, err
}

func (c *meteredAIClient) Name() string { return c.inner.Name() }

// NewDigestProcessorService 创建一个新的摘要流水线服务实例
// 各阶段组件在ProcessDigest时按参数构建
func NewDigestProcessorService() DigestProcessorService {
	return &digestProcessorService{validator: service.NewValidator()}
}

// NewDigestProcessorServiceWith 使用注入的组件创建流水线服务，用于测试
func NewDigestProcessorServiceWith(
	feed service.FeedService,
	content service.ContentService,
	store ImageStore,
	summary service.SummaryService,
	renderer *render.Renderer,
	mailer DigestMailer,
) DigestProcessorService {
	return &digestProcessorService{
		feed:      feed,
		content:   content,
		store:     store,
		summary:   summary,
		renderer:  renderer,
		mailer:    mailer,
		validator: service.NewValidator(),
	}
}

// ProcessDigest 执行一次完整的摘要流水线
// 流程：加载源 → 抓取 → 清洗过滤与媒体处理 → 分类聚合 → 摘要 → 渲染 → 投递 → 记录历史
// 单个源、单条新闻、单张图片、单个分类的失败都只影响自身；配置错误直接返回
func (s *digestProcessorService) ProcessDigest(ctx context.Context, params model.PipelineParams) (string, error) {
	logger.Info("开始处理每日新闻", "sources_count", len(params.Sources))
	defer logger.TimeTrack("ProcessDigest")()
	logger.LogMemStatsOnce()

	s.metrics = middleware.NewMetricsCollector()

	if err := s.setup(params); err != nil {
		return "", err
	}

	// 初始化数据库（如果启用）
	if params.Database.Enabled {
		if err := s.initDatabase(params.Database); err != nil {
			return "", fmt.Errorf("初始化数据库失败: %w", err)
		}
		defer func() {
			if s.db != nil {
				s.db.Close()
			}
		}()
	}

	sources, err := s.feed.LoadSources(params.Sources, params.OpmlFile)
	if err != nil {
		return "", err
	}
	if err := s.validator.ValidateSources(sources); err != nil {
		return "", fmt.Errorf("订阅源配置无效: %w", err)
	}
	if err := s.validator.ValidateEmail(params.Email); err != nil {
		return "", fmt.Errorf("邮件配置无效: %w", err)
	}

	// 抓取并清洗各订阅源，失败的源只产生空结果
	allItems := s.collectItems(ctx, sources, params.Rules, s.metrics)
	logger.Info("新闻收集完成", "items_count", len(allItems))

	// 分类聚合，顺序为分类首次出现顺序
	groups := service.Aggregate(allItems)

	// 生成Markdown摘要并渲染为HTML文档
	markdown := s.summary.GenerateDigest(ctx, groups)
	content := render.MarkdownToHTML(markdown)
	document := s.renderer.RenderDocument(content)

	images := s.store.StoredImages()
	s.metrics.RecordImagesStored(len(images))

	// 投递
	date := time.Now().Format("2006-01-02")
	deliveryErr := s.mailer.SendDailyReport(document, images, date)
	s.metrics.RecordDelivery(deliveryErr == nil)

	// 保存运行记录（如果启用）
	s.saveRecord(model.DigestRecord{
		RunDate:      date,
		Categories:   len(groups),
		Items:        len(allItems),
		Images:       len(images),
		DigestLength: len(document),
		Delivered:    deliveryErr == nil,
	})

	middleware.LogMetrics(s.metrics)

	if deliveryErr != nil {
		return document, fmt.Errorf("投递每日报告失败: %w", deliveryErr)
	}

	logger.Info("每日新闻处理完成", "digest_length", len(document))
	return document, nil
}

// setup 按参数构建未注入的阶段组件
func (s *digestProcessorService) setup(params model.PipelineParams) error {
	if s.feed == nil {
		s.feed = service.NewFeedService()
	}
	if s.content == nil || s.store == nil {
		resolver := media.NewResolver(params.ImageStoreDir)
		s.content = service.NewContentService(resolver)
		s.store = resolver
	}
	if s.summary == nil {
		apiKey, err := s.validator.GetAPIKey(&params.Summarizer)
		if err != nil {
			return err
		}
		params.Summarizer.APIKey = apiKey

		client := &meteredAIClient{inner: ai.NewClient(params.Summarizer), proc: s}
		s.summary = service.NewSummaryService(client, params.Summarizer.MaxCalls)
	}
	if s.renderer == nil {
		s.renderer = render.NewRenderer(params.TemplatePath)
	}
	if s.mailer == nil {
		s.mailer = mail.NewMailer(params.Email, params.ImageStoreDir)
	}
	return nil
}

// collectItems 并发抓取各订阅源并清洗
// 结果按输入源的顺序缓冲重排后拼接，保证分类首现顺序的确定性
func (s *digestProcessorService) collectItems(ctx context.Context, sources []model.SourceConfig, rules model.RulesConfig, metrics *middleware.MetricsCollector) []model.NewsItem {
	type sourceResult struct {
		index int
		items []model.NewsItem
	}

	resultChan := make(chan sourceResult, len(sources))
	semaphore := make(chan struct{}, fetchConcurrency)

	for i, source := range sources {
		go func(index int, src model.SourceConfig) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			fetched := s.feed.FetchSource(ctx, src)
			metrics.RecordSource(len(fetched), len(fetched) == 0)

			processed := s.content.Process(ctx, fetched, src.Type, rules)
			metrics.RecordFilter(len(processed), len(fetched)-len(processed))

			resultChan <- sourceResult{index: index, items: processed}
		}(i, source)
	}

	resultsMap := make(map[int][]model.NewsItem, len(sources))
	for range sources {
		result := <-resultChan
		resultsMap[result.index] = result.items
	}

	var allItems []model.NewsItem
	for i := range sources {
		allItems = append(allItems, resultsMap[i]...)
	}
	return allItems
}

// initDatabase 初始化摘要历史数据库
func (s *digestProcessorService) initDatabase(config model.DatabaseConfig) error {
	s.db = database.NewSQLiteDatabase(config.FilePath)
	if err := s.db.Init(); err != nil {
		return err
	}

	s.digestRepo = database.NewSQLiteDigestRepository(s.db)
	logger.Info("摘要历史数据库初始化成功")
	return nil
}

// saveRecord 保存运行记录，失败只记日志不影响流程
func (s *digestProcessorService) saveRecord(record model.DigestRecord) {
	if s.digestRepo == nil {
		return
	}
	if err := s.digestRepo.SaveDigest(record); err != nil {
		logger.Error("保存摘要运行记录失败", "error", err)
	}
}
