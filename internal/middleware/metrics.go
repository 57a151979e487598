package middleware

import (
	"sync"
	"time"

	"github.com/diting-rss/diting/internal/infrastructure/logger"
)

// MetricsCollector 收集一次流水线运行的各阶段指标
type MetricsCollector struct {
	mu sync.RWMutex

	startTime time.Time

	// 抓取与处理统计
	sourcesTotal  int64
	sourcesFailed int64
	itemsFetched  int64
	itemsFiltered int64
	itemsRetained int64

	// 媒体统计
	imagesStored int64

	// 摘要API统计
	apiCalls    int64
	apiFailures int64

	// 投递统计
	delivered bool
}

// NewMetricsCollector 创建新的指标收集器
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{startTime: time.Now()}
}

// RecordSource 记录一个订阅源的处理结果
func (m *MetricsCollector) RecordSource(fetched int, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sourcesTotal++
	if failed {
		m.sourcesFailed++
	}
	m.itemsFetched += int64(fetched)
}

// RecordFilter 记录过滤阶段的结果
func (m *MetricsCollector) RecordFilter(retained, dropped int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.itemsRetained += int64(retained)
	m.itemsFiltered += int64(dropped)
}

// RecordImagesStored 记录落盘的图片数量
func (m *MetricsCollector) RecordImagesStored(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.imagesStored += int64(count)
}

// RecordAPICall 记录一次摘要API调用
func (m *MetricsCollector) RecordAPICall(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.apiCalls++
	if !success {
		m.apiFailures++
	}
}

// RecordDelivery 记录投递结果
func (m *MetricsCollector) RecordDelivery(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.delivered = success
}

// Report 一次运行的指标汇总
type Report struct {
	Duration      time.Duration
	SourcesTotal  int64
	SourcesFailed int64
	ItemsFetched  int64
	ItemsFiltered int64
	ItemsRetained int64
	ImagesStored  int64
	APICalls      int64
	APIFailures   int64
	Delivered     bool
}

// GetReport 获取指标汇总
func (m *MetricsCollector) GetReport() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Report{
		Duration:      time.Since(m.startTime),
		SourcesTotal:  m.sourcesTotal,
		SourcesFailed: m.sourcesFailed,
		ItemsFetched:  m.itemsFetched,
		ItemsFiltered: m.itemsFiltered,
		ItemsRetained: m.itemsRetained,
		ImagesStored:  m.imagesStored,
		APICalls:      m.apiCalls,
		APIFailures:   m.apiFailures,
		Delivered:     m.delivered,
	}
}

// LogMetrics 将运行指标写入日志
func LogMetrics(metrics *MetricsCollector) {
	report := metrics.GetReport()
	logger.Info("流水线运行统计",
		"duration", report.Duration,
		"sources_total", report.SourcesTotal,
		"sources_failed", report.SourcesFailed,
		"items_fetched", report.ItemsFetched,
		"items_filtered", report.ItemsFiltered,
		"items_retained", report.ItemsRetained,
		"images_stored", report.ImagesStored,
		"api_calls", report.APICalls,
		"api_failures", report.APIFailures,
		"delivered", report.Delivered,
	)
}
