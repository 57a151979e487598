package model

import "time"

// SourceType 表示订阅源的内容类型
type SourceType string

const (
	// SourceTypeText 纯文本源
	SourceTypeText SourceType = "text"
	// SourceTypeImage 含图片的源
	SourceTypeImage SourceType = "image"
	// SourceTypeVideo 含视频的源
	SourceTypeVideo SourceType = "video"
)

// DefaultCategory 未指定分类时使用的默认分类
const DefaultCategory = "general"

// MediaRefs 表示一条新闻引用的媒体资源，按出现顺序排列
type MediaRefs struct {
	Images []string
	Videos []string
}

// NewsItem 表示一条订阅源新闻
type NewsItem struct {
	Title       string
	Link        string
	Description string
	Content     string
	Published   time.Time
	SourceName  string
	SourceType  SourceType
	Category    string
	Media       MediaRefs
}

// SourceConfig 表示一个订阅源的配置
type SourceConfig struct {
	Name     string     `mapstructure:"name"`
	URL      string     `mapstructure:"url"`
	Type     SourceType `mapstructure:"type"`
	Category string     `mapstructure:"category"`
}

// FilterRule 内容过滤规则，命中即丢弃整条新闻
type FilterRule struct {
	Pattern string `mapstructure:"pattern"`
}

// ContentLimits 单个文本字段的提取限制
type ContentLimits struct {
	MaxLength int `mapstructure:"max_length"`
}

// ExtractorRules 标题与摘要的提取规则
type ExtractorRules struct {
	Title   ContentLimits `mapstructure:"title"`
	Summary ContentLimits `mapstructure:"summary"`
}

// MediaPolicy 图片处理策略，视频不做处理
type MediaPolicy struct {
	MaxWidth  int    `mapstructure:"max_width"`
	MaxHeight int    `mapstructure:"max_height"`
	Format    string `mapstructure:"format"`
	Quality   int    `mapstructure:"quality"`
}

// RulesConfig 内容处理规则集
type RulesConfig struct {
	ContentFilters    []FilterRule   `mapstructure:"content_filters"`
	ContentExtractors ExtractorRules `mapstructure:"content_extractors"`
	ImageProcessing   MediaPolicy    `mapstructure:"image_processing"`
}

// SummarizerConfig 摘要后端的配置信息
type SummarizerConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APIUrl    string `mapstructure:"api_url"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
	MaxCalls  int    `mapstructure:"max_calls"`
	// Strategy 取值 auto/openai/http，auto 优先使用结构化客户端
	Strategy string `mapstructure:"strategy"`
}

// EmailConfig 邮件投递配置
type EmailConfig struct {
	SMTPServer      string   `mapstructure:"smtp_server"`
	SMTPPort        int      `mapstructure:"smtp_port"`
	Username        string   `mapstructure:"username"`
	Password        string   `mapstructure:"password"`
	Recipients      []string `mapstructure:"recipients"`
	SubjectTemplate string   `mapstructure:"subject_template"`
}

// DatabaseConfig 摘要历史数据库配置
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	FilePath string `mapstructure:"file_path"`
}

// CategoryGroup 一个分类下的新闻集合，保持首次出现顺序
type CategoryGroup struct {
	Category string
	Items    []NewsItem
}

// StoredImage 表示一张已落盘的图片
type StoredImage struct {
	SourceURL string
	Path      string
	Filename  string
}

// DigestRecord 表示一次摘要运行的历史记录
type DigestRecord struct {
	RunDate      string
	Categories   int
	Items        int
	Images       int
	DigestLength int
	Delivered    bool
}

// PipelineParams 包含一次摘要流水线运行所需的全部参数
type PipelineParams struct {
	Sources       []SourceConfig
	OpmlFile      string
	Rules         RulesConfig
	Summarizer    SummarizerConfig
	Email         EmailConfig
	TemplatePath  string
	ImageStoreDir string
	Database      DatabaseConfig
	OutputFile    string
}
