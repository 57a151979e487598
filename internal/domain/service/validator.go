package service

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/diting-rss/diting/internal/domain/model"
)

// Validator 提供配置输入验证功能
type Validator struct{}

// NewValidator 创建新的验证器实例
func NewValidator() *Validator {
	return &Validator{}
}

// urlRegex 订阅源URL的基本格式
var urlRegex = regexp.MustCompile(`^https?://[a-zA-Z0-9\-\.]+\.[a-zA-Z]{2,}(?::\d+)?(?:[/\w\.\-%?=&#]*)*/?$`)

// ValidateSources 验证订阅源列表的完整性
func (v *Validator) ValidateSources(sources []model.SourceConfig) error {
	if len(sources) == 0 {
		return errors.New("订阅源列表为空")
	}

	for _, source := range sources {
		if strings.TrimSpace(source.Name) == "" {
			return fmt.Errorf("订阅源缺少名称: %s", source.URL)
		}
		if err := v.ValidateURL(source.URL); err != nil {
			return fmt.Errorf("订阅源 %s 的URL无效: %w", source.Name, err)
		}
		switch source.Type {
		case model.SourceTypeText, model.SourceTypeImage, model.SourceTypeVideo:
		default:
			return fmt.Errorf("订阅源 %s 的类型无效: %s", source.Name, source.Type)
		}
	}

	return nil
}

// ValidateURL 验证订阅源URL合法性
func (v *Validator) ValidateURL(url string) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("URL不能为空")
	}

	lowerURL := strings.ToLower(url)
	if !strings.HasPrefix(lowerURL, "http://") && !strings.HasPrefix(lowerURL, "https://") {
		return fmt.Errorf("只允许HTTP/HTTPS协议: %s", url)
	}

	if !urlRegex.MatchString(url) {
		return fmt.Errorf("无效的URL格式: %s", url)
	}

	return nil
}

// ValidateTemplatePath 验证邮件模板路径
// 路径为空或文件不存在不算错误（渲染层会回退到内置模板），指向目录才报错
func (v *Validator) ValidateTemplatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if info.IsDir() {
		return fmt.Errorf("模板路径指向目录而非文件: %s", path)
	}

	return nil
}

// ValidateEmail 验证邮件投递配置
func (v *Validator) ValidateEmail(config model.EmailConfig) error {
	if strings.TrimSpace(config.SMTPServer) == "" {
		return errors.New("未配置SMTP服务器地址")
	}
	if config.SMTPPort <= 0 || config.SMTPPort > 65535 {
		return fmt.Errorf("无效的SMTP端口: %d", config.SMTPPort)
	}
	if len(config.Recipients) == 0 {
		return errors.New("收件人列表为空")
	}
	return nil
}

// GetAPIKey 安全获取摘要后端API密钥，优先从环境变量读取
func (v *Validator) GetAPIKey(config *model.SummarizerConfig) (string, error) {
	if apiKey := os.Getenv("DITING_API_KEY"); apiKey != "" {
		return apiKey, nil
	}

	if config == nil || config.APIKey == "" {
		return "", errors.New("未找到摘要后端API密钥配置，请设置环境变量: export DITING_API_KEY=your-key-here")
	}

	if strings.Contains(config.APIKey, "****") {
		return "", errors.New("检测到占位符API密钥，请使用环境变量设置真实密钥")
	}

	return config.APIKey, nil
}
