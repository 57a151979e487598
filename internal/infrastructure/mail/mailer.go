package mail

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/diting-rss/diting/internal/domain/model"
	"github.com/diting-rss/diting/internal/infrastructure/logger"
)

// defaultSubjectTemplate 未配置主题模板时的默认值
const defaultSubjectTemplate = "谛听日报 - {date}"

// Sender 抽象邮件发送动作，便于测试时替换真实SMTP拨号
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer 邮件组装与投递器
type Mailer struct {
	config   model.EmailConfig
	storeDir string
	sender   Sender
}

// NewMailer 创建邮件投递器
// storeDir为图片存储目录，仅作为未传入图片列表时的兼容扫描路径
func NewMailer(config model.EmailConfig, storeDir string) *Mailer {
	dialer := gomail.NewDialer(config.SMTPServer, config.SMTPPort, config.Username, config.Password)
	dialer.SSL = true

	return &Mailer{
		config:   config,
		storeDir: storeDir,
		sender:   dialer,
	}
}

// NewMailerWithSender 使用自定义发送器创建邮件投递器
func NewMailerWithSender(config model.EmailConfig, storeDir string, sender Sender) *Mailer {
	return &Mailer{config: config, storeDir: storeDir, sender: sender}
}

// SendDailyReport 组装并发送每日报告
func (m *Mailer) SendDailyReport(html string, images []model.StoredImage, date string) error {
	logger.Info("开始准备发送每日报告", "recipients", len(m.config.Recipients), "images", len(images))

	msg := m.Assemble(html, images, date)

	logger.Info("正在连接SMTP服务器", "server", m.config.SMTPServer, "port", m.config.SMTPPort)
	if err := m.sender.DialAndSend(msg); err != nil {
		logger.Error("邮件发送失败", "error", err)
		return fmt.Errorf("邮件发送失败: %w", err)
	}

	logger.Info("邮件发送成功", "recipients", strings.Join(m.config.Recipients, ", "))
	return nil
}

// Assemble 构建最终的多部分邮件：HTML正文加逐张内嵌图片
// 优先使用本次运行解析出的图片列表；列表为空时扫描存储目录作为兼容路径
func (m *Mailer) Assemble(html string, images []model.StoredImage, date string) *gomail.Message {
	subject := m.config.SubjectTemplate
	if subject == "" {
		subject = defaultSubjectTemplate
	}
	subject = strings.ReplaceAll(subject, "{date}", date)

	msg := gomail.NewMessage()
	msg.SetHeader("Subject", subject)
	msg.SetHeader("From", m.config.Username)
	msg.SetHeader("To", m.config.Recipients...)
	msg.SetBody("text/html", html)

	if len(images) == 0 {
		images = m.scanStoreDir()
	}

	attached := 0
	for _, img := range images {
		if err := embedImage(msg, img); err != nil {
			logger.Error("添加图片附件时出错", "file", img.Filename, "error", err)
			continue
		}
		attached++
	}

	if attached > 0 {
		logger.Info("图片附件添加完成", "count", attached)
	}
	return msg
}

// embedImage 将单张图片作为内联部分加入邮件
// 内容标识头取自文件名，处置方式为inline；文件在组装时读入内存，
// 读取失败只影响该图片
func embedImage(msg *gomail.Message, img model.StoredImage) error {
	data, err := os.ReadFile(img.Path)
	if err != nil {
		return fmt.Errorf("读取图片文件失败: %w", err)
	}

	msg.Embed(img.Filename,
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, werr := w.Write(data)
			return werr
		}),
		gomail.SetHeader(map[string][]string{
			"Content-Type": {mimeTypeForExt(filepath.Ext(img.Filename))},
		}),
	)

	logger.Debug("成功添加图片附件", "file", img.Filename)
	return nil
}

// scanStoreDir 扫描图片存储目录（兼容路径）
func (m *Mailer) scanStoreDir() []model.StoredImage {
	if m.storeDir == "" {
		return nil
	}

	entries, err := os.ReadDir(m.storeDir)
	if err != nil {
		return nil
	}

	var images []model.StoredImage
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg", ".gif":
			images = append(images, model.StoredImage{
				Path:     filepath.Join(m.storeDir, entry.Name()),
				Filename: entry.Name(),
			})
		}
	}

	if len(images) > 0 {
		logger.Info("从存储目录扫描到图片附件", "count", len(images))
	}
	return images
}

// mimeTypeForExt 根据文件扩展名确定MIME类型，未知扩展名按二进制处理
func mimeTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
