package render

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/diting-rss/diting/internal/infrastructure/logger"
)

// FooterText 邮件页脚的固定退订说明
const FooterText = "本邮件由谛听自动生成发送。如需退订，请回复“退订”。"

// 模板中可被替换的三个字面量占位符
const (
	tokenDate    = "{date}"
	tokenContent = "{content}"
	tokenFooter  = "{footer_text}"
)

// defaultTemplate 模板文件缺失时使用的内置模板
const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 800px;
            margin: 0 auto;
            padding: 20px;
        }
        h1 {
            color: #2c3e50;
            border-bottom: 2px solid #3498db;
            padding-bottom: 10px;
            text-align: center;
        }
        h2 {
            color: #2980b9;
            margin-top: 30px;
        }
        .content {
            background-color: #fff;
            padding: 20px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        footer {
            margin-top: 40px;
            padding-top: 20px;
            border-top: 1px solid #eee;
            color: #666;
            font-size: 0.9em;
            text-align: center;
        }
    </style>
</head>
<body>
    <h1>谛听日报 - {date}</h1>
    <div class="content">
        {content}
    </div>
    <footer>
        <p>{footer_text}</p>
    </footer>
</body>
</html>`

// Renderer 邮件HTML文档渲染器
type Renderer struct {
	templatePath string
}

// NewRenderer 创建渲染器，templatePath为外部模板文件路径，可为空
func NewRenderer(templatePath string) *Renderer {
	return &Renderer{templatePath: templatePath}
}

// RenderDocument 将正文HTML套入模板生成完整文档
// 只做三个字面量占位符的纯文本替换，不是通用模板引擎；
// 模板缺失时使用内置模板，替换再失败时退回极简骨架
func (r *Renderer) RenderDocument(content string) (document string) {
	date := time.Now().Format("2006-01-02")

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("格式化HTML内容时出错，使用极简模板", "error", rec)
			document = minimalDocument(date, content)
		}
	}()

	template := r.loadTemplate()

	document = strings.NewReplacer(
		tokenDate, date,
		tokenContent, content,
		tokenFooter, FooterText,
	).Replace(template)

	logger.Info("HTML内容格式化完成", "length", len(document))
	return document
}

// loadTemplate 读取外部模板，缺失或不可读时回退到内置模板
func (r *Renderer) loadTemplate() string {
	if r.templatePath == "" {
		return defaultTemplate
	}

	data, err := os.ReadFile(r.templatePath)
	if err != nil {
		logger.Warn("模板文件不可用，使用内置模板", "path", r.templatePath, "error", err)
		return defaultTemplate
	}

	return strings.TrimSpace(string(data))
}

// minimalDocument 极简HTML骨架，包含与模板相同的三个值
func minimalDocument(date, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <style>
        body { font-family: sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; }
    </style>
</head>
<body>
    <h1>谛听日报 - %s</h1>
    <div>%s</div>
    <footer><p>%s</p></footer>
</body>
</html>`, date, content, FooterText)
}
