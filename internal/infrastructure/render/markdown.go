package render

import (
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"

	"github.com/diting-rss/diting/internal/infrastructure/logger"
)

// sanitizePolicy 对转换结果做一次UGC级清洗，去掉脚本等不适合邮件的标签
var sanitizePolicy = bluemonday.UGCPolicy()

// MarkdownToHTML 将Markdown转换为HTML
// 启用围栏代码块、表格与换行转<br>扩展；任何转换异常回退为原始Markdown文本
func MarkdownToHTML(markdown string) (html string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Markdown转HTML失败，返回原始文本", "error", r)
			html = markdown
		}
	}()

	output := blackfriday.Run(
		[]byte(markdown),
		blackfriday.WithExtensions(blackfriday.CommonExtensions|blackfriday.HardLineBreak),
	)

	return string(sanitizePolicy.SanitizeBytes(output))
}
