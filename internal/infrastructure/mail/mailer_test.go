package mail

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/diting-rss/diting/internal/domain/model"
)

type stubSender struct {
	msgs []*gomail.Message
	err  error
}

func (s *stubSender) DialAndSend(m ...*gomail.Message) error {
	s.msgs = append(s.msgs, m...)
	return s.err
}

func testEmailConfig() model.EmailConfig {
	return model.EmailConfig{
		SMTPServer: "smtp.example.com",
		SMTPPort:   465,
		Username:   "diting@example.com",
		Password:   "secret",
		Recipients: []string{"a@example.com", "b@example.com"},
	}
}

// writeTestImage 在临时目录写入一张图片文件并返回其存储引用
func writeTestImage(t *testing.T, dir, name string) model.StoredImage {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}, 0644))
	return model.StoredImage{SourceURL: "https://example.com/" + name, Path: path, Filename: name}
}

func TestAssembleSubjectAndRecipients(t *testing.T) {
	mailer := NewMailerWithSender(testEmailConfig(), "", &stubSender{})

	msg := mailer.Assemble("<p>hello</p>", nil, "2025-09-01")

	assert.Equal(t, []string{"谛听日报 - 2025-09-01"}, msg.GetHeader("Subject"))
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"diting@example.com"}, msg.GetHeader("From"))
}

func TestAssembleCustomSubjectTemplate(t *testing.T) {
	config := testEmailConfig()
	config.SubjectTemplate = "新闻速递 {date} 晚间版"
	mailer := NewMailerWithSender(config, "", &stubSender{})

	msg := mailer.Assemble("<p>hello</p>", nil, "2025-09-01")

	assert.Equal(t, []string{"新闻速递 2025-09-01 晚间版"}, msg.GetHeader("Subject"))
}

func TestAssembleEmbedsInlineImages(t *testing.T) {
	dir := t.TempDir()
	images := []model.StoredImage{
		writeTestImage(t, dir, "photo1.jpeg"),
		writeTestImage(t, dir, "photo2.png"),
	}

	mailer := NewMailerWithSender(testEmailConfig(), "", &stubSender{})
	msg := mailer.Assemble("<p>hello</p>", images, "2025-09-01")

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()

	assert.Contains(t, out, "<p>hello</p>")
	assert.Contains(t, out, "Content-Type: image/jpeg")
	assert.Contains(t, out, "Content-Type: image/png")
	assert.Contains(t, out, "photo1.jpeg")
	assert.Contains(t, out, "Content-Disposition: inline")
	assert.Contains(t, out, "Content-ID")
}

func TestAssembleSkipsUnreadableImages(t *testing.T) {
	dir := t.TempDir()
	images := []model.StoredImage{
		{Path: filepath.Join(dir, "missing.jpeg"), Filename: "missing.jpeg"},
		writeTestImage(t, dir, "ok.jpeg"),
	}

	mailer := NewMailerWithSender(testEmailConfig(), "", &stubSender{})
	msg := mailer.Assemble("<p>hello</p>", images, "2025-09-01")

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()

	assert.Contains(t, out, "ok.jpeg")
	assert.NotContains(t, out, "missing.jpeg")
}

func TestAssembleScansStoreDirWhenNoImagesGiven(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, dir, "scanned.png")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644))

	mailer := NewMailerWithSender(testEmailConfig(), dir, &stubSender{})
	msg := mailer.Assemble("<p>hello</p>", nil, "2025-09-01")

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()

	assert.Contains(t, out, "scanned.png")
	assert.NotContains(t, out, "notes.txt")
}

func TestSendDailyReport(t *testing.T) {
	sender := &stubSender{}
	mailer := NewMailerWithSender(testEmailConfig(), "", sender)

	require.NoError(t, mailer.SendDailyReport("<p>hello</p>", nil, "2025-09-01"))
	assert.Len(t, sender.msgs, 1)
}

func TestSendDailyReportPropagatesFailure(t *testing.T) {
	sender := &stubSender{err: errors.New("connection refused")}
	mailer := NewMailerWithSender(testEmailConfig(), "", sender)

	err := mailer.SendDailyReport("<p>hello</p>", nil, "2025-09-01")
	assert.Error(t, err)
}

func TestMimeTypeForExt(t *testing.T) {
	assert.Equal(t, "image/jpeg", mimeTypeForExt(".jpg"))
	assert.Equal(t, "image/jpeg", mimeTypeForExt(".JPEG"))
	assert.Equal(t, "image/png", mimeTypeForExt(".png"))
	assert.Equal(t, "image/gif", mimeTypeForExt(".gif"))
	assert.Equal(t, "application/octet-stream", mimeTypeForExt(".webp"))
}
