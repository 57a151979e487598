package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diting-rss/diting/internal/domain/model"
)

const testFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>测试频道</title>
    <item>
      <title>测试新闻标题</title>
      <link>https://example.com/news/1</link>
      <description><![CDATA[<p>测试描述 <img src="https://example.com/inline.png"/></p>]]></description>
      <pubDate>Mon, 01 Sep 2025 10:00:00 GMT</pubDate>
      <media:content url="https://example.com/photo.jpg" type="image/jpeg"/>
      <media:content url="https://example.com/clip.mp4" type="video/mp4"/>
      <media:thumbnail url="https://example.com/thumb.jpg"/>
    </item>
  </channel>
</rss>`

func TestFetchSourceParsesItemsAndMedia(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeedXML))
	}))
	defer server.Close()

	svc := NewFeedService()
	items := svc.FetchSource(context.Background(), model.SourceConfig{
		Name: "测试源",
		URL:  server.URL,
		Type: model.SourceTypeImage,
	})

	require.Len(t, items, 1)
	item := items[0]

	assert.Equal(t, "测试新闻标题", item.Title)
	assert.Equal(t, "https://example.com/news/1", item.Link)
	assert.Equal(t, "测试源", item.SourceName)
	assert.Equal(t, model.SourceTypeImage, item.SourceType)
	// 未配置分类时落入默认分类
	assert.Equal(t, model.DefaultCategory, item.Category)
	assert.Equal(t, 2025, item.Published.Year())

	// 媒体提取顺序：media:content、media:thumbnail、正文<img>
	assert.Equal(t, []string{
		"https://example.com/photo.jpg",
		"https://example.com/thumb.jpg",
		"https://example.com/inline.png",
	}, item.Media.Images)
	assert.Equal(t, []string{"https://example.com/clip.mp4"}, item.Media.Videos)
}

func TestFetchSourceAbsorbsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewFeedService()

	assert.Empty(t, svc.FetchSource(context.Background(), model.SourceConfig{
		Name: "坏源", URL: server.URL, Type: model.SourceTypeText,
	}))

	// 无法连接的地址同样只返回空列表
	assert.Empty(t, svc.FetchSource(context.Background(), model.SourceConfig{
		Name: "离线源", URL: "http://127.0.0.1:1", Type: model.SourceTypeText,
	}))
}

func TestFetchSourceRejectsNonFeedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not xml at all"))
	}))
	defer server.Close()

	svc := NewFeedService()
	assert.Empty(t, svc.FetchSource(context.Background(), model.SourceConfig{
		Name: "坏格式源", URL: server.URL, Type: model.SourceTypeText,
	}))
}

func TestLoadSourcesMergesOpml(t *testing.T) {
	opmlContent := `<?xml version="1.0" encoding="UTF-8"?>
<opml version="1.0">
  <head><title>订阅</title></head>
  <body>
    <outline text="分组">
      <outline text="嵌套源" title="嵌套源" type="rss" xmlUrl="https://example.com/nested.xml"/>
    </outline>
    <outline text="顶层源" title="顶层源" type="rss" xmlUrl="https://example.com/top.xml"/>
  </body>
</opml>`

	opmlFile := filepath.Join(t.TempDir(), "subs.opml")
	require.NoError(t, os.WriteFile(opmlFile, []byte(opmlContent), 0644))

	configured := []model.SourceConfig{
		{Name: "配置源", URL: "https://example.com/rss.xml", Type: model.SourceTypeText},
	}

	svc := NewFeedService()
	merged, err := svc.LoadSources(configured, opmlFile)

	require.NoError(t, err)
	require.Len(t, merged, 3)
	assert.Equal(t, "配置源", merged[0].Name)
	assert.Equal(t, "嵌套源", merged[1].Name)
	assert.Equal(t, "顶层源", merged[2].Name)
	// OPML导入的源一律按文本源处理
	assert.Equal(t, model.SourceTypeText, merged[1].Type)
}

func TestLoadSourcesWithoutOpml(t *testing.T) {
	configured := []model.SourceConfig{
		{Name: "配置源", URL: "https://example.com/rss.xml", Type: model.SourceTypeText},
	}

	svc := NewFeedService()
	merged, err := svc.LoadSources(configured, "")

	require.NoError(t, err)
	assert.Equal(t, configured, merged)
}

func TestLoadSourcesBadOpmlFails(t *testing.T) {
	svc := NewFeedService()
	_, err := svc.LoadSources(nil, filepath.Join(t.TempDir(), "missing.opml"))
	assert.Error(t, err)
}
