package media

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diting-rss/diting/internal/domain/model"
)

// newPNGServer 返回一个提供指定尺寸PNG图片的测试服务器
func newPNGServer(t *testing.T, width, height int) *httptest.Server {
	t.Helper()

	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	require.NoError(t, png.Encode(&buf, img))

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	}))
}

func TestResolveScalesToFitAndReencodes(t *testing.T) {
	server := newPNGServer(t, 100, 40)
	defer server.Close()

	resolver := NewResolver(t.TempDir())
	policy := model.MediaPolicy{MaxWidth: 50, MaxHeight: 50, Format: "jpeg", Quality: 80}

	resolved := resolver.Resolve(context.Background(), model.MediaRefs{
		Images: []string{server.URL + "/photo.png"},
	}, policy)

	require.Len(t, resolved.Images, 1)

	data, err := os.ReadFile(resolved.Images[0])
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)

	// 等比缩放到限定框内：100x40 → 50x20
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())
}

func TestResolveNeverUpscales(t *testing.T) {
	server := newPNGServer(t, 20, 20)
	defer server.Close()

	resolver := NewResolver(t.TempDir())
	policy := model.MediaPolicy{MaxWidth: 100, MaxHeight: 100, Format: "png"}

	resolved := resolver.Resolve(context.Background(), model.MediaRefs{
		Images: []string{server.URL + "/small.png"},
	}, policy)

	require.Len(t, resolved.Images, 1)

	data, err := os.ReadFile(resolved.Images[0])
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())
}

func TestResolveContentAddressIsStable(t *testing.T) {
	server := newPNGServer(t, 10, 10)
	defer server.Close()

	resolver := NewResolver(t.TempDir())
	policy := model.MediaPolicy{Format: "jpeg"}
	url := server.URL + "/same.png"

	first := resolver.Resolve(context.Background(), model.MediaRefs{Images: []string{url}}, policy)
	second := resolver.Resolve(context.Background(), model.MediaRefs{Images: []string{url}}, policy)

	require.Len(t, first.Images, 1)
	require.Len(t, second.Images, 1)
	// 同一URL在两次运行中落到同一文件名
	assert.Equal(t, first.Images[0], second.Images[0])

	stored := resolver.StoredImages()
	require.Len(t, stored, 2)
	assert.Equal(t, stored[0].Filename, stored[1].Filename)
	assert.Equal(t, url, stored[0].SourceURL)
}

func TestResolvePassesVideosThrough(t *testing.T) {
	resolver := NewResolver(t.TempDir())

	resolved := resolver.Resolve(context.Background(), model.MediaRefs{
		Videos: []string{"https://example.com/clip.mp4"},
	}, model.MediaPolicy{})

	assert.Equal(t, []string{"https://example.com/clip.mp4"}, resolved.Videos)
	assert.Empty(t, resolved.Images)
}

func TestResolveSkipsFailedImages(t *testing.T) {
	okServer := newPNGServer(t, 10, 10)
	defer okServer.Close()

	badServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer badServer.Close()

	resolver := NewResolver(t.TempDir())
	policy := model.MediaPolicy{Format: "jpeg"}

	resolved := resolver.Resolve(context.Background(), model.MediaRefs{
		Images: []string{
			badServer.URL + "/missing.png",
			okServer.URL + "/ok.png",
		},
	}, policy)

	// 失败的图片直接省略，不留占位
	require.Len(t, resolved.Images, 1)
	assert.Len(t, resolver.StoredImages(), 1)
}

func TestNormalizeFormat(t *testing.T) {
	assert.Equal(t, "jpeg", normalizeFormat(""))
	assert.Equal(t, "jpeg", normalizeFormat("jpg"))
	assert.Equal(t, "jpeg", normalizeFormat("JPEG"))
	assert.Equal(t, "png", normalizeFormat("png"))
	assert.Equal(t, "gif", normalizeFormat("GIF"))
	assert.Equal(t, "jpeg", normalizeFormat("webp"))
}
