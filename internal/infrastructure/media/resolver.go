package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"github.com/diting-rss/diting/internal/domain/model"
	"github.com/diting-rss/diting/internal/infrastructure/logger"
)

const (
	// downloadTimeout 单张图片的下载超时时间
	downloadTimeout = 30 * time.Second
	// defaultQuality 未配置时的JPEG编码质量
	defaultQuality = 85
)

// Resolver 图片解析器：下载、缩放、转码并落盘为内容寻址文件
// 实现domain/service.MediaResolver接口
type Resolver struct {
	storeDir string
	client   *http.Client

	// 串行化对存储目录的写入，并记录本次运行落盘的图片
	mu     sync.Mutex
	stored []model.StoredImage
}

// NewResolver 创建图片解析器，storeDir为图片存储目录
func NewResolver(storeDir string) *Resolver {
	return &Resolver{
		storeDir: storeDir,
		client:   &http.Client{Timeout: downloadTimeout},
	}
}

// StoredImages 返回本次运行已落盘的图片列表，顺序与处理顺序一致
func (r *Resolver) StoredImages() []model.StoredImage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.StoredImage(nil), r.stored...)
}

// Resolve 处理一组媒体引用
// 视频原样透传；每个图片URL各自尝试处理，失败的直接省略不占位
func (r *Resolver) Resolve(ctx context.Context, media model.MediaRefs, policy model.MediaPolicy) model.MediaRefs {
	resolved := model.MediaRefs{Videos: media.Videos}

	for _, imgURL := range media.Images {
		stored, err := r.resolveImage(ctx, imgURL, policy)
		if err != nil {
			logger.Error("处理图片时出错", "url", imgURL, "error", err)
			continue
		}
		resolved.Images = append(resolved.Images, stored.Path)
	}

	return resolved
}

// resolveImage 处理单张图片：下载、解码、缩放、转码、落盘
func (r *Resolver) resolveImage(ctx context.Context, imgURL string, policy model.MediaPolicy) (model.StoredImage, error) {
	data, err := r.download(ctx, imgURL)
	if err != nil {
		return model.StoredImage{}, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return model.StoredImage{}, fmt.Errorf("解码图片失败: %w", err)
	}

	img = fitBounds(img, policy.MaxWidth, policy.MaxHeight)

	targetFormat := normalizeFormat(policy.Format)
	if format != targetFormat {
		// 转码前统一转换为RGBA，保证编码器兼容
		img = toRGBA(img)
	}

	encoded, err := encode(img, targetFormat, policy.Quality)
	if err != nil {
		return model.StoredImage{}, err
	}

	filename := contentAddress(imgURL) + "." + targetFormat
	stored, err := r.persist(filename, imgURL, encoded)
	if err != nil {
		return model.StoredImage{}, err
	}

	logger.Debug("图片处理完成", "url", imgURL, "file", stored.Path, "size_bytes", len(encoded))
	return stored, nil
}

// download 下载图片字节
func (r *Resolver) download(ctx context.Context, imgURL string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, imgURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建图片请求失败: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("下载图片失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("图片下载返回异常状态码: %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("读取图片数据失败: %w", err)
	}
	return buf.Bytes(), nil
}

// fitBounds 将图片等比缩放到限定框内，尺寸未超限时原样返回，从不放大
func fitBounds(img image.Image, maxWidth, maxHeight int) image.Image {
	if maxWidth <= 0 || maxHeight <= 0 {
		return img
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= maxWidth && height <= maxHeight {
		return img
	}

	scaleW := float64(maxWidth) / float64(width)
	scaleH := float64(maxHeight) / float64(height)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}

	newWidth := int(float64(width)*scale + 0.5)
	newHeight := int(float64(height)*scale + 0.5)
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// toRGBA 将任意解码结果转换为RGBA
func toRGBA(img image.Image) image.Image {
	if _, ok := img.(*image.RGBA); ok {
		return img
	}
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Copy(dst, image.Point{}, img, bounds, draw.Over, nil)
	return dst
}

// encode 按目标格式编码图片
func encode(img image.Image, format string, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = defaultQuality
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return nil, fmt.Errorf("编码图片失败: %w", err)
	}
	return buf.Bytes(), nil
}

// persist 将编码结果写入存储目录，写入在解析器内串行执行
func (r *Resolver) persist(filename, sourceURL string, data []byte) (model.StoredImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.storeDir, 0755); err != nil {
		return model.StoredImage{}, fmt.Errorf("创建图片存储目录失败: %w", err)
	}

	path := filepath.Join(r.storeDir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return model.StoredImage{}, fmt.Errorf("写入图片文件失败: %w", err)
	}

	stored := model.StoredImage{SourceURL: sourceURL, Path: path, Filename: filename}
	r.stored = append(r.stored, stored)
	return stored, nil
}

// contentAddress 基于URL字节计算稳定的内容地址
// 固定使用SHA-256保证跨进程、跨运行的同一URL落到同一文件名
func contentAddress(imgURL string) string {
	sum := sha256.Sum256([]byte(imgURL))
	return hex.EncodeToString(sum[:])[:32]
}

// normalizeFormat 规整目标编码格式名
func normalizeFormat(format string) string {
	switch strings.ToLower(format) {
	case "png":
		return "png"
	case "gif":
		return "gif"
	case "jpg", "jpeg", "":
		return "jpeg"
	default:
		return "jpeg"
	}
}
