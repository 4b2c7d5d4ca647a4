package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"nainong/internal/utils"

	"resty.dev/v3"
)

const (
	coverColorTTL       = 24 * time.Hour
	coverFailureTTL     = 10 * time.Minute
	coverLighten        = 0.3
	coverMaxImageBytes  = 10 << 20
	coverRequestTimeout = 10 * time.Second
)

// CoverColorService 计算文章封面图的主色调（提亮后用作背景色），结果按图片地址缓存
// 取色失败的地址在 coverFailureTTL 内不再请求
type CoverColorService struct {
	client *resty.Client
	cache  *utils.TTLCache[string]
	failed *utils.TTLCache[error]
}

func NewCoverColorService(cacheSize int) (*CoverColorService, error) {
	return newCoverColorService(cacheSize, coverMaxImageBytes)
}

func newCoverColorService(cacheSize int, maxBytes int64) (*CoverColorService, error) {
	cache, err := utils.NewTTLCache[string](cacheSize, coverColorTTL, nil)
	if err != nil {
		return nil, err
	}
	failed, err := utils.NewTTLCache[error](cacheSize, coverFailureTTL, nil)
	if err != nil {
		return nil, err
	}
	client := resty.New().
		SetTimeout(coverRequestTimeout).
		SetResponseBodyLimit(maxBytes).
		SetHeader("Accept", "image/*")
	return &CoverColorService{client: client, cache: cache, failed: failed}, nil
}

func (s *CoverColorService) Close() error {
	return s.client.Close()
}

// Tint returns the lightened dominant colour of the image at coverURL, or "" when the
// image cannot be fetched or decoded.
func (s *CoverColorService) Tint(ctx context.Context, coverURL string) string {
	if coverURL == "" {
		return ""
	}
	if color, ok := s.cache.Get(coverURL); ok {
		return color
	}
	if _, ok := s.failed.Get(coverURL); ok {
		return ""
	}

	color, err := s.extract(ctx, coverURL)
	if err != nil {
		log.Printf("cover colour for %s: %v", coverURL, err)
		// 请求被取消不算图片的问题
		if ctx.Err() == nil {
			s.failed.Set(coverURL, err)
		}
		return ""
	}
	tint := utils.LightenColor(color, coverLighten)
	s.cache.Set(coverURL, tint)
	return tint
}

func (s *CoverColorService) extract(ctx context.Context, coverURL string) (string, error) {
	res, err := s.client.R().WithContext(ctx).Get(coverURL)
	if err != nil {
		return "", fmt.Errorf("fetch cover: %w", err)
	}
	if res.IsError() {
		return "", fmt.Errorf("fetch cover: status %d", res.StatusCode())
	}
	return utils.DecodeDominantColor(bytes.NewReader(res.Bytes()))
}
