package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DRSN-tech/product-search/internal/cfg"
	"github.com/DRSN-tech/product-search/internal/domain"
	"github.com/DRSN-tech/product-search/internal/infrastructure"
	"github.com/DRSN-tech/product-search/internal/usecase"
	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/DRSN-tech/product-search/pkg/logger"
	"github.com/sethvargo/go-retry"
)

const (
	// maxImageSize ограничение размера скачиваемого изображения
	maxImageSize = 20 << 20

	downloadRetries   = 2
	downloadBaseDelay = 200 * time.Millisecond
	imagesPrefix      = "images"
)

// MinioInfrastructure получает изображения товаров и зеркалирует их в бакет.
type MinioInfrastructure struct {
	minioRepo  usecase.ImageRepository
	cfg        *cfg.MinIOCfg
	httpClient *http.Client
	logger     logger.Logger
}

func NewMinioInfrastructure(minioRepo usecase.ImageRepository, cfg *cfg.MinIOCfg, httpClient *http.Client, logger logger.Logger) *MinioInfrastructure {
	return &MinioInfrastructure{
		minioRepo:  minioRepo,
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger,
	}
}

// FetchImage читает изображение по URL. Ссылки на собственный бакет читаются
// напрямую из MinIO, остальные скачиваются по HTTP.
func (m *MinioInfrastructure) FetchImage(ctx context.Context, imageURL string) (*usecase.FetchedImage, error) {
	const op = "MinioInfrastructure.FetchImage"

	if key, ok := m.objectKey(imageURL); ok {
		data, contentType, err := m.minioRepo.Download(ctx, key)
		if err != nil {
			return nil, e.Wrap(op, err)
		}
		return &usecase.FetchedImage{
			Data:        data,
			ContentType: infrastructure.DetectImageMIME(data, contentType),
			StoredURL:   imageURL,
		}, nil
	}

	img, err := retry.DoValue(ctx, m.backoff(), func(ctx context.Context) (*usecase.FetchedImage, error) {
		return m.download(ctx, imageURL)
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return img, nil
}

// StoreImage кладёт изображение в бакет под детерминированным ключом
// images/<id>.<ext> и возвращает его публичный URL.
// Уже лежащие в бакете изображения повторно не загружаются.
func (m *MinioInfrastructure) StoreImage(ctx context.Context, productID string, img *usecase.FetchedImage) (string, error) {
	const op = "MinioInfrastructure.StoreImage"

	if img.StoredURL != "" {
		return img.StoredURL, nil
	}

	ext, err := infrastructure.GetExtensionFromMIME(img.ContentType)
	if err != nil {
		m.logger.Warnf("unknown image type %q for product %s, storing as .%s", img.ContentType, productID, ext)
	}

	key := ObjectKey(productID, ext)
	if _, err := m.minioRepo.Upload(ctx, domain.NewImage(key, img.Data, img.ContentType)); err != nil {
		return "", e.Wrap(op, err)
	}

	return m.publicURL(key), nil
}

// ObjectKey возвращает ключ объекта изображения товара.
func ObjectKey(productID, ext string) string {
	return fmt.Sprintf("%s/%s.%s", imagesPrefix, productID, ext)
}

func (m *MinioInfrastructure) download(ctx context.Context, imageURL string) (*usecase.FetchedImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, e.Join("bad image url", e.ErrValidation, err)
	}

	res, err := m.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, retry.RetryableError(e.Join("download", e.ErrTransientIO, err))
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("download %s: status %d", imageURL, res.StatusCode)
		switch {
		case res.StatusCode >= http.StatusInternalServerError || res.StatusCode == http.StatusTooManyRequests:
			return nil, retry.RetryableError(e.Wrap(msg, e.ErrTransientIO))
		case res.StatusCode == http.StatusNotFound || res.StatusCode == http.StatusGone:
			// изображения больше нет, повторная доставка не поможет
			return nil, e.Wrap(msg, e.ErrValidation)
		default:
			return nil, e.Wrap(msg, e.ErrTransientIO)
		}
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxImageSize+1))
	if err != nil {
		return nil, retry.RetryableError(e.Join("read body", e.ErrTransientIO, err))
	}
	if len(data) > maxImageSize {
		return nil, e.Join("image too large", e.ErrValidation, e.ErrFileTooLarge)
	}

	return &usecase.FetchedImage{
		Data:        data,
		ContentType: infrastructure.DetectImageMIME(data, res.Header.Get("Content-Type")),
	}, nil
}

func (m *MinioInfrastructure) backoff() retry.Backoff {
	return retry.WithMaxRetries(downloadRetries, retry.WithJitterPercent(20, retry.NewExponential(downloadBaseDelay)))
}

// objectKey возвращает ключ объекта, если URL указывает внутрь нашего бакета.
func (m *MinioInfrastructure) objectKey(imageURL string) (string, bool) {
	prefix := m.cfg.PublicBaseURL + "/"
	if m.cfg.PublicBaseURL == "" || !strings.HasPrefix(imageURL, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(imageURL, prefix)
	return key, key != ""
}

func (m *MinioInfrastructure) publicURL(key string) string {
	return m.cfg.PublicBaseURL + "/" + key
}
