package minio

import (
	"bytes"
	"context"
	"io"

	"github.com/DRSN-tech/product-search/internal/cfg"
	"github.com/DRSN-tech/product-search/internal/domain"
	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

// ImageRepo реализует репозиторий изображений поверх MinIO.
type ImageRepo struct {
	mc  *minio.Client
	cfg *cfg.MinIOCfg
}

func NewImageRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *ImageRepo {
	return &ImageRepo{
		mc:  mc,
		cfg: cfg,
	}
}

// Upload загружает изображение в MinIO и возвращает ключ объекта.
// Повторная загрузка по тому же ключу перезаписывает объект.
func (i *ImageRepo) Upload(ctx context.Context, image *domain.Image) (string, error) {
	reader := bytes.NewReader(image.Data)

	info, err := i.mc.PutObject(ctx, i.cfg.BucketName, image.ObjectKey, reader, image.Size, minio.PutObjectOptions{
		ContentType: image.ContentType,
	})
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), e.Join(image.ObjectKey, e.ErrStoreUnavailable, err))
	}

	return info.Key, nil
}

// Download читает объект целиком и возвращает его содержимое и Content-Type.
func (i *ImageRepo) Download(ctx context.Context, key string) ([]byte, string, error) {
	obj, err := i.mc.GetObject(ctx, i.cfg.BucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", e.Wrap(whereami.WhereAmI(), e.Join(key, e.ErrStoreUnavailable, err))
	}
	defer obj.Close()

	stat, err := obj.Stat()
	if err != nil {
		return nil, "", e.Wrap(whereami.WhereAmI(), e.Join(key, e.ErrStoreUnavailable, err))
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", e.Wrap(whereami.WhereAmI(), e.Join(key, e.ErrTransientIO, err))
	}

	return data, stat.ContentType, nil
}
