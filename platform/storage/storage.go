package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"

	"medpipe_backend/config"
	"medpipe_backend/models"
	"medpipe_backend/pkg/logging"
	"medpipe_backend/utils"
)

// BlobStore keeps pipeline artifacts. A container is a top-level folder
// (one per patient) and keys are slash separated paths inside it.
type BlobStore interface {
	Download(ctx context.Context, container, key string) (string, error)
	Upload(ctx context.Context, container, key, content string) error
	Exists(ctx context.Context, container, key string) (bool, error)
	List(ctx context.Context, container, prefix string) ([]string, error)
	DeleteFolder(ctx context.Context, container, prefix string) error
	Close() error
}

func InitStorageService(cfg *config.Config) (BlobStore, error) {
	var minioClient *minio.Client
	var err error

	switch cfg.StorageType {
	case "minio":
		minioClient, err = utils.CreateMinIOClient(cfg)
	case "s3":
		minioClient, err = utils.CreateS3Client(cfg)
	case "bolt":
		return OpenBoltStore(cfg.BoltPath)
	default:
		err = fmt.Errorf("unknown storage type %q", cfg.StorageType)
	}
	if err != nil {
		logging.Logger.Error("fail InitStorageService", "error", err)
		return nil, err
	}
	ss := &Service{
		Client:      minioClient,
		Region:      cfg.BucketRegion,
		Bucket:      cfg.BucketName,
		StorageType: cfg.StorageType,
	}
	if err := ss.EnsureBucketExists(context.Background()); err != nil {
		logging.Logger.Error("fail InitStorageService", "error", err)
		return nil, err
	}
	logging.Logger.Info("Storage service initialized",
		"type", cfg.StorageType,
		"bucket", cfg.BucketName,
		"region", cfg.BucketRegion,
	)
	return ss, nil
}

// Service is the minio/S3 BlobStore.
type Service struct {
	Client      *minio.Client
	Region      string
	Bucket      string
	StorageType string
}

func (ss *Service) EnsureBucketExists(ctx context.Context) error {
	exists, err := ss.Client.BucketExists(ctx, ss.Bucket)
	if err != nil {
		logging.Logger.Error("fail ensureBucketExists", "error", err)
		return err
	}
	if exists {
		logging.Logger.Info("Bucket already exists", "bucket", ss.Bucket)
		return nil
	}
	err = ss.Client.MakeBucket(ctx, ss.Bucket, minio.MakeBucketOptions{Region: ss.Region})
	if err != nil {
		if ss.StorageType == "s3" {
			logging.Logger.Warn("Could not create S3 bucket (might exist or no permission)",
				"bucket", ss.Bucket, "error", err)
			return nil
		}
		logging.Logger.Error("fail ensureBucketExists", "error", err)
		return err
	}
	logging.Logger.Info("Bucket created successfully", "bucket", ss.Bucket)
	return nil
}

func objectKey(container, key string) string {
	return path.Join(container, strings.TrimPrefix(key, "/"))
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (ss *Service) Download(ctx context.Context, container, key string) (string, error) {
	obj, err := ss.Client.GetObject(ctx, ss.Bucket, objectKey(container, key), minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return "", fmt.Errorf("%s/%s: %w", container, key, models.ErrNotFound)
		}
		return "", err
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return "", fmt.Errorf("%s/%s: %w", container, key, models.ErrNotFound)
		}
		return "", err
	}
	return string(data), nil
}

func (ss *Service) Upload(ctx context.Context, container, key, content string) error {
	_, err := ss.Client.PutObject(ctx, ss.Bucket, objectKey(container, key),
		strings.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
	if err != nil {
		logging.Logger.Error("fail Upload", "error", err, "container", container, "key", key)
		return err
	}
	return nil
}

func (ss *Service) Exists(ctx context.Context, container, key string) (bool, error) {
	_, err := ss.Client.StatObject(ctx, ss.Bucket, objectKey(container, key), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (ss *Service) List(ctx context.Context, container, prefix string) ([]string, error) {
	root := container + "/"
	var keys []string
	for obj := range ss.Client.ListObjects(ctx, ss.Bucket, minio.ListObjectsOptions{
		Prefix:    root + strings.TrimPrefix(prefix, "/"),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		keys = append(keys, strings.TrimPrefix(obj.Key, root))
	}
	return keys, nil
}

func (ss *Service) DeleteFolder(ctx context.Context, container, prefix string) error {
	keys, err := ss.List(ctx, container, prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := ss.Client.RemoveObject(ctx, ss.Bucket, objectKey(container, key), minio.RemoveObjectOptions{}); err != nil {
			logging.Logger.Error("fail DeleteFolder", "error", err, "container", container, "key", key)
			return err
		}
	}
	return nil
}

func (ss *Service) Close() error {
	return nil
}
