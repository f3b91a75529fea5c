package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"samplecrate/config"
	"samplecrate/logger"
)

var (
	minioClient *minio.Client
	bucket      string
)

// InitMinio initializes the MinIO client and ensures the bucket exists.
func InitMinio(cfg *config.Config) error {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("created bucket", logger.String("bucket", cfg.MinioBucket))
	}

	minioClient = client
	bucket = cfg.MinioBucket
	logger.Info("MinIO client initialized", logger.String("endpoint", cfg.MinioEndpoint))
	return nil
}

// GetMinioClient returns the MinIO client instance.
func GetMinioClient() *minio.Client {
	return minioClient
}

// RemoveSampleObjects removes the stored audio objects for deleted samples.
// Removal is best-effort per object: the database rows are already gone and
// a missing object is not an error worth failing the delete for.
func RemoveSampleObjects(ctx context.Context, objectPaths []string) {
	if minioClient == nil {
		return
	}
	for _, path := range objectPaths {
		if path == "" {
			continue
		}
		if err := minioClient.RemoveObject(ctx, bucket, path, minio.RemoveObjectOptions{}); err != nil {
			logger.Warn("failed to remove sample object",
				logger.String("object", path), logger.ErrorField(err))
		}
	}
}
