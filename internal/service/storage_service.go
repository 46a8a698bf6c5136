// Package service contains the business logic layer.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/jobops/jobops-api/internal/config"
)

// Artifact layout inside the bucket. One prefix per job keeps cleanup and
// manual inspection sane.
const (
	artifactPrefix        = "packs/"
	defaultArtifactExpiry = time.Hour
)

// StorageService stores exported pack artifacts (PDF renders, rr JSON) in an
// S3-compatible bucket. When no bucket is configured every read errors and
// exports are served inline instead.
type StorageService struct {
	client  *s3.Client
	bucket  string
	enabled bool
	logger  *slog.Logger
}

// NewStorageService creates a new storage service.
func NewStorageService(cfg *appconfig.Config, logger *slog.Logger) (*StorageService, error) {
	if !cfg.StorageEnabled {
		logger.Info("storage service disabled - no bucket configured")
		return &StorageService{
			enabled: false,
			logger:  logger,
		}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.StorageRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Custom endpoint plus path style covers the S3-compatible stores this
	// runs against (Tigris, MinIO, R2), not just AWS proper.
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.StorageEndpoint)
		o.UsePathStyle = true
	})

	logger.Info("storage service initialized",
		"bucket", cfg.StorageBucket,
		"endpoint", cfg.StorageEndpoint,
	)

	return &StorageService{
		client:  client,
		bucket:  cfg.StorageBucket,
		enabled: true,
		logger:  logger,
	}, nil
}

// IsEnabled returns whether storage is configured and available.
func (s *StorageService) IsEnabled() bool {
	return s.enabled
}

// PDFKey names the artifact object for one rendered draft version.
func PDFKey(jobKey, profileID string, versionNo int) string {
	return fmt.Sprintf("%s%s/%s/v%d.pdf", artifactPrefix, jobKey, profileID, versionNo)
}

// RRKey names the rr export object for one draft version.
func RRKey(jobKey, profileID string, versionNo int) string {
	return fmt.Sprintf("%s%s/%s/v%d.rr.json", artifactPrefix, jobKey, profileID, versionNo)
}

// PutPDF stores a rendered pack PDF under key.
func (s *StorageService) PutPDF(ctx context.Context, key string, data []byte) error {
	if !s.enabled {
		return fmt.Errorf("storage is not enabled")
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return fmt.Errorf("failed to store pdf artifact: %w", err)
	}
	s.logger.Info("stored pdf artifact", "key", key, "size_bytes", len(data))
	return nil
}

// PutJSON stores v as a JSON artifact under key.
func (s *StorageService) PutJSON(ctx context.Context, key string, v any) error {
	if !s.enabled {
		return fmt.Errorf("storage is not enabled")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to store json artifact: %w", err)
	}
	s.logger.Info("stored json artifact", "key", key, "size_bytes", len(data))
	return nil
}

// PresignedURL returns a time-limited download link for an artifact.
func (s *StorageService) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if !s.enabled {
		return "", fmt.Errorf("storage is not enabled")
	}
	if expiry == 0 {
		expiry = defaultArtifactExpiry
	}
	presignClient := s3.NewPresignClient(s.client)
	presignedReq, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return presignedReq.URL, nil
}

// DeleteArtifact removes one artifact. Deleting a missing key is not an error.
func (s *StorageService) DeleteArtifact(ctx context.Context, key string) error {
	if !s.enabled {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	s.logger.Info("deleted artifact", "key", key)
	return nil
}

// DeleteOldArtifacts deletes pack artifacts older than maxAge and returns how
// many were removed.
func (s *StorageService) DeleteOldArtifacts(ctx context.Context, maxAge time.Duration) (int, error) {
	if !s.enabled {
		return 0, nil
	}

	cutoff := time.Now().Add(-maxAge)
	deleted := 0

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(artifactPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return deleted, fmt.Errorf("failed to list artifacts: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.LastModified == nil || !obj.LastModified.Before(cutoff) {
				continue
			}
			if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			}); err != nil {
				s.logger.Warn("failed to delete old artifact", "key", aws.ToString(obj.Key), "error", err)
				continue
			}
			deleted++
		}
	}

	s.logger.Info("artifact cleanup completed", "deleted_count", deleted, "max_age", maxAge.String())
	return deleted, nil
}
