package service

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/n3utron0/telecom-call-data-analyzer/config"
)

// AudioRef points at a staged audio object. It is what the extraction client
// receives; the raw bytes never flow through the pipelines.
type AudioRef struct {
	Object   string
	URI      string
	MIMEType string
}

// AudioStore stages uploaded call recordings so the extraction service can
// fetch them by URI. Objects are removed once extraction resolves.
type AudioStore interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (AudioRef, error)
	Remove(ctx context.Context, ref AudioRef) error
}

type MinioAudioStore struct {
	client *minio.Client
	bucket string
	config *config.MinioConfig
}

func NewMinioAudioStore(cfg *config.MinioConfig) (*MinioAudioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioAudioStore{
		client: client,
		bucket: cfg.Bucket,
		config: cfg,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *MinioAudioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Upload stages an audio object and returns a reference with a presigned URI
// the extraction service can fetch.
func (s *MinioAudioStore) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (AudioRef, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return AudioRef{}, fmt.Errorf("failed to upload audio: %w", err)
	}

	uri := s.objectURL(objectName)
	return AudioRef{
		Object:   objectName,
		URI:      uri,
		MIMEType: contentType,
	}, nil
}

// Remove deletes a staged audio object.
func (s *MinioAudioStore) Remove(ctx context.Context, ref AudioRef) error {
	err := s.client.RemoveObject(ctx, s.bucket, ref.Object, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete audio: %w", err)
	}

	return nil
}

func (s *MinioAudioStore) objectURL(objectName string) string {
	protocol := "http"
	if s.config.UseSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", protocol, s.config.Endpoint, s.bucket, objectName)
}
