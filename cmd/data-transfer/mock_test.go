package main

import (
	"context"
	"fmt"

	"github.com/vivekpujara/data-transfer-tool/pkg/s3client"
)

// mockS3Client is a mock implementation of s3client.Client for testing
type mockS3Client struct {
	bucketExistsFunc func(ctx context.Context, bucket string) error
	headObjectFunc   func(ctx context.Context, bucket, key string) (*s3client.ObjectInfo, error)
	uploadFunc       func(ctx context.Context, req *s3client.UploadRequest) error
	downloadFunc     func(ctx context.Context, req *s3client.DownloadRequest) (int64, error)
	deleteObjectFunc func(ctx context.Context, bucket, key string) error
}

func (m *mockS3Client) BucketExists(ctx context.Context, bucket string) error {
	if m.bucketExistsFunc != nil {
		return m.bucketExistsFunc(ctx, bucket)
	}
	return fmt.Errorf("BucketExists not implemented")
}

func (m *mockS3Client) HeadObject(ctx context.Context, bucket, key string) (*s3client.ObjectInfo, error) {
	if m.headObjectFunc != nil {
		return m.headObjectFunc(ctx, bucket, key)
	}
	return nil, fmt.Errorf("HeadObject not implemented")
}

func (m *mockS3Client) Upload(ctx context.Context, req *s3client.UploadRequest) error {
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, req)
	}
	return fmt.Errorf("Upload not implemented")
}

func (m *mockS3Client) Download(ctx context.Context, req *s3client.DownloadRequest) (int64, error) {
	if m.downloadFunc != nil {
		return m.downloadFunc(ctx, req)
	}
	return 0, fmt.Errorf("Download not implemented")
}

func (m *mockS3Client) DeleteObject(ctx context.Context, bucket, key string) error {
	if m.deleteObjectFunc != nil {
		return m.deleteObjectFunc(ctx, bucket, key)
	}
	return fmt.Errorf("DeleteObject not implemented")
}
