// Package s3client is a thin transport wrapper around S3. It moves whole
// archive files as opaque byte streams and knows nothing about their
// contents.
package s3client

import (
	"context"
	"io"
)

// StorageClass selects the storage tier for uploaded objects.
type StorageClass string

const (
	StorageClassStandard    StorageClass = "STANDARD"
	StorageClassDeepArchive StorageClass = "DEEP_ARCHIVE"
)

type Client interface {
	BucketExists(ctx context.Context, bucket string) error

	// HeadObject returns metadata for an object, or nil when the
	// object does not exist.
	HeadObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)

	Upload(ctx context.Context, req *UploadRequest) error
	Download(ctx context.Context, req *DownloadRequest) (int64, error)
	DeleteObject(ctx context.Context, bucket, key string) error
}

type ObjectInfo struct {
	Size int64

	// ChecksumSHA256 is the object's base64 SHA-256 digest when S3 has
	// one. Multipart uploads yield a composite value with a part-count
	// suffix.
	ChecksumSHA256 string
}

type UploadRequest struct {
	Bucket       string
	Key          string
	Body         io.Reader
	Size         int64
	ContentType  string
	StorageClass StorageClass
}

type DownloadRequest struct {
	Bucket string
	Key    string
	Body   io.WriterAt
}
