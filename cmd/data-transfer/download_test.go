package main

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/vivekpujara/data-transfer-tool/pkg/builder"
	"github.com/vivekpujara/data-transfer-tool/pkg/s3client"
)

// buildTestTarball packs a small tree and returns the archive bytes.
func buildTestTarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	source := writeSourceTree(t, files)
	archivePath := filepath.Join(t.TempDir(), "data.tar.gz")
	if _, err := builder.Build(context.Background(), builder.Options{
		SourceRoot:  source,
		ArchivePath: archivePath,
	}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestRunDownload(t *testing.T) {
	quiet = true
	files := map[string]string{
		"a.txt":     "0123456789",
		"sub/b.txt": "01234",
	}
	data := buildTestTarball(t, files)
	sum := sha256.Sum256(data)

	var deletedKey string
	client := &mockS3Client{
		bucketExistsFunc: func(ctx context.Context, bucket string) error { return nil },
		headObjectFunc: func(ctx context.Context, bucket, key string) (*s3client.ObjectInfo, error) {
			return &s3client.ObjectInfo{
				Size:           int64(len(data)),
				ChecksumSHA256: base64.StdEncoding.EncodeToString(sum[:]),
			}, nil
		},
		downloadFunc: func(ctx context.Context, req *s3client.DownloadRequest) (int64, error) {
			n, err := req.Body.WriteAt(data, 0)
			return int64(n), err
		},
		deleteObjectFunc: func(ctx context.Context, bucket, key string) error {
			deletedKey = key
			return nil
		},
	}

	dest := t.TempDir()
	opts := &downloadOptions{
		source:        "mybucket:runs/data.tar.gz",
		destination:   dest,
		extract:       true,
		deleteTarball: true,
	}
	if err := runDownload(context.Background(), client, opts); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dest, "data.tar.gz")); err != nil {
		t.Errorf("downloaded tarball missing: %v", err)
	}
	for name, content := range files {
		got, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(name)))
		if err != nil {
			t.Errorf("extracted file %s: %v", name, err)
			continue
		}
		if string(got) != content {
			t.Errorf("%s content = %q, want %q", name, got, content)
		}
	}
	if deletedKey != "runs/data.tar.gz" {
		t.Errorf("deleted key = %q, want %q", deletedKey, "runs/data.tar.gz")
	}
}

func TestRunDownloadObjectMissing(t *testing.T) {
	quiet = true
	client := &mockS3Client{
		bucketExistsFunc: func(ctx context.Context, bucket string) error { return nil },
		headObjectFunc: func(ctx context.Context, bucket, key string) (*s3client.ObjectInfo, error) {
			return nil, nil
		},
	}

	opts := &downloadOptions{
		source:      "mybucket:missing.tar.gz",
		destination: t.TempDir(),
	}
	if err := runDownload(context.Background(), client, opts); err == nil {
		t.Error("runDownload() error = nil, want missing-object error")
	}
}

func TestRunDownloadChecksumMismatch(t *testing.T) {
	quiet = true
	data := buildTestTarball(t, map[string]string{"a.txt": "0123456789"})

	client := &mockS3Client{
		bucketExistsFunc: func(ctx context.Context, bucket string) error { return nil },
		headObjectFunc: func(ctx context.Context, bucket, key string) (*s3client.ObjectInfo, error) {
			return &s3client.ObjectInfo{
				Size:           int64(len(data)),
				ChecksumSHA256: "bm90IHRoZSByaWdodCBkaWdlc3QhISE=",
			}, nil
		},
		downloadFunc: func(ctx context.Context, req *s3client.DownloadRequest) (int64, error) {
			n, err := req.Body.WriteAt(data, 0)
			return int64(n), err
		},
	}

	dest := t.TempDir()
	opts := &downloadOptions{
		source:      "mybucket:data.tar.gz",
		destination: dest,
	}
	if err := runDownload(context.Background(), client, opts); err == nil {
		t.Fatal("runDownload() error = nil, want checksum mismatch")
	}
	if _, err := os.Stat(filepath.Join(dest, "data.tar.gz")); err == nil {
		t.Error("corrupt download was left on disk")
	}
}
