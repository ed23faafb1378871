package s3client

import (
	"fmt"
	"strings"
)

// ParseBucketKey splits a "bucket:key" destination string, the address
// format this tool has always used (e.g. "mybucket:runs/data.tar.gz").
func ParseBucketKey(s string) (bucket, key string, err error) {
	bucket, key, found := strings.Cut(s, ":")
	if !found {
		return "", "", fmt.Errorf("invalid S3 address %q: expected bucket:key", s)
	}
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 address %q: missing bucket name", s)
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("invalid S3 address %q: missing object key", s)
	}
	return bucket, key, nil
}
