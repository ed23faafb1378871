// Package checksum computes SHA-256 digests in the base64 form S3 uses
// for its ChecksumSHA256 field, so transfers can be verified end to end.
package checksum

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// SumFile returns the base64 encoded SHA-256 digest of a file.
func SumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// Reader hashes bytes as they pass through. The digest becomes available
// once the underlying reader returns io.EOF.
type Reader struct {
	r    io.Reader
	hash hash.Hash
	sum  string
	done bool
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, hash: sha256.New()}
}

func (t *Reader) Read(p []byte) (n int, err error) {
	n, err = t.r.Read(p)
	if n > 0 {
		t.hash.Write(p[:n])
	}
	if err == io.EOF {
		t.done = true
		t.sum = base64.StdEncoding.EncodeToString(t.hash.Sum(nil))
	}
	return n, err
}

// Sum returns the digest. It errors until the stream has been read to EOF.
func (t *Reader) Sum() (string, error) {
	if !t.done {
		return "", fmt.Errorf("stream not fully read")
	}
	return t.sum, nil
}

// Composite reports whether an S3 checksum value is a multipart
// checksum-of-checksums ("<base64>-<parts>"). Those cannot be compared
// against a whole-file digest.
func Composite(s string) bool {
	return strings.Contains(s, "-")
}
