package tarball

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
)

const scanBufSize = 1 << 20

// Scan reads the archive at path member by member and returns its table
// of contents. Decode failures past the last complete member are not
// errors: they mark the archive as truncated and committed members up to
// that point remain authoritative. Only I/O failures reading the file
// itself are returned as errors.
func Scan(path string) (*TOC, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	return scan(f)
}

func scan(r io.Reader) (*TOC, error) {
	cr := &countingReader{r: r}
	// The bufio.Reader doubles as the io.ByteReader gzip needs so that
	// flate never reads past a member boundary, which keeps the offset
	// arithmetic below exact.
	br := bufio.NewReaderSize(cr, scanBufSize)

	toc := &TOC{}
	var zr *gzip.Reader
	for {
		if _, err := br.Peek(1); err != nil {
			if err == io.EOF {
				return toc, nil
			}
			return nil, fmt.Errorf("read archive: %w", err)
		}

		var err error
		if zr == nil {
			zr, err = gzip.NewReader(br)
		} else {
			err = zr.Reset(br)
		}
		if err != nil {
			toc.Truncated = true
			return toc, nil
		}
		zr.Multistream(false)

		members, err := readMember(zr)
		if err != nil {
			toc.Truncated = true
			return toc, nil
		}

		end := cr.n - int64(br.Buffered())
		if len(members) == 0 {
			// A member with no entries is the end-of-archive
			// trailer. AppendOffset stays before it so that a
			// resumed build overwrites it.
			toc.Terminated = true
		} else {
			toc.Members = append(toc.Members, members...)
			toc.AppendOffset = end
			toc.Terminated = false
		}
	}
}

// readMember decodes one gzip member as a tar fragment and returns the
// file entries it holds. The member is drained fully so that the gzip
// checksum is verified and the underlying reader stops exactly at the
// next member boundary.
func readMember(zr io.Reader) ([]Member, error) {
	tr := tar.NewReader(zr)
	var members []Member
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		members = append(members, Member{Path: hdr.Name, Size: hdr.Size})
	}
	if _, err := io.Copy(io.Discard, zr); err != nil {
		return nil, err
	}
	return members, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
