package tarball

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/pgzip"
)

// Appender writes entry members to the tail of an archive. It must be
// opened at the AppendOffset reported by Scan; anything past that offset
// (a torn tail from an interrupted run, or the trailer of a completed
// one) is truncated away before the first append.
type Appender struct {
	f      *os.File
	offset int64
	level  int
}

// OpenAppender opens or creates the archive at path for appending at
// offset. level is a pgzip compression level; 0 selects the default.
func OpenAppender(path string, offset int64, level int) (*Appender, error) {
	if level == 0 {
		level = pgzip.DefaultCompression
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open archive for append: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	if fi.Size() < offset {
		f.Close()
		return nil, fmt.Errorf("archive %s is %d bytes, shorter than append offset %d", path, fi.Size(), offset)
	}
	if fi.Size() > offset {
		if err := f.Truncate(offset); err != nil {
			f.Close()
			return nil, fmt.Errorf("truncate archive tail at offset %d: %w", offset, err)
		}
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("seek archive: %w", err)
	}

	return &Appender{f: f, offset: offset, level: level}, nil
}

// Offset returns the current end of committed data.
func (a *Appender) Offset() int64 {
	return a.offset
}

// Append writes the file at srcPath into the archive as one gzip member
// named name, syncs the archive, and returns the compressed size added.
// Failures reading the source file come back as *EntryError after the
// partial member has been rolled back; the archive stays valid and the
// caller may continue with the next entry. Any other error is an archive
// I/O failure and is fatal for the run.
func (a *Appender) Append(name, srcPath string) (int64, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return 0, &EntryError{Name: name, Err: err}
	}
	defer src.Close()

	fi, err := src.Stat()
	if err != nil {
		return 0, &EntryError{Name: name, Err: err}
	}
	if !fi.Mode().IsRegular() {
		return 0, &EntryError{Name: name, Err: errors.New("not a regular file")}
	}

	hdr, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return 0, &EntryError{Name: name, Err: err}
	}
	hdr.Name = name

	cw := &countingWriter{w: a.f}
	zw, err := pgzip.NewWriterLevel(cw, a.level)
	if err != nil {
		return 0, fmt.Errorf("init gzip writer: %w", err)
	}
	tw := tar.NewWriter(zw)

	// abort discards the partial member. The gzip writer must be closed
	// before truncating: pgzip compresses in background goroutines that
	// keep writing to the file until Close returns. A failed rollback
	// means the archive itself is unwritable.
	abort := func() error {
		zw.Close()
		return a.rollback()
	}

	if err := tw.WriteHeader(hdr); err != nil {
		if rbErr := abort(); rbErr != nil {
			return 0, rbErr
		}
		return 0, fmt.Errorf("write tar header for %s: %w", name, err)
	}

	// Copy exactly the size recorded in the header. If the file shrank
	// since stat, CopyN reports EOF early; if it grew, the excess is
	// ignored. Either way the member stays internally consistent.
	er := &errTrackReader{r: src}
	if _, err := io.CopyN(tw, er, hdr.Size); err != nil {
		if rbErr := abort(); rbErr != nil {
			return 0, rbErr
		}
		if er.err != nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, &EntryError{Name: name, Err: err}
		}
		return 0, fmt.Errorf("write entry %s: %w", name, err)
	}

	// Flush pads the entry to the tar block size without writing the
	// end-of-archive trailer; the trailer belongs to Finalize.
	if err := tw.Flush(); err != nil {
		if rbErr := abort(); rbErr != nil {
			return 0, rbErr
		}
		return 0, fmt.Errorf("flush entry %s: %w", name, err)
	}
	if err := zw.Close(); err != nil {
		if rbErr := a.rollback(); rbErr != nil {
			return 0, rbErr
		}
		return 0, fmt.Errorf("close gzip member for %s: %w", name, err)
	}
	if err := a.f.Sync(); err != nil {
		return 0, fmt.Errorf("sync archive: %w", err)
	}

	a.offset += cw.n
	return cw.n, nil
}

// Finalize appends the end-of-archive trailer as its own gzip member and
// syncs. After Finalize the file is a complete tar.gz.
func (a *Appender) Finalize() error {
	cw := &countingWriter{w: a.f}
	zw, err := pgzip.NewWriterLevel(cw, a.level)
	if err != nil {
		return fmt.Errorf("init gzip writer: %w", err)
	}
	tw := tar.NewWriter(zw)
	if err := tw.Close(); err != nil {
		zw.Close()
		if rbErr := a.rollback(); rbErr != nil {
			return rbErr
		}
		return fmt.Errorf("write archive trailer: %w", err)
	}
	if err := zw.Close(); err != nil {
		if rbErr := a.rollback(); rbErr != nil {
			return rbErr
		}
		return fmt.Errorf("close trailer member: %w", err)
	}
	if err := a.f.Sync(); err != nil {
		return fmt.Errorf("sync archive: %w", err)
	}
	a.offset += cw.n
	return nil
}

func (a *Appender) Close() error {
	return a.f.Close()
}

// rollback discards a partially written member so the archive ends at
// the last committed entry again.
func (a *Appender) rollback() error {
	if err := a.f.Truncate(a.offset); err != nil {
		return fmt.Errorf("roll back partial entry: %w", err)
	}
	if _, err := a.f.Seek(a.offset, io.SeekStart); err != nil {
		return fmt.Errorf("roll back partial entry: %w", err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// errTrackReader remembers whether a copy failure originated on the read
// side, to tell source-file errors apart from archive write errors.
type errTrackReader struct {
	r   io.Reader
	err error
}

func (e *errTrackReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil && err != io.EOF {
		e.err = err
	}
	return n, err
}
