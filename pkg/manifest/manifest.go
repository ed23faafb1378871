// Package manifest maintains the sidecar file recording which entries
// have been committed into an archive. The sidecar is an audit trail and
// a fast progress readout; the archive's own table of contents is always
// the authority, and every run reseeds the sidecar from it.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vivekpujara/data-transfer-tool/pkg/tarball"
)

const header = "# data-transfer filelist v1"

// Suffix is appended to the archive path to form the sidecar path.
const Suffix = ".filelist.txt"

// PathFor returns the sidecar path for an archive path.
func PathFor(archivePath string) string {
	return archivePath + Suffix
}

// Manifest is the in-memory state of a sidecar file. Entries keep their
// commit order so the file mirrors the archive layout.
type Manifest struct {
	path       string
	entries    []tarball.Member
	index      map[string]int
	totalBytes int64
}

// New returns an empty manifest that will be persisted at path.
func New(path string) *Manifest {
	return &Manifest{
		path:  path,
		index: make(map[string]int),
	}
}

// Load reads the sidecar at path. A missing file yields an empty
// manifest; a malformed file is an error so stale garbage is never
// silently trusted.
func Load(path string) (*Manifest, error) {
	m := New(path)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return m, nil
		}
		return nil, fmt.Errorf("open filelist: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		size, rel, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("filelist %s: malformed line %d", path, lineNo)
		}
		n, err := strconv.ParseInt(size, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("filelist %s: bad size on line %d: %w", path, lineNo, err)
		}
		m.Add(tarball.Member{Path: rel, Size: n})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read filelist: %w", err)
	}

	return m, nil
}

// Path returns the sidecar file path.
func (m *Manifest) Path() string {
	return m.path
}

// Len returns the number of recorded entries.
func (m *Manifest) Len() int {
	return len(m.entries)
}

// TotalBytes returns the cumulative size of all recorded entries.
func (m *Manifest) TotalBytes() int64 {
	return m.totalBytes
}

// Members returns the recorded entries in commit order.
func (m *Manifest) Members() []tarball.Member {
	out := make([]tarball.Member, len(m.entries))
	copy(out, m.entries)
	return out
}

// Contains reports whether a relative path is recorded.
func (m *Manifest) Contains(rel string) bool {
	_, ok := m.index[rel]
	return ok
}

// Add records a committed entry. Re-adding an existing path is a no-op.
func (m *Manifest) Add(member tarball.Member) {
	if _, ok := m.index[member.Path]; ok {
		return
	}
	m.index[member.Path] = len(m.entries)
	m.entries = append(m.entries, member)
	m.totalBytes += member.Size
}

// Reset replaces all recorded entries with members, discarding any
// claims the archive cannot back.
func (m *Manifest) Reset(members []tarball.Member) {
	m.entries = m.entries[:0]
	m.index = make(map[string]int, len(members))
	m.totalBytes = 0
	for _, member := range members {
		m.Add(member)
	}
}

// Flush atomically persists the manifest: the content is written to a
// temporary file in the same directory, synced, and renamed over the
// sidecar path. A crash mid-flush leaves the previous sidecar intact.
func (m *Manifest) Flush() error {
	dir := filepath.Dir(m.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(m.path)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp filelist: %w", err)
	}
	tmpPath := tmp.Name()

	w := bufio.NewWriter(tmp)
	fmt.Fprintln(w, header)
	fmt.Fprintf(w, "# files=%d bytes=%d\n", len(m.entries), m.totalBytes)
	for _, e := range m.entries {
		fmt.Fprintf(w, "%d\t%s\n", e.Size, e.Path)
	}

	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write filelist: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync filelist: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close filelist: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename filelist: %w", err)
	}
	return nil
}
