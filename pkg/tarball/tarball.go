// Package tarball implements a crash-safe, appendable tar.gz format.
//
// An archive is a sequence of gzip members. Each committed file is one
// member holding a tar fragment (header + data + padding) without the
// end-of-archive trailer; a final member holding the 1024-byte zero
// trailer is written when the archive is complete. Because gzip readers
// treat concatenated members as a single stream, a finished archive is a
// plain tar.gz that standard tools can read, while the member framing
// lets an interrupted archive be scanned and resumed at an exact byte
// offset.
package tarball

import "fmt"

// Member is a file entry committed into the archive, identified by its
// slash-separated path relative to the source root.
type Member struct {
	Path string
	Size int64
}

// TOC is the result of scanning an archive's table of contents.
type TOC struct {
	// Members lists the entries that are fully committed and readable.
	Members []Member

	// AppendOffset is the byte offset at which the next entry member
	// must be written. It points past the last complete data member,
	// before any trailing terminator or torn tail.
	AppendOffset int64

	// Terminated reports whether the archive ends with the tar
	// end-of-archive trailer, i.e. a previous run completed.
	Terminated bool

	// Truncated reports whether undecodable data was found past the
	// last complete member, left behind by an interrupted run.
	Truncated bool
}

// EntryError reports a failure confined to a single source file. Callers
// skip the entry and continue; any other error from the appender means
// the archive itself is unwritable and the run must stop.
type EntryError struct {
	Name string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %s: %v", e.Name, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}
