package planner

import (
	"github.com/vivekpujara/data-transfer-tool/pkg/tarball"
)

// WorkItem is one file that still needs to be appended to the archive.
type WorkItem struct {
	RelPath string // archive member name, slash-separated
	Path    string // absolute source path
	Size    int64
}

// Plan is the reconciliation of a source tree against an archive. The
// archive's own table of contents is the source of truth for what is
// already committed; the sidecar only contributes stale-claim warnings.
type Plan struct {
	// Items are the files still to append, in lexical order.
	Items []WorkItem

	// Archived are the members the archive already holds.
	Archived []tarball.Member

	// AppendOffset is where the next entry must be written.
	AppendOffset int64

	// Terminated reports whether the archive carries its trailer.
	Terminated bool

	// Truncated reports whether a torn tail from an interrupted run
	// was found (and will be overwritten on append).
	Truncated bool

	// StaleClaims are sidecar entries the archive could not back.
	StaleClaims []string

	// SourceFiles is the number of files enumerated under the root.
	SourceFiles int

	// PendingBytes is the total uncompressed size of Items.
	PendingBytes int64
}

// NothingToDo reports whether the archive already contains every source
// file and is properly terminated.
func (p *Plan) NothingToDo() bool {
	return len(p.Items) == 0 && p.Terminated
}
