// Package planner decides which source files still need to be appended
// to an archive so an interrupted build can resume without redoing work.
package planner

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/vivekpujara/data-transfer-tool/internal/walker"
	"github.com/vivekpujara/data-transfer-tool/pkg/manifest"
	"github.com/vivekpujara/data-transfer-tool/pkg/tarball"
)

// Compute enumerates the source tree, scans the archive at archivePath
// if one exists, and returns the minimal ordered work list. The source
// tree is enumerated fresh on every call; nothing is cached across runs.
func Compute(sourceRoot, archivePath string, excludes []string) (*Plan, error) {
	w, err := walker.New(sourceRoot, excludes)
	if err != nil {
		return nil, fmt.Errorf("source tree: %w", err)
	}
	files, err := w.Walk()
	if err != nil {
		return nil, fmt.Errorf("enumerate source tree: %w", err)
	}

	plan := &Plan{SourceFiles: len(files)}

	if _, err := os.Stat(archivePath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat archive: %w", err)
		}
		// Fresh build: everything is missing.
		plan.Items = toWorkItems(files)
		plan.PendingBytes = sumSizes(plan.Items)
		return plan, nil
	}

	toc, err := tarball.Scan(archivePath)
	if err != nil {
		return nil, fmt.Errorf("list archive contents: %w", err)
	}
	plan.Archived = toc.Members
	plan.AppendOffset = toc.AppendOffset
	plan.Terminated = toc.Terminated
	plan.Truncated = toc.Truncated

	if toc.Truncated {
		slog.Warn("archive has a torn tail from an interrupted run; it will be discarded",
			"archive", archivePath,
			"committed", len(toc.Members),
			"offset", toc.AppendOffset)
	}

	plan.StaleClaims = staleClaims(archivePath, toc.Members)
	for _, claim := range plan.StaleClaims {
		slog.Warn("filelist claims an entry the archive does not contain; rechecking against archive",
			"path", claim)
	}

	missing := Reconcile(files, toc.Members)
	plan.Items = toWorkItems(missing)
	plan.PendingBytes = sumSizes(plan.Items)
	return plan, nil
}

// staleClaims compares the sidecar against the archive's actual table of
// contents. A sidecar that cannot be read is treated as absent; it holds
// no authority over the archive.
func staleClaims(archivePath string, archived []tarball.Member) []string {
	m, err := manifest.Load(manifest.PathFor(archivePath))
	if err != nil {
		slog.Warn("ignoring unreadable filelist", "error", err)
		return nil
	}

	inArchive := make(map[string]struct{}, len(archived))
	for _, member := range archived {
		inArchive[member.Path] = struct{}{}
	}

	var stale []string
	for _, claim := range m.Members() {
		if _, ok := inArchive[claim.Path]; !ok {
			stale = append(stale, claim.Path)
		}
	}
	return stale
}

func toWorkItems(files []walker.FileInfo) []WorkItem {
	items := make([]WorkItem, 0, len(files))
	for _, f := range files {
		items = append(items, WorkItem{
			RelPath: f.RelPath,
			Path:    f.Path,
			Size:    f.Size,
		})
	}
	return items
}

func sumSizes(items []WorkItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Size
	}
	return total
}
