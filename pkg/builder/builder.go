// Package builder drives a resumable archive build: it locks the target,
// plans the remaining work, appends entries one at a time, and persists
// durable progress after every committed entry. A build killed at any
// point leaves an archive the next run can resume.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/vivekpujara/data-transfer-tool/pkg/manifest"
	"github.com/vivekpujara/data-transfer-tool/pkg/planner"
	"github.com/vivekpujara/data-transfer-tool/pkg/tarball"
)

// ErrBuildInProgress is returned when another process holds the build
// lock for the same archive path.
var ErrBuildInProgress = errors.New("archive build already in progress")

// Options configures a build.
type Options struct {
	SourceRoot  string
	ArchivePath string

	// Excludes are doublestar patterns applied to relative paths.
	Excludes []string

	// CompressionLevel is a gzip level; 0 selects the default.
	CompressionLevel int

	// OnPlan, if set, is called once with the amount of pending work
	// before the first append.
	OnPlan func(pendingFiles int, pendingBytes int64)

	// OnAppend, if set, is called after each committed entry.
	OnAppend func(relPath string, size int64)
}

// Result summarizes a completed build.
type Result struct {
	NothingToDo     bool
	Appended        int
	Skipped         int
	AlreadyArchived int
	AppendedBytes   int64 // uncompressed
	ArchiveSize     int64 // compressed, on disk
	TotalMembers    int
}

// Build creates or resumes the archive at opts.ArchivePath from the tree
// at opts.SourceRoot. It is idempotent: re-running after success does no
// work, and re-running after an interruption appends only what is
// missing. Per-file read failures are skipped with a warning; archive
// I/O failures abort the run with the archive left in its last
// consistent, resumable state.
func Build(ctx context.Context, opts Options) (*Result, error) {
	if err := os.MkdirAll(filepath.Dir(opts.ArchivePath), 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	lock := flock.New(opts.ArchivePath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock archive: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrBuildInProgress, opts.ArchivePath)
	}
	defer func() {
		if err := lock.Unlock(); err == nil {
			os.Remove(lock.Path())
		}
	}()

	plan, err := planner.Compute(opts.SourceRoot, opts.ArchivePath, opts.Excludes)
	if err != nil {
		return nil, err
	}

	res := &Result{
		AlreadyArchived: len(plan.Archived),
		TotalMembers:    len(plan.Archived),
	}

	man := manifest.New(manifest.PathFor(opts.ArchivePath))
	man.Reset(plan.Archived)

	if plan.NothingToDo() {
		if len(plan.StaleClaims) > 0 {
			if err := man.Flush(); err != nil {
				return nil, err
			}
		}
		slog.Info("archive is up to date, nothing to do",
			"archive", opts.ArchivePath, "members", len(plan.Archived))
		res.NothingToDo = true
		if fi, err := os.Stat(opts.ArchivePath); err == nil {
			res.ArchiveSize = fi.Size()
		}
		return res, nil
	}

	if len(plan.Archived) > 0 {
		slog.Info("resuming archive build",
			"archive", opts.ArchivePath,
			"committed", len(plan.Archived),
			"pending", len(plan.Items))
	} else {
		slog.Info("starting archive build",
			"archive", opts.ArchivePath,
			"files", len(plan.Items))
	}

	if opts.OnPlan != nil {
		opts.OnPlan(len(plan.Items), plan.PendingBytes)
	}

	// Seed the sidecar from the archive's table of contents so that any
	// stale claims are gone before new entries land.
	if err := man.Flush(); err != nil {
		return nil, err
	}

	ap, err := tarball.OpenAppender(opts.ArchivePath, plan.AppendOffset, opts.CompressionLevel)
	if err != nil {
		return nil, err
	}
	defer ap.Close()

	for _, item := range plan.Items {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if _, err := ap.Append(item.RelPath, item.Path); err != nil {
			var entryErr *tarball.EntryError
			if errors.As(err, &entryErr) {
				slog.Warn("skipping unreadable file", "path", item.Path, "error", entryErr.Err)
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("append to archive at offset %d: %w", ap.Offset(), err)
		}

		man.Add(tarball.Member{Path: item.RelPath, Size: item.Size})
		if err := man.Flush(); err != nil {
			return res, err
		}

		res.Appended++
		res.TotalMembers++
		res.AppendedBytes += item.Size
		if opts.OnAppend != nil {
			opts.OnAppend(item.RelPath, item.Size)
		}
	}

	if err := ap.Finalize(); err != nil {
		return res, fmt.Errorf("finalize archive: %w", err)
	}
	res.ArchiveSize = ap.Offset()
	if err := ap.Close(); err != nil {
		return res, fmt.Errorf("close archive: %w", err)
	}

	slog.Info("archive build complete",
		"archive", opts.ArchivePath,
		"members", res.TotalMembers,
		"appended", res.Appended,
		"skipped", res.Skipped)

	return res, nil
}
