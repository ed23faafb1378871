package planner

import (
	"sort"

	"github.com/vivekpujara/data-transfer-tool/internal/walker"
	"github.com/vivekpujara/data-transfer-tool/pkg/tarball"
)

// Reconcile returns the source files not yet present in the archive, in
// lexical order. Membership is by relative path only: a member whose
// content changed since it was archived is still considered archived,
// and members no longer present in the source are never pruned.
func Reconcile(source []walker.FileInfo, archived []tarball.Member) []walker.FileInfo {
	inArchive := make(map[string]struct{}, len(archived))
	for _, member := range archived {
		inArchive[member.Path] = struct{}{}
	}

	var missing []walker.FileInfo
	for _, f := range source {
		if _, ok := inArchive[f.RelPath]; !ok {
			missing = append(missing, f)
		}
	}

	sort.Slice(missing, func(i, j int) bool {
		return missing[i].RelPath < missing[j].RelPath
	})

	return missing
}
