package repair

import "github.com/lucasnoah/gatewright/internal/gitio"

// gitDiff measures working-tree drift through git. A missing git or a
// failing diff yields an empty snapshot, which disables patch
// accounting for the attempt instead of blocking it.
type gitDiff struct {
	git gitio.Runner
}

func (d *gitDiff) Snapshot(cwd string) map[string]int {
	return gitio.DiffNumstat(d.git, cwd)
}

// ComputePatchLines sizes one fix pass as the absolute per-file churn
// delta between two snapshots, summed over every file either snapshot
// mentions.
func ComputePatchLines(before, after map[string]int) int {
	files := map[string]bool{}
	for f := range before {
		files[f] = true
	}
	for f := range after {
		files[f] = true
	}
	total := 0
	for f := range files {
		total += abs(after[f] - before[f])
	}
	return total
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
