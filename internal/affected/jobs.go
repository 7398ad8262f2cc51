package affected

import (
	"context"
	"fmt"

	"github.com/collaborationFactory/github-actions/internal/log"
)

// E2ETarget is the Nx target whose jobs run every project on pushes.
const E2ETarget = "e2e"

// Distribute deals names round-robin into jobCount buckets: name i goes to
// bucket i % jobCount.
func Distribute(names []string, jobCount int) [][]string {
	if jobCount < 1 {
		jobCount = 1
	}
	buckets := make([][]string, jobCount)
	for i, name := range names {
		buckets[i%jobCount] = append(buckets[i%jobCount], name)
	}
	return buckets
}

// JobSlice returns the projects CI job index (0-based) of count should run
// target for. Projects affected relative to base are used, except for the
// e2e target without a ref, which runs on every project that has it.
func JobSlice(ctx context.Context, lister Lister, target string, index, count int, base, ref string) ([]string, error) {
	if count < 1 {
		return nil, fmt.Errorf("job count must be at least 1, got %d", count)
	}
	if index < 0 || index >= count {
		return nil, fmt.Errorf("job index %d out of range for %d jobs", index, count)
	}

	var names []string
	var err error
	if target == E2ETarget && ref == "" {
		names, err = lister.ShowProjects(ctx, false, "", target)
	} else {
		names, err = lister.ShowProjects(ctx, true, base, target)
	}
	if err != nil {
		return nil, fmt.Errorf("JobSlice: %w", err)
	}

	buckets := Distribute(names, count)
	log.Info(fmt.Sprintf("Affected projects: %v", buckets))
	return buckets[index], nil
}
