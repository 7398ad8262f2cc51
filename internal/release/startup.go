package release

import (
	"fmt"
	"os/exec"
	"strings"
)

// CheckDependencies verifies that every binary in bins is on PATH.
// Returns a descriptive error listing every missing binary; nil if all are
// present.
func CheckDependencies(bins ...string) error {
	var missing []string
	for _, bin := range bins {
		if _, err := exec.LookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required binaries on PATH: %s",
			strings.Join(missing, ", "))
	}
	return nil
}
