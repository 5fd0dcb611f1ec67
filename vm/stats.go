package vm

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// renderStats formats a human-readable execution summary for cmd/embervm's
// `stats` output and for ad-hoc debugging (SPEC_FULL.md "Formatting").
func renderStats(executed int64, depth int) string {
	return fmt.Sprintf("%s instructions, %d frames deep", humanize.Comma(executed), depth)
}
