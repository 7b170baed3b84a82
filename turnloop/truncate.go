package turnloop

import (
	"fmt"
	"strings"
)

const defaultOutputLimit = 30000

// TruncateOutput applies character-based truncation to oversized call output,
// keeping the head and tail. maxChars <= 0 uses the default limit.
func TruncateOutput(output string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = defaultOutputLimit
	}
	if len(output) <= maxChars {
		return output
	}
	half := maxChars / 2
	removed := len(output) - maxChars
	return output[:half] +
		fmt.Sprintf("\n\n[WARNING: Output was truncated. %d characters were removed from the middle. "+
			"Re-run the operation with more targeted parameters to see specific parts.]\n\n",
			removed) +
		output[len(output)-half:]
}

// TruncateLines applies line-based truncation using a head/tail split.
func TruncateLines(output string, maxLines int) string {
	if maxLines <= 0 {
		return output
	}
	lines := strings.Split(output, "\n")
	if len(lines) <= maxLines {
		return output
	}

	headCount := maxLines / 2
	tailCount := maxLines - headCount
	omitted := len(lines) - headCount - tailCount

	return strings.Join(lines[:headCount], "\n") +
		fmt.Sprintf("\n[... %d lines omitted ...]\n", omitted) +
		strings.Join(lines[len(lines)-tailCount:], "\n")
}
