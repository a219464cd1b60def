package citations

import (
	"fmt"
	"strings"
)

// Format renders source previews as a trailing block: a Sources header
// followed by one numbered line per preview, each ending with an ellipsis
// marker. The caller appends the block to the final cumulative answer only,
// never to intermediate streaming snapshots. Empty input produces an empty
// string.
func Format(previews []string) string {
	if len(previews) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nSources:\n")
	for i, src := range previews {
		fmt.Fprintf(&b, "[%d] %s...\n", i+1, src)
	}
	return b.String()
}
