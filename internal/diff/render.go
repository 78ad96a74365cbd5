package diff

import (
	"fmt"
	"strings"

	"github.com/patchpilot/pkg/models"
)

// RenderHunk projects a parsed hunk back into unified diff text: the
// preserved header line followed by one marker-prefixed line per change.
func RenderHunk(h *models.Hunk) string {
	var b strings.Builder
	b.WriteString(h.Header)
	b.WriteByte('\n')
	for _, c := range h.Changes {
		switch c.Kind {
		case models.LineAdded:
			b.WriteByte('+')
		case models.LineRemoved:
			b.WriteByte('-')
		default:
			b.WriteByte(' ')
		}
		b.WriteString(c.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderUnified is the inverse of Parser.Parse: it rebuilds unified diff
// text from parsed file records. Reparsing its output yields the same
// structure, which the tests rely on.
func RenderUnified(files []*models.FileDiff) string {
	var b strings.Builder
	for _, f := range files {
		oldName, newName := f.Path, f.Path
		if f.OldPath != "" {
			oldName = f.OldPath
		}

		fmt.Fprintf(&b, "diff --git a/%s b/%s\n", oldName, newName)
		switch {
		case f.IsNew:
			fmt.Fprintf(&b, "--- %s\n", NullDevice)
			fmt.Fprintf(&b, "+++ b/%s\n", newName)
		case f.IsDeleted:
			fmt.Fprintf(&b, "--- a/%s\n", oldName)
			fmt.Fprintf(&b, "+++ %s\n", NullDevice)
		default:
			if f.IsRenamed {
				fmt.Fprintf(&b, "rename from %s\n", oldName)
				fmt.Fprintf(&b, "rename to %s\n", newName)
			}
			fmt.Fprintf(&b, "--- a/%s\n", oldName)
			fmt.Fprintf(&b, "+++ b/%s\n", newName)
		}

		for i := range f.Hunks {
			b.WriteString(RenderHunk(&f.Hunks[i]))
		}
	}
	return b.String()
}
