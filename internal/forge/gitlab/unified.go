package gitlab

import "strings"

// fileChange is one per-file fragment as GitLab returns it: hunk text in
// Diff, file headers as structured fields.
type fileChange struct {
	OldPath string
	NewPath string
	Diff    string
	New     bool
	Renamed bool
	Deleted bool
}

// renderUnified rebuilds standard unified diff text from GitLab's per-file
// fragments, restoring the header lines the downstream parser keys on. A
// fragment with no hunk text (binary files) contributes headers only.
func renderUnified(changes []fileChange) string {
	var b strings.Builder
	for _, ch := range changes {
		b.WriteString("diff --git a/")
		b.WriteString(ch.OldPath)
		b.WriteString(" b/")
		b.WriteString(ch.NewPath)
		b.WriteByte('\n')

		switch {
		case ch.New:
			b.WriteString("new file mode 100644\n")
		case ch.Deleted:
			b.WriteString("deleted file mode 100644\n")
		case ch.Renamed:
			b.WriteString("rename from " + ch.OldPath + "\n")
			b.WriteString("rename to " + ch.NewPath + "\n")
		}

		if ch.New {
			b.WriteString("--- /dev/null\n")
		} else {
			b.WriteString("--- a/" + ch.OldPath + "\n")
		}
		if ch.Deleted {
			b.WriteString("+++ /dev/null\n")
		} else {
			b.WriteString("+++ b/" + ch.NewPath + "\n")
		}

		if ch.Diff != "" {
			b.WriteString(ch.Diff)
			if !strings.HasSuffix(ch.Diff, "\n") {
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}
