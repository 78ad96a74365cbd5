// Package report renders review annotations into a PR-comment-friendly
// markdown document.
package report

import (
	"fmt"
	"strings"

	"github.com/patchpilot/pkg/models"
)

// Render produces one markdown block per annotation, in input order, joined
// by horizontal rules. It never reorders or deduplicates; the input order is
// the file/hunk/reply discovery order and the report must mirror it.
func Render(annotations []models.Annotation) string {
	if len(annotations) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(annotations))
	for _, a := range annotations {
		blocks = append(blocks, renderAnnotation(a))
	}
	return strings.Join(blocks, "\n\n---\n\n") + "\n"
}

// RenderReport renders the full posted body: the narrative summary section
// when present, followed by the annotation blocks.
func RenderReport(result models.ReviewResult) string {
	body := Render(result.Annotations)
	if result.Summary == "" {
		return body
	}

	var b strings.Builder
	b.WriteString("## Review summary\n\n")
	b.WriteString(strings.TrimRight(result.Summary, "\n"))
	b.WriteString("\n")
	if body != "" {
		b.WriteString("\n")
		b.WriteString(body)
	}
	return b.String()
}

func renderAnnotation(a models.Annotation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "### %s:%d\n", a.FilePath, a.Line)
	if a.Summary != "" {
		fmt.Fprintf(&b, "\n**%s**\n", a.Summary)
	}
	if a.Comment != "" {
		fmt.Fprintf(&b, "\n%s\n", strings.TrimRight(a.Comment, "\n"))
	}
	if a.Hunk != nil {
		b.WriteString("\n")
		writeExcerpt(&b, a.Hunk)
	}

	return strings.TrimRight(b.String(), "\n")
}

// writeExcerpt re-renders the originating hunk inside a collapsible diff
// fence. Added lines keep the + marker and their new-file number, removed
// lines the - marker and their old-file number, context lines show both
// numbers unmarked. The ```diff fence then highlights +/- lines on GitHub.
func writeExcerpt(b *strings.Builder, h *models.Hunk) {
	b.WriteString("<details>\n<summary>Diff excerpt</summary>\n\n```diff\n")
	b.WriteString(h.Header)
	b.WriteByte('\n')
	for _, c := range h.Changes {
		switch c.Kind {
		case models.LineAdded:
			fmt.Fprintf(b, "+%d %s\n", c.NewLine, c.Text)
		case models.LineRemoved:
			fmt.Fprintf(b, "-%d %s\n", c.OldLine, c.Text)
		default:
			fmt.Fprintf(b, "%d %d %s\n", c.OldLine, c.NewLine, c.Text)
		}
	}
	b.WriteString("```\n\n</details>\n")
}
