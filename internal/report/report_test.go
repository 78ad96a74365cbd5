package report

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchpilot/pkg/models"
)

func debugHunk() *models.Hunk {
	return &models.Hunk{
		Header:   "@@ -40,2 +40,3 @@ function init()",
		OldStart: 40, OldCount: 2, NewStart: 40, NewCount: 3,
		Changes: []models.LineChange{
			{Kind: models.LineContext, OldLine: 40, NewLine: 40, Text: "function init() {"},
			{Kind: models.LineAdded, NewLine: 41, Text: "  console.log('x')"},
			{Kind: models.LineContext, OldLine: 41, NewLine: 42, Text: "  setup();"},
		},
	}
}

func TestRenderSingleAnnotation(t *testing.T) {
	t.Parallel()

	got := Render([]models.Annotation{{
		FilePath: "a.ts",
		Line:     41,
		Comment:  "Remove the debug statement before merging.",
		Summary:  "debug leftover",
		Hunk:     debugHunk(),
	}})

	want := strings.Join([]string{
		"### a.ts:41",
		"",
		"**debug leftover**",
		"",
		"Remove the debug statement before merging.",
		"",
		"<details>",
		"<summary>Diff excerpt</summary>",
		"",
		"```diff",
		"@@ -40,2 +40,3 @@ function init()",
		"40 40 function init() {",
		"+41   console.log('x')",
		"41 42   setup();",
		"```",
		"",
		"</details>",
		"",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestRenderJoinsBlocksWithRules(t *testing.T) {
	t.Parallel()

	annotations := []models.Annotation{
		{FilePath: "b.go", Line: 3, Comment: "first", Summary: "one"},
		{FilePath: "a.go", Line: 9, Comment: "second", Summary: "two"},
	}

	got := Render(annotations)

	// Input order is preserved even when paths would sort differently.
	require.Less(t, strings.Index(got, "### b.go:3"), strings.Index(got, "### a.go:9"))
	assert.Equal(t, 1, strings.Count(got, "\n---\n"))
}

func TestRenderExcerptMarksRemovedLines(t *testing.T) {
	t.Parallel()

	got := Render([]models.Annotation{{
		FilePath: "util.go",
		Line:     12,
		Comment:  "Dropped validation.",
		Hunk: &models.Hunk{
			Header:   "@@ -12,2 +12,1 @@",
			OldStart: 12, OldCount: 2, NewStart: 12, NewCount: 1,
			Changes: []models.LineChange{
				{Kind: models.LineRemoved, OldLine: 12, Text: "validate(input)"},
				{Kind: models.LineContext, OldLine: 13, NewLine: 12, Text: "process(input)"},
			},
		},
	}})

	assert.Contains(t, got, "-12 validate(input)")
	assert.Contains(t, got, "13 12 process(input)")
}

func TestRenderWithoutHunkOmitsExcerpt(t *testing.T) {
	t.Parallel()

	got := Render([]models.Annotation{{FilePath: "x.go", Line: 1, Comment: "note"}})

	assert.NotContains(t, got, "<details>")
	assert.Contains(t, got, "### x.go:1")
	assert.Contains(t, got, "note")
}

func TestRenderEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Render(nil))
	assert.Empty(t, Render([]models.Annotation{}))
}

func TestRenderEveryAnnotationAppears(t *testing.T) {
	t.Parallel()

	var annotations []models.Annotation
	for i := 1; i <= 7; i++ {
		annotations = append(annotations, models.Annotation{
			FilePath: fmt.Sprintf("pkg/f%d.go", i),
			Line:     i * 10,
			Comment:  fmt.Sprintf("comment %d", i),
			Summary:  fmt.Sprintf("summary %d", i),
		})
	}

	got := Render(annotations)

	for _, a := range annotations {
		assert.Contains(t, got, fmt.Sprintf("### %s:%d", a.FilePath, a.Line))
		assert.Contains(t, got, a.Comment)
		assert.Contains(t, got, "**"+a.Summary+"**")
	}
}

func TestRenderReportPrependsSummary(t *testing.T) {
	t.Parallel()

	result := models.ReviewResult{
		Annotations: []models.Annotation{{FilePath: "a.go", Line: 2, Comment: "tighten this"}},
		Summary:     "Two risky changes in the request handler.",
	}

	got := RenderReport(result)

	require.True(t, strings.HasPrefix(got, "## Review summary\n\nTwo risky changes"))
	assert.Contains(t, got, "### a.go:2")
}

func TestRenderReportSummaryOnly(t *testing.T) {
	t.Parallel()

	got := RenderReport(models.ReviewResult{Summary: "Looks routine."})

	assert.Equal(t, "## Review summary\n\nLooks routine.\n", got)
}

func TestRenderReportWithoutSummary(t *testing.T) {
	t.Parallel()

	result := models.ReviewResult{
		Annotations: []models.Annotation{{FilePath: "a.go", Line: 2, Comment: "x"}},
	}

	assert.Equal(t, Render(result.Annotations), RenderReport(result))
	assert.Empty(t, RenderReport(models.ReviewResult{}))
}
