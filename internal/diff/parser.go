package diff

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/patchpilot/pkg/models"
)

// NullDevice is the path git substitutes for the missing side of a creation
// or deletion.
const NullDevice = "/dev/null"

var (
	fileSplitRe  = regexp.MustCompile(`(?m)^diff --git a/`)
	hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@(.*)`)
)

// Parser turns unified diff text into structured per-file records. Parsing
// is best-effort: malformed fragments are skipped, never reported as errors,
// so any input yields a (possibly empty) set of files.
type Parser struct{}

// NewParser creates a new diff parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse parses a unified diff string into a slice of FileDiffs, one per
// file section. Deleted files are included and flagged; callers decide
// whether they continue downstream.
func (p *Parser) Parse(diffText string) []*models.FileDiff {
	if strings.TrimSpace(diffText) == "" {
		return nil
	}

	var files []*models.FileDiff
	for _, chunk := range fileSplitRe.Split(diffText, -1)[1:] {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		// Re-add the prefix the split consumed.
		fd := p.parseFileDiff("diff --git a/" + chunk)
		if fd != nil {
			files = append(files, fd)
		}
	}
	return files
}

func (p *Parser) parseFileDiff(text string) *models.FileDiff {
	lines := strings.Split(text, "\n")
	// The artifact of the final newline is not a diff line.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	oldPath, newPath := parseGitHeader(lines[0])

	var isNew, isDeleted, isRenamed bool
	for _, line := range lines[1:] {
		if strings.HasPrefix(line, "@@") {
			break
		}
		switch {
		case strings.HasPrefix(line, "--- "):
			if strings.TrimSpace(trimPathLine(line[4:])) == NullDevice {
				isNew = true
			}
		case strings.HasPrefix(line, "+++ "):
			if strings.TrimSpace(trimPathLine(line[4:])) == NullDevice {
				isDeleted = true
			}
		case strings.HasPrefix(line, "new file mode"):
			isNew = true
		case strings.HasPrefix(line, "deleted file mode"):
			isDeleted = true
		case strings.HasPrefix(line, "rename from "):
			isRenamed = true
			oldPath = strings.TrimPrefix(line, "rename from ")
		case strings.HasPrefix(line, "rename to "):
			isRenamed = true
			newPath = strings.TrimPrefix(line, "rename to ")
		}
	}

	path := newPath
	if path == "" || path == NullDevice || isDeleted {
		path = oldPath
	}
	if path == "" || path == NullDevice {
		return nil
	}

	fd := &models.FileDiff{
		Path:      path,
		IsDeleted: isDeleted,
		IsNew:     isNew,
		IsRenamed: isRenamed,
		Hunks:     p.extractHunks(lines),
	}
	if oldPath != "" && oldPath != path && oldPath != NullDevice {
		fd.OldPath = oldPath
	}
	return fd
}

// parseGitHeader parses "diff --git a/old/path b/new/path".
func parseGitHeader(header string) (string, string) {
	parts := strings.Fields(header)
	if len(parts) >= 4 {
		return strings.TrimPrefix(parts[2], "a/"), strings.TrimPrefix(parts[3], "b/")
	}
	return "", ""
}

// trimPathLine strips the a/ or b/ prefix git puts on ---/+++ paths.
func trimPathLine(s string) string {
	if strings.HasPrefix(s, "a/") || strings.HasPrefix(s, "b/") {
		return s[2:]
	}
	return s
}

func (p *Parser) extractHunks(lines []string) []models.Hunk {
	var hunks []models.Hunk

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if !strings.HasPrefix(line, "@@") {
			continue
		}

		matches := hunkHeaderRe.FindStringSubmatch(line)
		if len(matches) < 6 {
			// Unparseable header: skip the line, keep scanning.
			continue
		}

		oldStart, _ := strconv.Atoi(matches[1])
		oldCount := countOrDefault(matches[2])
		newStart, _ := strconv.Atoi(matches[3])
		newCount := countOrDefault(matches[4])

		hunk := models.Hunk{
			Header:   line,
			OldStart: oldStart,
			OldCount: oldCount,
			NewStart: newStart,
			NewCount: newCount,
		}

		// Walk the hunk body with two running counters.
		oldLineNo, newLineNo := oldStart, newStart

		i++
		for ; i < len(lines); i++ {
			hunkLine := lines[i]
			if strings.HasPrefix(hunkLine, "@@") || strings.HasPrefix(hunkLine, "diff --git") {
				// Next hunk or next file; hand the line back to the outer loop.
				i--
				break
			}

			var change models.LineChange
			switch {
			case strings.HasPrefix(hunkLine, "+"):
				change = models.LineChange{Kind: models.LineAdded, NewLine: newLineNo, Text: hunkLine[1:]}
				newLineNo++
			case strings.HasPrefix(hunkLine, "-"):
				change = models.LineChange{Kind: models.LineRemoved, OldLine: oldLineNo, Text: hunkLine[1:]}
				oldLineNo++
			case strings.HasPrefix(hunkLine, " "):
				change = models.LineChange{Kind: models.LineContext, OldLine: oldLineNo, NewLine: newLineNo, Text: hunkLine[1:]}
				oldLineNo++
				newLineNo++
			case hunkLine == `\ No newline at end of file`:
				// Metadata, not a line of code.
				continue
			default:
				// Context lines for empty source lines may lack the leading space.
				change = models.LineChange{Kind: models.LineContext, OldLine: oldLineNo, NewLine: newLineNo, Text: hunkLine}
				oldLineNo++
				newLineNo++
			}
			hunk.Changes = append(hunk.Changes, change)
		}
		hunks = append(hunks, hunk)
	}

	return hunks
}

func countOrDefault(s string) int {
	if s == "" {
		return 1
	}
	n, _ := strconv.Atoi(s)
	return n
}
