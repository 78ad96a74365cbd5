package models

// LineKind classifies a diff line relative to the two file versions.
type LineKind string

const (
	LineContext LineKind = "context"
	LineAdded   LineKind = "added"
	LineRemoved LineKind = "removed"
)

// LineChange represents a single line in a diff hunk. A zero line number
// means the line does not exist on that side of the diff: added lines carry
// only NewLine, removed lines only OldLine, context lines carry both.
type LineChange struct {
	Kind    LineKind `json:"kind"`
	OldLine int      `json:"old_line"`
	NewLine int      `json:"new_line"`
	Text    string   `json:"text"`
}

// TargetLine is the single line number a change is anchored to when shown to
// the reviewer model: the new-file number when the line exists there, the
// old-file number otherwise.
func (lc LineChange) TargetLine() int {
	if lc.NewLine > 0 {
		return lc.NewLine
	}
	return lc.OldLine
}

// Hunk represents one @@-delimited region of changes in a file diff.
type Hunk struct {
	Header   string       `json:"header"` // raw @@ line, kept verbatim
	OldStart int          `json:"old_start"`
	OldCount int          `json:"old_count"`
	NewStart int          `json:"new_start"`
	NewCount int          `json:"new_count"`
	Changes  []LineChange `json:"changes"`
}

// FileDiff represents the parsed diff for a single file. Path is the
// post-image path; for deletions it falls back to the pre-image path so the
// file stays nameable.
type FileDiff struct {
	Path      string `json:"path"`
	OldPath   string `json:"old_path,omitempty"`
	IsDeleted bool   `json:"is_deleted,omitempty"`
	IsNew     bool   `json:"is_new,omitempty"`
	IsRenamed bool   `json:"is_renamed,omitempty"`
	Hunks     []Hunk `json:"hunks"`
}

// PullRequest carries the request metadata that accompanies a diff through
// the review pipeline.
type PullRequest struct {
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Annotation is a single reviewer finding anchored to a file and line.
type Annotation struct {
	FilePath string
	Line     int
	Comment  string
	Summary  string
	Hunk     *Hunk // originating hunk, referenced by the report excerpt
}

// ReviewResult is the aggregate outcome of reviewing one diff: annotations
// in discovery order plus the concatenated narrative summary.
type ReviewResult struct {
	Annotations []Annotation
	Summary     string
}
