// Package prompts assembles the text requests sent to the review model.
package prompts

import (
	"fmt"
	"strings"

	"github.com/patchpilot/pkg/models"
)

// responseShape is the JSON contract the model is instructed to follow. The
// field names are load-bearing: the reply parser unmarshals exactly these.
const responseShape = `{"reviews": [{"lineNumber": <line_number>, "reviewComment": "<review comment>", "quickSummary": "<one line summary>"}], "summary": "<overall summary>"}`

// Builder constructs one review prompt per hunk. A Builder is immutable and
// safe for concurrent use.
type Builder struct {
	instructions string
}

// NewBuilder returns a prompt builder. When instructions is non-empty it is
// appended to every prompt as repository-owner guidance.
func NewBuilder(instructions string) *Builder {
	return &Builder{instructions: instructions}
}

// BuildHunkPrompt renders the full request for one hunk: fixed reviewing
// instructions, the pull request title and description, the target file
// path, and the hunk's lines each prefixed with its canonical line number
// (new-file number when the line exists there, old-file number otherwise).
func (b *Builder) BuildHunkPrompt(file *models.FileDiff, hunk *models.Hunk, pr models.PullRequest) string {
	var p strings.Builder

	p.WriteString("Your task is to review pull requests. Instructions:\n")
	p.WriteString("- Provide the response in following JSON format: " + responseShape + "\n")
	p.WriteString("- Do not give positive comments or compliments.\n")
	p.WriteString("- Provide comments and suggestions ONLY if there is something to improve, otherwise \"reviews\" must be an empty array.\n")
	p.WriteString("- Write the comment in GitHub Markdown format.\n")
	p.WriteString("- Use the given description only for the overall context and only comment the code.\n")
	p.WriteString("- Ensure every quote character inside \"reviewComment\" and \"summary\" is escaped so the response stays valid JSON.\n")
	p.WriteString("- IMPORTANT: NEVER suggest adding comments to the code.\n")

	if b.instructions != "" {
		p.WriteString("\nAdditional instructions from the repository owner:\n")
		p.WriteString(b.instructions)
		p.WriteString("\n")
	}

	fmt.Fprintf(&p, "\nReview the following code diff in the file %q and take the pull request title and description into account when writing the response.\n", file.Path)
	fmt.Fprintf(&p, "\nPull request title: %s\n", pr.Title)
	p.WriteString("Pull request description:\n\n---\n")
	p.WriteString(pr.Description)
	p.WriteString("\n---\n")

	p.WriteString("\nGit diff to review:\n\n```diff\n")
	p.WriteString(hunk.Header)
	p.WriteByte('\n')
	for _, c := range hunk.Changes {
		fmt.Fprintf(&p, "%d %s\n", c.TargetLine(), c.Text)
	}
	p.WriteString("```\n")

	return p.String()
}
