// Package forge abstracts the code hosts a review runs against.
package forge

import (
	"context"
	"fmt"

	"github.com/patchpilot/pkg/models"
)

// Ref identifies one pull or merge request on a host.
type Ref struct {
	Owner  string
	Repo   string
	Number int
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// Client is everything the review driver needs from a code host: request
// metadata, the change text, and a place to put the report.
type Client interface {
	// PullRequest fetches the title and description for the request.
	PullRequest(ctx context.Context, ref Ref) (models.PullRequest, error)

	// Diff returns the full unified diff of the request.
	Diff(ctx context.Context, ref Ref) (string, error)

	// CompareDiff returns the unified diff between two commits, used when an
	// update event carries the before/after pair instead of a fresh request.
	CompareDiff(ctx context.Context, ref Ref, baseSHA, headSHA string) (string, error)

	// PublishReport posts the rendered report as a single request-level
	// comment. It never edits or pages earlier comments.
	PublishReport(ctx context.Context, ref Ref, body string) error
}
