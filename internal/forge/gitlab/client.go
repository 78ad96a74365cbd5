// Package gitlab adapts GitLab merge requests to the forge interface using
// the official client-go bindings. GitLab serves changes as per-file diff
// fragments, so the client reassembles them into one unified document before
// handing them to the parser.
package gitlab

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/patchpilot/internal/forge"
	"github.com/patchpilot/pkg/models"
)

// Client implements forge.Client against the GitLab API.
type Client struct {
	api *gitlab.Client
	log zerolog.Logger
}

// NewClient builds a GitLab client. baseURL is optional; empty means
// gitlab.com.
func NewClient(token, baseURL string, log zerolog.Logger) (*Client, error) {
	var opts []gitlab.ClientOptionFunc
	if baseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(baseURL))
	}
	api, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return &Client{api: api, log: log}, nil
}

// projectPath is the namespaced project identifier; client-go URL-escapes it.
func projectPath(ref forge.Ref) string {
	return ref.Owner + "/" + ref.Repo
}

// PullRequest fetches the merge request title and description.
func (c *Client) PullRequest(ctx context.Context, ref forge.Ref) (models.PullRequest, error) {
	mr, _, err := c.api.MergeRequests.GetMergeRequest(projectPath(ref), ref.Number, nil, gitlab.WithContext(ctx))
	if err != nil {
		return models.PullRequest{}, fmt.Errorf("fetching merge request %s: %w", ref, err)
	}

	return models.PullRequest{
		Owner:       ref.Owner,
		Repo:        ref.Repo,
		Number:      ref.Number,
		Title:       mr.Title,
		Description: mr.Description,
	}, nil
}

// Diff fetches all change fragments of the merge request and reassembles
// them into one unified diff.
func (c *Client) Diff(ctx context.Context, ref forge.Ref) (string, error) {
	opt := &gitlab.ListMergeRequestDiffsOptions{
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}

	var changes []fileChange
	for {
		diffs, resp, err := c.api.MergeRequests.ListMergeRequestDiffs(projectPath(ref), ref.Number, opt, gitlab.WithContext(ctx))
		if err != nil {
			return "", fmt.Errorf("fetching diffs for %s: %w", ref, err)
		}
		for _, d := range diffs {
			changes = append(changes, fileChange{
				OldPath: d.OldPath,
				NewPath: d.NewPath,
				Diff:    d.Diff,
				New:     d.NewFile,
				Renamed: d.RenamedFile,
				Deleted: d.DeletedFile,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	c.log.Debug().Str("ref", ref.String()).Int("files", len(changes)).Msg("merge request diffs fetched")
	return renderUnified(changes), nil
}

// CompareDiff returns the unified diff between two commits.
func (c *Client) CompareDiff(ctx context.Context, ref forge.Ref, baseSHA, headSHA string) (string, error) {
	cmp, _, err := c.api.Repositories.Compare(projectPath(ref), &gitlab.CompareOptions{
		From: gitlab.Ptr(baseSHA),
		To:   gitlab.Ptr(headSHA),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("comparing %s...%s in %s/%s: %w", baseSHA, headSHA, ref.Owner, ref.Repo, err)
	}

	changes := make([]fileChange, 0, len(cmp.Diffs))
	for _, d := range cmp.Diffs {
		changes = append(changes, fileChange{
			OldPath: d.OldPath,
			NewPath: d.NewPath,
			Diff:    d.Diff,
			New:     d.NewFile,
			Renamed: d.RenamedFile,
			Deleted: d.DeletedFile,
		})
	}
	return renderUnified(changes), nil
}

// PublishReport posts the report as a single merge request note.
func (c *Client) PublishReport(ctx context.Context, ref forge.Ref, body string) error {
	_, _, err := c.api.Notes.CreateMergeRequestNote(projectPath(ref), ref.Number, &gitlab.CreateMergeRequestNoteOptions{
		Body: gitlab.Ptr(body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("posting note on %s: %w", ref, err)
	}

	c.log.Info().Str("ref", ref.String()).Msg("report note posted")
	return nil
}
