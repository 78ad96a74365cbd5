// Package driver wires one review run end to end: fetch, parse, filter,
// redact, review, render, publish. It is the only layer that returns fatal
// errors; everything below it degrades per hunk.
package driver

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/patchpilot/internal/diff"
	"github.com/patchpilot/internal/forge"
	"github.com/patchpilot/internal/pathfilter"
	"github.com/patchpilot/internal/redact"
	"github.com/patchpilot/internal/report"
	"github.com/patchpilot/internal/review"
)

// Target tells the driver which change text to review. When BaseSHA and
// HeadSHA are both set only that commit range is reviewed, which is how
// synchronize events avoid re-reviewing the whole request.
type Target struct {
	Ref     forge.Ref
	BaseSHA string
	HeadSHA string
}

// Options collects the driver's collaborators. Scrubber may be nil to skip
// redaction; Out defaults to stdout and only matters for dry runs.
type Options struct {
	Forge    forge.Client
	Filter   *pathfilter.Filter
	Scrubber *redact.Scrubber
	Reviewer *review.Service
	DryRun   bool
	Out      io.Writer
}

// Driver runs reviews.
type Driver struct {
	forge    forge.Client
	parser   *diff.Parser
	filter   *pathfilter.Filter
	scrubber *redact.Scrubber
	reviewer *review.Service
	dryRun   bool
	out      io.Writer
	log      zerolog.Logger
}

// New assembles a driver.
func New(opts Options, log zerolog.Logger) *Driver {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Driver{
		forge:    opts.Forge,
		parser:   diff.NewParser(),
		filter:   opts.Filter,
		scrubber: opts.Scrubber,
		reviewer: opts.Reviewer,
		dryRun:   opts.DryRun,
		out:      out,
		log:      log,
	}
}

// Run executes one review. A run with nothing to review is a successful
// no-op; only fetch and publish failures are fatal.
func (d *Driver) Run(ctx context.Context, target Target) error {
	ref := target.Ref
	d.log.Info().Str("ref", ref.String()).Bool("dry_run", d.dryRun).Msg("review run starting")

	pr, err := d.forge.PullRequest(ctx, ref)
	if err != nil {
		return fmt.Errorf("fetching request metadata: %w", err)
	}

	var diffText string
	if target.BaseSHA != "" && target.HeadSHA != "" {
		diffText, err = d.forge.CompareDiff(ctx, ref, target.BaseSHA, target.HeadSHA)
	} else {
		diffText, err = d.forge.Diff(ctx, ref)
	}
	if err != nil {
		return fmt.Errorf("fetching diff: %w", err)
	}

	if strings.TrimSpace(diffText) == "" {
		d.log.Info().Str("ref", ref.String()).Msg("empty diff, nothing to review")
		return nil
	}

	if d.scrubber != nil {
		diffText = d.scrubber.Scrub(diffText)
		pr.Title = d.scrubber.Scrub(pr.Title)
		pr.Description = d.scrubber.Scrub(pr.Description)
	}

	files := d.parser.Parse(diffText)
	files = d.filter.Eligible(files)
	if len(files) == 0 {
		d.log.Info().Str("ref", ref.String()).Msg("no reviewable files after filtering")
		return nil
	}

	result := d.reviewer.Review(ctx, files, pr)
	if len(result.Annotations) == 0 {
		d.log.Info().Str("ref", ref.String()).Msg("no findings, nothing to publish")
		return nil
	}

	body := report.RenderReport(result)
	if d.dryRun {
		fmt.Fprintln(d.out, body)
		d.log.Info().Int("annotations", len(result.Annotations)).Msg("dry run, report printed")
		return nil
	}

	if err := d.forge.PublishReport(ctx, ref, body); err != nil {
		return fmt.Errorf("publishing report: %w", err)
	}
	d.log.Info().Str("ref", ref.String()).Int("annotations", len(result.Annotations)).Msg("review run finished")
	return nil
}
