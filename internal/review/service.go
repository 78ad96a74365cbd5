// Package review walks a parsed diff and accumulates model annotations into
// a single result.
package review

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/patchpilot/internal/extract"
	"github.com/patchpilot/internal/prompts"
	"github.com/patchpilot/pkg/models"
)

// Service drives the per-hunk review loop: one prompt and one extraction per
// hunk, annotations accumulated in traversal order.
type Service struct {
	builder   *prompts.Builder
	extractor *extract.Extractor
	workers   int
	log       zerolog.Logger
}

// NewService creates the aggregation service. workers < 1 is treated as 1
// (strictly sequential, the default mode).
func NewService(builder *prompts.Builder, extractor *extract.Extractor, workers int, log zerolog.Logger) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		builder:   builder,
		extractor: extractor,
		workers:   workers,
		log:       log,
	}
}

// hunkJob pairs one hunk with its position in the traversal so parallel
// outcomes can be merged back in order.
type hunkJob struct {
	index int
	file  *models.FileDiff
	hunk  *models.Hunk
}

// Review visits every hunk of every file in input order and returns all
// annotations plus the concatenated narrative summary. A failed hunk
// contributes nothing and never aborts the run. Annotation order is file
// order, then hunk order, then reply order; no sorting happens anywhere.
func (s *Service) Review(ctx context.Context, files []*models.FileDiff, pr models.PullRequest) models.ReviewResult {
	jobs := collectJobs(files)
	s.log.Debug().
		Int("files", len(files)).
		Int("hunks", len(jobs)).
		Int("workers", s.workers).
		Msg("starting review traversal")

	if len(jobs) == 0 {
		return models.ReviewResult{}
	}

	var replies []*extract.Reply
	if s.workers == 1 {
		replies = s.runSequential(ctx, jobs, pr)
	} else {
		replies = s.runParallel(ctx, jobs, pr)
	}

	var result models.ReviewResult
	for i, job := range jobs {
		reply := replies[i]
		if reply == nil {
			continue
		}
		for _, r := range reply.Reviews {
			result.Annotations = append(result.Annotations, models.Annotation{
				FilePath: job.file.Path,
				Line:     r.LineNumber.Value,
				Comment:  r.ReviewComment,
				Summary:  r.QuickSummary,
				Hunk:     job.hunk,
			})
		}
		if reply.Summary != "" {
			if result.Summary != "" {
				result.Summary += "\n\n"
			}
			result.Summary += reply.Summary
		}
	}

	s.log.Info().
		Int("annotations", len(result.Annotations)).
		Int("summary_chars", len(result.Summary)).
		Msg("review traversal finished")
	return result
}

// collectJobs flattens the diff into (file, hunk) pairs. Deleted files never
// produce jobs, whether or not a path filter already removed them; files
// without hunks contribute no jobs and therefore no oracle calls.
func collectJobs(files []*models.FileDiff) []hunkJob {
	var jobs []hunkJob
	for _, f := range files {
		if f.IsDeleted {
			continue
		}
		for i := range f.Hunks {
			jobs = append(jobs, hunkJob{index: len(jobs), file: f, hunk: &f.Hunks[i]})
		}
	}
	return jobs
}

func (s *Service) runSequential(ctx context.Context, jobs []hunkJob, pr models.PullRequest) []*extract.Reply {
	replies := make([]*extract.Reply, len(jobs))
	for _, job := range jobs {
		replies[job.index] = s.reviewHunk(ctx, job, pr)
	}
	return replies
}

// runParallel fans jobs out to a bounded worker pool. Each worker writes
// only to its job's slot, so the merge stays in traversal order and one
// failed hunk cannot disturb another.
func (s *Service) runParallel(ctx context.Context, jobs []hunkJob, pr models.PullRequest) []*extract.Reply {
	replies := make([]*extract.Reply, len(jobs))

	jobCh := make(chan hunkJob, len(jobs))
	var wg sync.WaitGroup

	workerCount := s.workers
	if workerCount > len(jobs) {
		workerCount = len(jobs)
	}
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				replies[job.index] = s.reviewHunk(ctx, job, pr)
			}
		}()
	}

	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)
	wg.Wait()

	return replies
}

func (s *Service) reviewHunk(ctx context.Context, job hunkJob, pr models.PullRequest) *extract.Reply {
	prompt := s.builder.BuildHunkPrompt(job.file, job.hunk, pr)
	reply, err := s.extractor.Extract(ctx, prompt)
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("file", job.file.Path).
			Str("hunk", job.hunk.Header).
			Msg("hunk review failed, continuing without it")
		return nil
	}
	return reply
}
