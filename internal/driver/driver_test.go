package driver

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gitleaks "github.com/zricethezav/gitleaks/v8/report"

	"github.com/patchpilot/internal/extract"
	"github.com/patchpilot/internal/forge"
	"github.com/patchpilot/internal/pathfilter"
	"github.com/patchpilot/internal/prompts"
	"github.com/patchpilot/internal/redact"
	"github.com/patchpilot/internal/review"
	"github.com/patchpilot/pkg/models"
)

const sampleDiff = `diff --git a/a.ts b/a.ts
--- a/a.ts
+++ b/a.ts
@@ -41,1 +41,2 @@
 prelude();
+console.log('x')
`

const debugReply = `{"reviews": [{"lineNumber": 42, "reviewComment": "Remove debug statement", "quickSummary": "debug leftover"}], "summary": "One debug call added."}`

type fakeForge struct {
	pr         models.PullRequest
	prErr      error
	diff       string
	diffErr    error
	compare    string
	compareErr error
	publishErr error

	diffCalls    int
	compareCalls int
	compareBase  string
	compareHead  string
	published    []string
}

func (f *fakeForge) PullRequest(context.Context, forge.Ref) (models.PullRequest, error) {
	return f.pr, f.prErr
}

func (f *fakeForge) Diff(context.Context, forge.Ref) (string, error) {
	f.diffCalls++
	return f.diff, f.diffErr
}

func (f *fakeForge) CompareDiff(_ context.Context, _ forge.Ref, base, head string) (string, error) {
	f.compareCalls++
	f.compareBase = base
	f.compareHead = head
	return f.compare, f.compareErr
}

func (f *fakeForge) PublishReport(_ context.Context, _ forge.Ref, body string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, body)
	return nil
}

type recordingOracle struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (o *recordingOracle) Complete(_ context.Context, prompt string) (string, error) {
	o.mu.Lock()
	o.prompts = append(o.prompts, prompt)
	o.mu.Unlock()
	if o.err != nil {
		return "", o.err
	}
	return o.reply, nil
}

type fakeDetector struct {
	findings []gitleaks.Finding
}

func (d fakeDetector) DetectString(string) []gitleaks.Finding {
	return d.findings
}

func newTestDriver(t *testing.T, f *fakeForge, o *recordingOracle, opts Options) *Driver {
	t.Helper()
	opts.Forge = f
	if opts.Filter == nil {
		opts.Filter = pathfilter.New("")
	}
	opts.Reviewer = review.NewService(
		prompts.NewBuilder(""),
		extract.NewExtractor(o, zerolog.Nop()),
		1,
		zerolog.Nop(),
	)
	return New(opts, zerolog.Nop())
}

func testTarget() Target {
	return Target{Ref: forge.Ref{Owner: "octo", Repo: "widgets", Number: 7}}
}

func TestRunPublishesReport(t *testing.T) {
	t.Parallel()

	f := &fakeForge{
		pr:   models.PullRequest{Title: "Add logging", Description: "Adds console output."},
		diff: sampleDiff,
	}
	o := &recordingOracle{reply: debugReply}
	d := newTestDriver(t, f, o, Options{})

	require.NoError(t, d.Run(context.Background(), testTarget()))

	require.Len(t, f.published, 1)
	body := f.published[0]
	assert.Contains(t, body, "## Review summary")
	assert.Contains(t, body, "One debug call added.")
	assert.Contains(t, body, "### a.ts:42")
	assert.Contains(t, body, "Remove debug statement")
	assert.Equal(t, 1, f.diffCalls)
	assert.Zero(t, f.compareCalls)
}

func TestRunUsesCompareForCommitRange(t *testing.T) {
	t.Parallel()

	f := &fakeForge{compare: sampleDiff}
	o := &recordingOracle{reply: debugReply}
	d := newTestDriver(t, f, o, Options{})

	target := testTarget()
	target.BaseSHA = "abc123"
	target.HeadSHA = "def456"
	require.NoError(t, d.Run(context.Background(), target))

	assert.Equal(t, 1, f.compareCalls)
	assert.Equal(t, "abc123", f.compareBase)
	assert.Equal(t, "def456", f.compareHead)
	assert.Zero(t, f.diffCalls)
	assert.Len(t, f.published, 1)
}

func TestRunEmptyDiffIsNoop(t *testing.T) {
	t.Parallel()

	f := &fakeForge{diff: "\n"}
	o := &recordingOracle{reply: debugReply}
	d := newTestDriver(t, f, o, Options{})

	require.NoError(t, d.Run(context.Background(), testTarget()))
	assert.Empty(t, f.published)
	assert.Empty(t, o.prompts)
}

func TestRunAllFilesExcludedIsNoop(t *testing.T) {
	t.Parallel()

	f := &fakeForge{diff: sampleDiff}
	o := &recordingOracle{reply: debugReply}
	d := newTestDriver(t, f, o, Options{Filter: pathfilter.New("*.ts")})

	require.NoError(t, d.Run(context.Background(), testTarget()))
	assert.Empty(t, f.published)
	assert.Empty(t, o.prompts)
}

func TestRunNoFindingsPublishesNothing(t *testing.T) {
	t.Parallel()

	f := &fakeForge{diff: sampleDiff}
	o := &recordingOracle{reply: `{"reviews": [], "summary": "Nothing of note."}`}
	d := newTestDriver(t, f, o, Options{})

	require.NoError(t, d.Run(context.Background(), testTarget()))
	assert.Empty(t, f.published)
	assert.Len(t, o.prompts, 1)
}

func TestRunDryRunPrintsInsteadOfPublishing(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	f := &fakeForge{diff: sampleDiff}
	o := &recordingOracle{reply: debugReply}
	d := newTestDriver(t, f, o, Options{DryRun: true, Out: &out})

	require.NoError(t, d.Run(context.Background(), testTarget()))

	assert.Empty(t, f.published)
	assert.Contains(t, out.String(), "### a.ts:42")
}

func TestRunScrubsSecretsBeforePrompting(t *testing.T) {
	t.Parallel()

	leakyDiff := strings.ReplaceAll(sampleDiff, "console.log('x')", "apiKey = \"hunter2\"")
	f := &fakeForge{
		pr:   models.PullRequest{Title: "Uses hunter2", Description: "Token hunter2 inline."},
		diff: leakyDiff,
	}
	o := &recordingOracle{reply: debugReply}

	scrubber := redact.NewScrubberWithDetector(fakeDetector{findings: []gitleaks.Finding{
		{RuleID: "generic-api-key", Secret: "hunter2"},
	}}, zerolog.Nop())
	d := newTestDriver(t, f, o, Options{Scrubber: scrubber})

	require.NoError(t, d.Run(context.Background(), testTarget()))

	require.Len(t, o.prompts, 1)
	prompt := o.prompts[0]
	assert.NotContains(t, prompt, "hunter2")
	assert.Contains(t, prompt, "[REDACTED:generic-api-key]")
}

func TestRunMetadataFailureIsFatal(t *testing.T) {
	t.Parallel()

	f := &fakeForge{prErr: errors.New("nope")}
	d := newTestDriver(t, f, &recordingOracle{}, Options{})

	err := d.Run(context.Background(), testTarget())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching request metadata")
}

func TestRunPublishFailureIsFatal(t *testing.T) {
	t.Parallel()

	f := &fakeForge{diff: sampleDiff, publishErr: errors.New("503")}
	o := &recordingOracle{reply: debugReply}
	d := newTestDriver(t, f, o, Options{})

	err := d.Run(context.Background(), testTarget())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publishing report")
}
