// Package redact scrubs secret material from text before it is sent to an
// external model provider.
package redact

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/zricethezav/gitleaks/v8/detect"
	"github.com/zricethezav/gitleaks/v8/report"
)

// Detector finds secrets in a string. Satisfied by *detect.Detector.
type Detector interface {
	DetectString(content string) []report.Finding
}

// Scrubber replaces detected secrets with rule-tagged placeholders so a
// leaked credential in a diff never reaches a third-party API verbatim.
type Scrubber struct {
	detector Detector
	log      zerolog.Logger
}

// NewScrubber builds a scrubber on the default gitleaks ruleset.
func NewScrubber(log zerolog.Logger) (*Scrubber, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("loading default secret rules: %w", err)
	}
	return &Scrubber{detector: detector, log: log}, nil
}

// NewScrubberWithDetector builds a scrubber around a caller-supplied
// detector.
func NewScrubberWithDetector(detector Detector, log zerolog.Logger) *Scrubber {
	return &Scrubber{detector: detector, log: log}
}

// Scrub returns text with every detected secret replaced by
// "[REDACTED:<rule>]". Longer secrets are replaced first so that a finding
// nested inside another cannot corrupt the remaining matches.
func (s *Scrubber) Scrub(text string) string {
	if text == "" {
		return text
	}

	findings := s.detector.DetectString(text)
	if len(findings) == 0 {
		return text
	}

	sort.Slice(findings, func(i, j int) bool {
		return len(findings[i].Secret) > len(findings[j].Secret)
	})

	replaced := 0
	for _, f := range findings {
		if f.Secret == "" {
			continue
		}
		redacted := "[REDACTED:" + f.RuleID + "]"
		if n := strings.Count(text, f.Secret); n > 0 {
			text = strings.ReplaceAll(text, f.Secret, redacted)
			replaced += n
		}
	}

	if replaced > 0 {
		s.log.Debug().
			Int("findings", len(findings)).
			Int("replaced", replaced).
			Msg("redacted secrets from outbound text")
	}
	return text
}
