// Package extract turns raw oracle completions into validated, line-anchored
// review entries.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog"

	"github.com/patchpilot/internal/oracle"
)

// LineNumber accepts both encodings models emit for a line reference: a JSON
// number or a numeric string. Anything that does not resolve to a positive
// integer is kept as raw text and marked invalid; the entry it belongs to is
// dropped with a diagnostic rather than published with a made-up anchor.
type LineNumber struct {
	Value int
	Valid bool
	Raw   string
}

// UnmarshalJSON never fails: an unusable value yields Valid=false so that a
// single bad entry cannot sink the rest of the reply.
func (n *LineNumber) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	s = strings.Trim(s, `"`)
	s = strings.TrimSpace(s)
	n.Raw = s

	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		n.Value = v
		n.Valid = true
		return nil
	}
	// Some models answer with "42.0".
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		n.Value = int(f)
		n.Valid = true
		return nil
	}
	n.Valid = false
	return nil
}

// Review is one entry of the reply's "reviews" array. The JSON field names
// mirror the instruction text verbatim; changing them breaks the contract
// with the prompt builder.
type Review struct {
	LineNumber    LineNumber `json:"lineNumber"`
	ReviewComment string     `json:"reviewComment"`
	QuickSummary  string     `json:"quickSummary"`
}

// Reply is the parsed oracle response for one hunk.
type Reply struct {
	Reviews []Review `json:"reviews"`
	Summary string   `json:"summary"`
}

// Extractor runs one prompt through the oracle and parses the answer.
type Extractor struct {
	oracle oracle.Oracle
	log    zerolog.Logger
}

// NewExtractor creates an extractor over the given oracle.
func NewExtractor(o oracle.Oracle, log zerolog.Logger) *Extractor {
	return &Extractor{oracle: o, log: log}
}

// Extract sends the prompt and returns the validated reply. An empty Reviews
// slice is a normal outcome (nothing worth commenting). Any error is
// recoverable: the hunk contributes nothing and the run continues.
func (e *Extractor) Extract(ctx context.Context, prompt string) (*Reply, error) {
	raw, err := e.oracle.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("querying oracle: %w", err)
	}

	reply, err := ParseReply(raw)
	if err != nil {
		e.log.Warn().
			Err(err).
			Str("reply_head", truncate(raw, 200)).
			Msg("discarding unparseable oracle reply")
		return nil, err
	}

	kept := make([]Review, 0, len(reply.Reviews))
	for _, r := range reply.Reviews {
		if !r.LineNumber.Valid {
			e.log.Warn().
				Str("line_number", r.LineNumber.Raw).
				Str("comment", truncate(r.ReviewComment, 120)).
				Msg("dropping review entry with unusable line number")
			continue
		}
		kept = append(kept, r)
	}
	reply.Reviews = kept
	return reply, nil
}

// ParseReply locates the JSON object inside a completion (models wrap it in
// fences or prose), repairs it when malformed, and unmarshals it into the
// typed reply.
func ParseReply(raw string) (*Reply, error) {
	jsonStr := extractJSON(raw)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON found in oracle reply")
	}

	var reply Reply
	if err := json.Unmarshal([]byte(jsonStr), &reply); err == nil {
		return &reply, nil
	}

	repaired, err := jsonrepair.JSONRepair(jsonStr)
	if err != nil {
		return nil, fmt.Errorf("repairing oracle reply JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &reply); err != nil {
		return nil, fmt.Errorf("parsing repaired oracle reply: %w", err)
	}
	return &reply, nil
}

// extractJSON extracts JSON content from mixed text/JSON completions.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") {
		return raw
	}

	// Fenced block, with or without a language tag.
	if strings.Contains(raw, "```") {
		lines := strings.Split(raw, "\n")
		var jsonLines []string
		inCodeBlock := false
		for _, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				inCodeBlock = !inCodeBlock
				continue
			}
			if inCodeBlock {
				jsonLines = append(jsonLines, line)
			}
		}
		if len(jsonLines) > 0 {
			return strings.TrimSpace(strings.Join(jsonLines, "\n"))
		}
	}

	// First balanced object in surrounding prose.
	startIdx := strings.Index(raw, "{")
	if startIdx == -1 {
		return ""
	}
	count := 0
	for i := startIdx; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			count++
		case '}':
			count--
			if count == 0 {
				return raw[startIdx : i+1]
			}
		}
	}
	// Unterminated object: hand the tail to the repair pass.
	return raw[startIdx:]
}

func truncate(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
