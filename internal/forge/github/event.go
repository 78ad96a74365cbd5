package github

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/patchpilot/internal/forge"
)

// Actions that carry a reviewable change. opened and reopened review the
// whole request; synchronize reviews only the pushed range.
const (
	ActionOpened      = "opened"
	ActionReopened    = "reopened"
	ActionSynchronize = "synchronize"
)

// Event is the subset of a pull_request webhook payload the reviewer acts
// on. Before and After are set only for synchronize events.
type Event struct {
	Action string
	Ref    forge.Ref
	Before string
	After  string
}

// Supported reports whether the event's action triggers a review at all.
// Unsupported actions are a no-op for the caller, not an error.
func (e Event) Supported() bool {
	switch e.Action {
	case ActionOpened, ActionReopened, ActionSynchronize:
		return true
	}
	return false
}

// Incremental reports whether only the before...after range should be
// reviewed instead of the full request diff.
func (e Event) Incremental() bool {
	return e.Action == ActionSynchronize && e.Before != "" && e.After != ""
}

// ReadEvent loads the event payload GitHub Actions leaves at
// GITHUB_EVENT_PATH.
func ReadEvent(path string) (Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Event{}, fmt.Errorf("reading event file: %w", err)
	}
	return ParseEvent(data)
}

// ParseEvent decodes a pull_request event payload.
func ParseEvent(data []byte) (Event, error) {
	var payload struct {
		Action      string `json:"action"`
		Number      int    `json:"number"`
		Before      string `json:"before"`
		After       string `json:"after"`
		PullRequest struct {
			Number int `json:"number"`
		} `json:"pull_request"`
		Repository struct {
			Name  string `json:"name"`
			Owner struct {
				Login string `json:"login"`
			} `json:"owner"`
		} `json:"repository"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return Event{}, fmt.Errorf("decoding event payload: %w", err)
	}

	number := payload.Number
	if number == 0 {
		number = payload.PullRequest.Number
	}
	if payload.Repository.Owner.Login == "" || payload.Repository.Name == "" || number == 0 {
		return Event{}, fmt.Errorf("event payload does not identify a pull request")
	}

	return Event{
		Action: payload.Action,
		Ref: forge.Ref{
			Owner:  payload.Repository.Owner.Login,
			Repo:   payload.Repository.Name,
			Number: number,
		},
		Before: payload.Before,
		After:  payload.After,
	}, nil
}
