// Package generate defines the text generation collaborator consumed by the
// ingestion pipeline and task runners.
package generate

import "context"

// Action identifies a generation behavior.
type Action string

// Supported generation actions.
const (
	ActionSummarize Action = "summarize"
	ActionCompare   Action = "compare"
	ActionMerge     Action = "merge"
	ActionRedact    Action = "redact"
	ActionTranslate Action = "translate"
	ActionExtract   Action = "extract"
)

// Result holds generated text plus action-specific structured extras
// (e.g. the output filename for a merge or extracted fields for an extract).
type Result struct {
	Text   string                 `json:"result"`
	Extras map[string]interface{} `json:"extras,omitempty"`
}

// Generator produces text for a given action and input. Implementations may
// call a hosted model; the contract is text in, text plus extras out.
type Generator interface {
	Generate(ctx context.Context, action Action, input string, params map[string]interface{}) (*Result, error)
}
