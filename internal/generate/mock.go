package generate

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MockGenerator returns canned results without calling any model. It is the
// offline stand-in behind the Generator contract.
type MockGenerator struct{}

// NewMockGenerator returns a MockGenerator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate dispatches on action and returns deterministic canned output.
func (g *MockGenerator) Generate(ctx context.Context, action Action, input string, params map[string]interface{}) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch action {
	case ActionSummarize:
		return &Result{Text: mockSummary(input)}, nil
	case ActionCompare:
		return &Result{
			Text: "Documents show 3 key differences in pricing and 2 differences in terms. Overall similarity: 78%",
			Extras: map[string]interface{}{
				"differences":      3,
				"similarities":     5,
				"similarity_score": 0.78,
			},
		}, nil
	case ActionMerge:
		count := intParam(params, "count", 2)
		return &Result{
			Text: fmt.Sprintf("Successfully merged %d documents into a single PDF.", count),
			Extras: map[string]interface{}{
				"output_file": fmt.Sprintf("merged_document_%s.pdf", time.Now().Format("20060102_150405")),
			},
		}, nil
	case ActionRedact:
		return &Result{
			Text: "Sensitive information (SSN, addresses, phone numbers) has been redacted.",
			Extras: map[string]interface{}{
				"redacted_items": []string{"SSN", "addresses", "phone numbers"},
			},
		}, nil
	case ActionTranslate:
		lang := stringParam(params, "target_language", "Spanish")
		return &Result{
			Text: fmt.Sprintf("Document has been translated to %s.", lang),
			Extras: map[string]interface{}{
				"target_language": lang,
			},
		}, nil
	case ActionExtract:
		return &Result{
			Text: "Extracted key information: Names, dates, amounts, and signatures.",
			Extras: map[string]interface{}{
				"extracted_data": map[string]interface{}{
					"names":      []string{"John Doe", "Jane Smith"},
					"dates":      []string{"2024-01-15", "2024-02-20"},
					"amounts":    []string{"$50,000", "$25,000"},
					"signatures": 2,
				},
			},
		}, nil
	default:
		return &Result{Text: fmt.Sprintf("Action %q completed successfully.", string(action))}, nil
	}
}

// mockSummary bands the summary text by word count.
func mockSummary(content string) string {
	if content == "" {
		return "Document appears to be empty or unreadable."
	}
	words := len(strings.Fields(content))
	switch {
	case words < 100:
		return fmt.Sprintf("Brief document (%d words) containing basic information.", words)
	case words < 500:
		return fmt.Sprintf("Medium-length document (%d words) covering key business topics with important details.", words)
	default:
		return fmt.Sprintf("Comprehensive document (%d words) with detailed information including multiple sections and extensive content.", words)
	}
}

func stringParam(params map[string]interface{}, key, fallback string) string {
	if params == nil {
		return fallback
	}
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intParam(params map[string]interface{}, key string, fallback int) int {
	if params == nil {
		return fallback
	}
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
