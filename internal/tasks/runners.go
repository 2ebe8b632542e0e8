package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperdock/hokan/internal/generate"
	"github.com/hyperdock/hokan/internal/models"
	"github.com/hyperdock/hokan/internal/storage"
)

// execute dispatches the task to its kind-specific runner. Unknown kinds
// run as generic tasks.
func (o *Orchestrator) execute(ctx context.Context, task *models.Task, params map[string]interface{}) (map[string]interface{}, error) {
	switch task.Kind {
	case models.TaskSummarization:
		return o.runSummarization(ctx, task, params)
	case models.TaskMerge:
		return o.runMerge(ctx, task, params)
	case models.TaskTranslation:
		return o.runTranslation(ctx, task, params)
	case models.TaskAnalysis:
		return o.runAnalysis(ctx, task, params)
	case models.TaskBatch:
		return o.runBatch(ctx, task, params)
	default:
		return o.runGeneric(ctx, task, params)
	}
}

// runSummarization generates a summary for one document and writes it back
// onto the record.
func (o *Orchestrator) runSummarization(ctx context.Context, task *models.Task, params map[string]interface{}) (map[string]interface{}, error) {
	docID := stringParam(params, "document_id")
	if docID == "" {
		return nil, errors.New("missing document_id parameter")
	}
	doc, err := o.documents.Get(ctx, docID, task.OwnerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("document %s not found", docID)
		}
		return nil, err
	}

	gen, err := o.generator.Generate(ctx, generate.ActionSummarize, doc.ExtractedText, params)
	if err != nil {
		return nil, fmt.Errorf("generate summary: %w", err)
	}
	if err := o.documents.UpdateSummary(ctx, docID, task.OwnerID, gen.Text); err != nil {
		return nil, fmt.Errorf("store summary: %w", err)
	}
	return map[string]interface{}{
		"document_id": docID,
		"summary":     gen.Text,
		"word_count":  len(strings.Fields(doc.ExtractedText)),
	}, nil
}

// runMerge combines several documents. Every referenced document must exist
// for the current owner or the task fails.
func (o *Orchestrator) runMerge(ctx context.Context, task *models.Task, params map[string]interface{}) (map[string]interface{}, error) {
	ids := stringSliceParam(params, "document_ids")
	if len(ids) < 2 {
		return nil, errors.New("merge requires at least 2 document_ids")
	}
	found, err := o.documents.GetMany(ctx, ids, task.OwnerID)
	if err != nil {
		return nil, err
	}
	if len(found) != len(ids) {
		return nil, errors.New("one or more documents not found")
	}

	mergeParams := map[string]interface{}{"count": len(found)}
	gen, err := o.generator.Generate(ctx, generate.ActionMerge, "", mergeParams)
	if err != nil {
		return nil, fmt.Errorf("merge documents: %w", err)
	}

	names := make([]string, 0, len(found))
	for _, doc := range found {
		names = append(names, doc.OriginalFilename)
	}
	return map[string]interface{}{
		"merged_documents": len(found),
		"output_file":      gen.Extras["output_file"],
		"original_files":   names,
	}, nil
}

// runTranslation translates one document to the requested language.
func (o *Orchestrator) runTranslation(ctx context.Context, task *models.Task, params map[string]interface{}) (map[string]interface{}, error) {
	docID := stringParam(params, "document_id")
	if docID == "" {
		return nil, errors.New("missing document_id parameter")
	}
	doc, err := o.documents.Get(ctx, docID, task.OwnerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("document %s not found", docID)
		}
		return nil, err
	}

	gen, err := o.generator.Generate(ctx, generate.ActionTranslate, doc.ExtractedText, params)
	if err != nil {
		return nil, fmt.Errorf("translate document: %w", err)
	}
	return map[string]interface{}{
		"document_id":       docID,
		"target_language":   gen.Extras["target_language"],
		"original_length":   len(doc.ExtractedText),
		"translated_length": len(gen.Text),
	}, nil
}

// runAnalysis extracts structured data and insights from one document.
func (o *Orchestrator) runAnalysis(ctx context.Context, task *models.Task, params map[string]interface{}) (map[string]interface{}, error) {
	docID := stringParam(params, "document_id")
	if docID == "" {
		return nil, errors.New("missing document_id parameter")
	}
	doc, err := o.documents.Get(ctx, docID, task.OwnerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("document %s not found", docID)
		}
		return nil, err
	}

	analysisType := "general"
	if v := stringParam(params, "analysis_type"); v != "" {
		analysisType = v
	}
	gen, err := o.generator.Generate(ctx, generate.ActionExtract, doc.ExtractedText, params)
	if err != nil {
		return nil, fmt.Errorf("analyze document: %w", err)
	}
	return map[string]interface{}{
		"document_id":    docID,
		"analysis_type":  analysisType,
		"extracted_data": gen.Extras["extracted_data"],
		"insights":       gen.Text,
	}, nil
}

// runBatch applies one operation to each listed document independently. A
// per-document failure is recorded but does not fail the batch.
func (o *Orchestrator) runBatch(ctx context.Context, task *models.Task, params map[string]interface{}) (map[string]interface{}, error) {
	ids := stringSliceParam(params, "document_ids")
	if len(ids) == 0 {
		return nil, errors.New("missing document_ids parameter")
	}
	operation := "summarize"
	if v := stringParam(params, "operation"); v != "" {
		operation = v
	}
	var action generate.Action
	switch operation {
	case "summarize":
		action = generate.ActionSummarize
	case "analyze":
		action = generate.ActionExtract
	}

	results := make([]map[string]interface{}, 0, len(ids))
	successful := 0
	for _, docID := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry := map[string]interface{}{"document_id": docID}
		if action == "" {
			// Unrecognized operations mark the item processed without work.
			entry["status"] = "processed"
			successful++
		} else if err := o.batchOne(ctx, task.OwnerID, docID, action); err != nil {
			entry["status"] = "failed"
			entry["error"] = err.Error()
		} else {
			entry["status"] = "completed"
			successful++
		}
		results = append(results, entry)
	}
	return map[string]interface{}{
		"operation":       operation,
		"total_documents": len(ids),
		"successful":      successful,
		"failed":          len(ids) - successful,
		"results":         results,
	}, nil
}

// batchOne runs a single batch step against one document.
func (o *Orchestrator) batchOne(ctx context.Context, ownerID, docID string, action generate.Action) error {
	doc, err := o.documents.Get(ctx, docID, ownerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("document %s not found", docID)
		}
		return err
	}
	gen, err := o.generator.Generate(ctx, action, doc.ExtractedText, nil)
	if err != nil {
		return err
	}
	if action == generate.ActionSummarize {
		return o.documents.UpdateSummary(ctx, docID, ownerID, gen.Text)
	}
	return nil
}

// runGeneric acknowledges a task with no specific behavior.
func (o *Orchestrator) runGeneric(ctx context.Context, _ *models.Task, params map[string]interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"message":    "Task completed successfully",
		"parameters": params,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func stringParam(params map[string]interface{}, key string) string {
	if params == nil {
		return ""
	}
	v, _ := params[key].(string)
	return v
}

// stringSliceParam accepts either []string or the []interface{} a JSON
// decode produces.
func stringSliceParam(params map[string]interface{}, key string) []string {
	if params == nil {
		return nil
	}
	switch v := params[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
