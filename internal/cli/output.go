// Package cli provides output formatting for the Hokan command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/hyperdock/hokan/internal/models"
	"github.com/hyperdock/hokan/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	scoreColor  = color.New(color.FgGreen)
	dimColor    = color.New(color.Faint)
	failColor   = color.New(color.FgRed)
)

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, results []*models.SearchResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, results)
	}
	fmt.Fprintf(w, "\nFound %d result(s)\n\n", len(results))
	for i, result := range results {
		headerColor.Fprintf(w, "%d. %s\n", i+1, result.Document.OriginalFilename)
		scoreColor.Fprintf(w, "   score: %.2f", result.RelevanceScore)
		dimColor.Fprintf(w, "   [%s]", result.Document.Category)
		if len(result.Document.Tags) > 0 {
			dimColor.Fprintf(w, " %s", strings.Join(result.Document.Tags, ", "))
		}
		fmt.Fprintln(w)
		dimColor.Fprintf(w, "   id: %s\n", result.Document.ID)
		if result.MatchingContent != "" {
			fmt.Fprintf(w, "   %s\n", result.MatchingContent)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteDocuments writes a document listing to w in the given format.
func WriteDocuments(w io.Writer, documents []*models.Document, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, documents)
	}
	fmt.Fprintf(w, "\n%d document(s)\n\n", len(documents))
	for _, doc := range documents {
		headerColor.Fprintf(w, "%s\n", doc.OriginalFilename)
		dimColor.Fprintf(w, "  id: %s  category: %s  size: %d bytes\n", doc.ID, doc.Category, doc.FileSize)
		if len(doc.Tags) > 0 {
			dimColor.Fprintf(w, "  tags: %s\n", strings.Join(doc.Tags, ", "))
		}
		if doc.Summary != "" {
			fmt.Fprintf(w, "  %s\n", utils.Truncate(doc.Summary, 120))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteTasks writes a task listing to w in the given format.
func WriteTasks(w io.Writer, list []*models.Task, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, list)
	}
	fmt.Fprintf(w, "\n%d task(s)\n\n", len(list))
	for _, task := range list {
		headerColor.Fprintf(w, "%s", task.ID)
		fmt.Fprintf(w, "  %s  ", task.Kind)
		writeTaskStatus(w, task.Status)
		fmt.Fprintln(w)
		dimColor.Fprintf(w, "  created: %s\n", task.CreatedAt.Format("2006-01-02 15:04:05"))
		if task.Error != "" {
			failColor.Fprintf(w, "  error: %s\n", task.Error)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func writeTaskStatus(w io.Writer, status models.TaskState) {
	switch status {
	case models.TaskCompleted:
		scoreColor.Fprint(w, string(status))
	case models.TaskFailed, models.TaskCancelled:
		failColor.Fprint(w, string(status))
	default:
		fmt.Fprint(w, string(status))
	}
}

func writeJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
