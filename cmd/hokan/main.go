// Package main is the Hokan CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperdock/hokan/internal/blob"
	"github.com/hyperdock/hokan/internal/classify"
	"github.com/hyperdock/hokan/internal/cli"
	"github.com/hyperdock/hokan/internal/config"
	"github.com/hyperdock/hokan/internal/docs"
	"github.com/hyperdock/hokan/internal/embedding"
	"github.com/hyperdock/hokan/internal/extract"
	"github.com/hyperdock/hokan/internal/generate"
	"github.com/hyperdock/hokan/internal/models"
	"github.com/hyperdock/hokan/internal/server"
	"github.com/hyperdock/hokan/internal/storage"
	"github.com/hyperdock/hokan/internal/tasks"
	"github.com/hyperdock/hokan/internal/watcher"
	"github.com/hyperdock/hokan/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/hokan/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence so running from the project dir
// picks up the project's config.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "upload":
		runUpload()
	case "search":
		runSearch()
	case "tasks":
		runTasks()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("hokan version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// Rows left pending or processing by a previous process have no
	// goroutine anymore; fail them before accepting new work.
	if _, err := components.Orchestrator.ReconcileOrphans(context.Background()); err != nil {
		logger.Warn("orphan reconciliation failed", zap.Error(err))
	}

	if len(cfg.Watch.Directories) > 0 {
		watchSvc := watcher.NewWatcher(
			components.Documents,
			cfg.Watch.Owner,
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			watcher.WithLogger(logger),
		)
		watchCtx, watchCancel := context.WithCancel(context.Background())
		defer watchCancel()
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(
		components.Documents,
		components.Orchestrator,
		components.Storage,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
	components.Orchestrator.Wait()
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	user := fs.String("user", envUser(), "owner user id")
	category := fs.String("category", "", "category (empty = auto-categorize)")
	tags := fs.String("tags", "", "comma-separated tags")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: hokan upload [flags] <file>")
		os.Exit(1)
	}
	if *user == "" {
		fmt.Fprintln(os.Stderr, "A user id is required (-user flag or HOKAN_USER)")
		os.Exit(1)
	}
	path := fs.Arg(0)
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read file: %v\n", err)
		os.Exit(1)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err == nil {
		_, err = part.Write(content)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build request: %v\n", err)
		os.Exit(1)
	}
	if *category != "" {
		_ = mw.WriteField("category", *category)
	}
	if *tags != "" {
		_ = mw.WriteField("tags", *tags)
	}
	_ = mw.Close()

	req, err := http.NewRequest(http.MethodPost, *serverURL+"/api/v1/documents", &body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-ID", *user)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var doc models.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		fmt.Fprintf(os.Stderr, "Decode response failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document uploaded: %s (category: %s)\n", doc.ID, doc.Category)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	user := fs.String("user", envUser(), "owner user id")
	limit := fs.Int("limit", 10, "number of results")
	includeContent := fs.Bool("content", false, "include matching content excerpts")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *user == "" {
		fmt.Fprintln(os.Stderr, "A user id is required (-user flag or HOKAN_USER)")
		os.Exit(1)
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))

	req := &models.SearchRequest{
		Query:          query,
		Limit:          *limit,
		IncludeContent: *includeContent,
	}
	var response struct {
		Results []*models.SearchResult `json:"results"`
	}
	if err := postJSON(*serverURL+"/api/v1/search", *user, req, &response); err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	format := cli.OutputText
	if *outputFormat == "json" {
		format = cli.OutputJSON
	}
	if err := cli.WriteSearchResults(os.Stdout, response.Results, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runTasks() {
	fs := flag.NewFlagSet("tasks", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	user := fs.String("user", envUser(), "owner user id")
	submit := fs.String("submit", "", "submit a task of this type")
	params := fs.String("params", "", "task parameters as JSON (with -submit)")
	cancel := fs.String("cancel", "", "cancel the task with this id")
	stats := fs.Bool("stats", false, "show task statistics")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *user == "" {
		fmt.Fprintln(os.Stderr, "A user id is required (-user flag or HOKAN_USER)")
		os.Exit(1)
	}

	switch {
	case *submit != "":
		parameters := map[string]interface{}{}
		if *params != "" {
			if err := json.Unmarshal([]byte(*params), &parameters); err != nil {
				fmt.Fprintf(os.Stderr, "Invalid -params JSON: %v\n", err)
				os.Exit(1)
			}
		}
		body := map[string]interface{}{"task_type": *submit, "parameters": parameters}
		var task models.Task
		if err := postJSON(*serverURL+"/api/v1/tasks", *user, body, &task); err != nil {
			fmt.Fprintf(os.Stderr, "Submit failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Task submitted: %s (%s)\n", task.ID, task.Status)
	case *cancel != "":
		req, err := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/tasks/"+*cancel, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cancel failed: %v\n", err)
			os.Exit(1)
		}
		req.Header.Set("X-User-ID", *user)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cancel failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Task cancelled: %s\n", *cancel)
	case *stats:
		var result map[string]interface{}
		if err := getJSON(*serverURL+"/api/v1/tasks/stats", *user, &result); err != nil {
			fmt.Fprintf(os.Stderr, "Stats failed: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	default:
		var response struct {
			Tasks []*models.Task `json:"tasks"`
		}
		if err := getJSON(*serverURL+"/api/v1/tasks", *user, &response); err != nil {
			fmt.Fprintf(os.Stderr, "List tasks failed: %v\n", err)
			os.Exit(1)
		}
		format := cli.OutputText
		if *outputFormat == "json" {
			format = cli.OutputJSON
		}
		if err := cli.WriteTasks(os.Stdout, response.Tasks, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	user := fs.String("user", envUser(), "owner user id")
	_ = fs.Parse(os.Args[2:])

	if *user == "" {
		fmt.Fprintln(os.Stderr, "A user id is required (-user flag or HOKAN_USER)")
		os.Exit(1)
	}
	var status map[string]interface{}
	if err := getJSON(*serverURL+"/api/v1/status", *user, &status); err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(status)
}

func envUser() string {
	return os.Getenv("HOKAN_USER")
}

func postJSON(url, user string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", user)
	return doJSON(req, out)
}

func getJSON(url, user string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-User-ID", user)
	return doJSON(req, out)
}

func doJSON(req *http.Request, out interface{}) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds the wired service graph.
type Components struct {
	Storage      storage.Storage
	Embedder     embedding.Embedder
	Documents    *docs.Service
	Orchestrator *tasks.Orchestrator
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	blobs, err := blob.NewDiskStore(cfg.Storage.BlobPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}

	embedder := embedding.NewDeterministicEmbedder(cfg.Embedding.Dimensions, cfg.Embedding.CacheSize)

	documents := docs.NewService(
		store,
		blobs,
		extract.NewExtractor(),
		classify.NewKeywordClassifier(),
		embedder,
		generate.NewMockGenerator(),
		docs.WithLogger(logger),
	)

	orchestrator := tasks.NewOrchestrator(
		store,
		documents,
		generate.NewMockGenerator(),
		tasks.WithLogger(logger),
		tasks.WithGraceWindow(time.Duration(cfg.Tasks.GraceSeconds)*time.Second),
	)

	return &Components{
		Storage:      store,
		Embedder:     embedder,
		Documents:    documents,
		Orchestrator: orchestrator,
	}, nil
}

func printUsage() {
	fmt.Println(`hokan - Document safekeeping and search service

Usage:
  hokan server [flags]            Start the HTTP server
  hokan upload [flags] <file>     Upload a document
  hokan search [flags] <query>    Search documents
  hokan tasks [flags]             List, submit, or cancel background tasks
  hokan status [flags]            Show storage status
  hokan version                   Show version
  hokan help                      Show this help

Common flags:
  -server <url>   Server URL (default http://localhost:8080)
  -user <id>      Owner user id (default $HOKAN_USER)

Examples:
  hokan server -debug
  hokan upload -user alice -tags urgent,signed contract.pdf
  hokan search -user alice quarterly invoice
  hokan tasks -user alice -submit document_summarization -params '{"document_id":"..."}'`)
}
