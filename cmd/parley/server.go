package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/parley-ai/parley/internal/agent"
	"github.com/parley-ai/parley/internal/api"
	"github.com/parley-ai/parley/internal/config"
	"github.com/parley-ai/parley/internal/index"
	"github.com/parley-ai/parley/internal/ingest"
	"github.com/parley-ai/parley/internal/llm"
	"github.com/parley-ai/parley/internal/rag"
	"github.com/parley-ai/parley/internal/storage"
	"github.com/parley-ai/parley/internal/validate"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the parley server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running parley server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show parley system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "parley.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "parley version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("parley is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("parley is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// One provider client serves chat, validation, and embeddings.
	client := llm.NewClient(cfg.Provider.BaseURL, cfg.Provider.APIKey)

	// Vector index over the shared SQLite connection.
	embedder := index.NewEmbedder(client, cfg.Provider.EmbedModel)
	vectors := index.NewSQLiteStore(store.DB())
	ix := index.New(embedder, vectors)

	// Tool-calling agent.
	registry := agent.NewRegistry()
	if err := registry.Register(agent.WeatherTool{}); err != nil {
		return fmt.Errorf("registering tools: %w", err)
	}
	ag := agent.New(client, cfg.Provider.ChatModel, registry)

	// Generate-validate-retry controller.
	validator := validate.NewValidator(client, cfg.Provider.ValidatorModel)
	controller := validate.NewController(ag, validator)

	// Retrieve-then-generate pipeline.
	pipeline := rag.NewWithTopK(ix, client, cfg.Provider.ChatModel, cfg.Retrieval.TopK)

	// Index any *.txt files dropped into the documents directory. Failures
	// here should not keep the server from coming up.
	if err := seedDocuments(ctx, cfg.Documents.Dir, store, ix); err != nil {
		slog.Warn("seeding documents", "error", err)
	}

	handler := api.NewHandler(api.Deps{
		Store:     store,
		Chat:      client,
		ChatModel: cfg.Provider.ChatModel,
		Agent:     ag,
		Validated: controller,
		RAG:       pipeline,
		Index:     ix,
		Token:     cfg.Server.APIToken,
	})

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{Index: ix, RAG: pipeline})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "parley listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// seedDocuments indexes *.txt files from dir that haven't been indexed yet.
// Files already present (by filename) are skipped, so restarts don't
// re-embed the corpus.
func seedDocuments(ctx context.Context, dir string, store *storage.Store, ix *index.Index) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("documents directory absent, skipping seed", "dir", dir)
		return nil
	}
	if err != nil {
		return err
	}

	seeded := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".txt") {
			continue
		}

		exists, err := store.HasDocument(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("reading seed document", "file", name, "error", err)
			continue
		}

		chunks, err := ingest.Ingest(raw, name)
		if err != nil {
			slog.Warn("skipping seed document", "file", name, "error", err)
			continue
		}

		docID := uuid.NewString()
		created, err := ix.Add(ctx, docID, chunks)
		if err != nil {
			return fmt.Errorf("indexing %s: %w", name, err)
		}
		if err := store.SaveDocument(ctx, storage.Document{
			ID:       docID,
			Filename: name,
			FileType: ingest.FileType(name),
			Chunks:   created,
		}); err != nil {
			return fmt.Errorf("recording %s: %w", name, err)
		}

		slog.Info("seeded document", "file", name, "chunks", created)
		seeded++
	}

	if seeded > 0 {
		slog.Info("document seeding complete", "count", seeded)
	}
	return nil
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("parley is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop parley (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to parley (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
			running = true
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Provider", "%s", cfg.Provider.BaseURL)
	printStatus("Chat model", "%s", cfg.Provider.ChatModel)
	printStatus("Validator model", "%s", cfg.Provider.ValidatorModel)
	printStatus("Embed model", "%s", cfg.Provider.EmbedModel)

	// Show doc/interaction counts if server is running.
	if running {
		docsResp, err := apiGet(client, serverURL+"/documents?limit=100", cfg.Server.APIToken)
		if err == nil {
			var docs []json.RawMessage
			if json.NewDecoder(docsResp.Body).Decode(&docs) == nil {
				printStatus("Documents", "%s", countLabel(len(docs), 100))
			}
			docsResp.Body.Close()
		}
		interResp, err2 := apiGet(client, serverURL+"/interactions?limit=100", cfg.Server.APIToken)
		if err2 == nil {
			var interactions []json.RawMessage
			if json.NewDecoder(interResp.Body).Decode(&interactions) == nil {
				printStatus("Interactions", "%s", countLabel(len(interactions), 100))
			}
			interResp.Body.Close()
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}

func apiGet(client *http.Client, url, token string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return client.Do(req)
}
