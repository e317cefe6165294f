package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// --- ask ---

var strategyPaths = map[string]string{
	"direct":    "/ask",
	"agent":     "/ask-agent",
	"validated": "/ask-validated",
	"rag":       "/ask-rag",
}

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Ask a question",
	Long: `Ask a question using one of the answer strategies.

Examples:
  parley ask "What is the capital of France?"
  parley ask --strategy agent "What's the weather in Paris?"
  parley ask --strategy validated "Summarize the trade-offs of WAL mode"
  parley ask --strategy rag "What does the onboarding doc say about tokens?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := strings.Join(args, " ")
		strategy, _ := cmd.Flags().GetString("strategy")

		path, ok := strategyPaths[strategy]
		if !ok {
			return fmt.Errorf("unknown strategy %q (want direct, agent, validated, or rag)", strategy)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), path, map[string]any{"prompt": prompt})
		if err != nil {
			return err
		}

		var result struct {
			Response         string `json:"response"`
			ToolUsed         bool   `json:"tool_used"`
			ValidationStatus string `json:"validation_status"`
			TotalAttempts    int    `json:"total_attempts"`
			NumDocuments     int    `json:"num_documents_retrieved"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Response)

		switch strategy {
		case "agent":
			printStatus("Tool used", "%t", result.ToolUsed)
		case "validated":
			printStatus("Validation", "%s after %d attempt(s)", result.ValidationStatus, result.TotalAttempts)
		case "rag":
			printStatus("Context", "%d document chunk(s)", result.NumDocuments)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().String("strategy", "direct", "answer strategy: direct, agent, validated, or rag")
}

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a document into the vector index",
	Long: `Upload a .txt, .doc, or .docx file. The server chunks it, embeds the
chunks, and makes them available to the rag strategy.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.postFile(cmd.Context(), "/upload-document", filepath.Base(args[0]), data)
		if err != nil {
			return err
		}

		var result struct {
			Message       string `json:"message"`
			ChunksCreated int    `json:"chunks_created"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("%s (%d chunks)", result.Message, result.ChunksCreated)
		return nil
	},
}

// --- docs ---

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage indexed documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/documents?limit=%d", limit))
		if err != nil {
			return err
		}

		var docs []struct {
			ID       string `json:"id"`
			Filename string `json:"filename"`
			FileType string `json:"file_type"`
			Uploaded bool   `json:"uploaded"`
			Chunks   int    `json:"chunks"`
		}
		if err := decodeJSON(resp, &docs); err != nil {
			return err
		}

		if len(docs) == 0 {
			fmt.Println("No documents indexed.")
			return nil
		}

		for _, d := range docs {
			origin := "seeded"
			if d.Uploaded {
				origin = "uploaded"
			}
			fmt.Printf("%s  %-30s  %s, %d chunks (%s)\n",
				colorize(colorCyan, d.ID[:8]),
				d.Filename,
				d.FileType,
				d.Chunks,
				origin,
			)
		}
		return nil
	},
}

func init() {
	docsListCmd.Flags().Int("limit", 20, "maximum number of documents to list")
	docsCmd.AddCommand(docsListCmd)
}

// --- interactions ---

var interactionsCmd = &cobra.Command{
	Use:   "interactions",
	Short: "Inspect the interaction audit log",
}

var interactionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent interactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/interactions?limit=%d", limit))
		if err != nil {
			return err
		}

		var interactions []struct {
			ID        string `json:"id"`
			CreatedAt string `json:"created_at"`
			Method    string `json:"method"`
			Prompt    string `json:"prompt"`
		}
		if err := decodeJSON(resp, &interactions); err != nil {
			return err
		}

		if len(interactions) == 0 {
			fmt.Println("No interactions found.")
			return nil
		}

		for _, ix := range interactions {
			prompt := ix.Prompt
			if len(prompt) > 80 {
				prompt = prompt[:80] + "..."
			}
			fmt.Printf("%s  %s  %-15s  %s\n",
				colorize(colorCyan, ix.ID[:8]),
				ix.CreatedAt,
				ix.Method,
				prompt,
			)
		}
		return nil
	},
}

var interactionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single interaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/interactions/"+args[0])
		if err != nil {
			return err
		}

		var interaction any
		if err := decodeJSON(resp, &interaction); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(interaction)
	},
}

func init() {
	interactionsListCmd.Flags().Int("limit", 20, "maximum number of interactions to list")
	interactionsCmd.AddCommand(interactionsListCmd)
	interactionsCmd.AddCommand(interactionsShowCmd)
}
