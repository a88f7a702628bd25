package cmd

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizforge/internal/cache"
	"github.com/abhisek/quizforge/internal/extract"
	"github.com/abhisek/quizforge/internal/llm"
	"github.com/abhisek/quizforge/internal/mcq"
	"github.com/abhisek/quizforge/internal/quizgen"
	"github.com/abhisek/quizforge/internal/store"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a question set and stream it to stdout as NDJSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		material, _ := cmd.Flags().GetString("material")
		filePath, _ := cmd.Flags().GetString("file")
		easy, _ := cmd.Flags().GetInt("easy")
		medium, _ := cmd.Flags().GetInt("medium")
		hard, _ := cmd.Flags().GetInt("hard")
		explain, _ := cmd.Flags().GetBool("explain")

		req := mcq.GenerationRequest{
			Text:    material,
			Counts:  mcq.TierCounts{Easy: easy, Medium: medium, Hard: hard},
			Explain: explain,
		}
		if filePath != "" {
			att, err := readAttachment(filePath)
			if err != nil {
				return err
			}
			req.Attachment = att
		}

		svc, cleanup, err := buildService(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return svc.Generate(ctx, req, quizgen.NewNDJSONSink(os.Stdout))
	},
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve existing questions and stream answers to stdout as NDJSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		questions, _ := cmd.Flags().GetString("questions")
		filePath, _ := cmd.Flags().GetString("file")
		explain, _ := cmd.Flags().GetBool("explain")

		req := mcq.SolvingRequest{Text: questions, Explain: explain}
		if filePath != "" {
			att, err := readAttachment(filePath)
			if err != nil {
				return err
			}
			req.Attachment = att
		}

		svc, cleanup, err := buildService(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return svc.Solve(ctx, req, quizgen.NewNDJSONSink(os.Stdout))
	},
}

func init() {
	generateCmd.Flags().String("material", "", "Source material text")
	generateCmd.Flags().String("file", "", "Source material file (PDF, image, or PPTX)")
	generateCmd.Flags().Int("easy", 0, "Number of easy questions")
	generateCmd.Flags().Int("medium", 0, "Number of medium questions")
	generateCmd.Flags().Int("hard", 0, "Number of hard questions")
	generateCmd.Flags().Bool("explain", false, "Include explanations")

	solveCmd.Flags().String("questions", "", "Question text to solve")
	solveCmd.Flags().String("file", "", "Question document (PDF, image, or PPTX)")
	solveCmd.Flags().Bool("explain", false, "Include explanations")
}

// buildService wires a generation service for one-shot CLI use.
func buildService(cmd *cobra.Command) (*quizgen.Service, func(), error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	provider, err := llm.NewProvider(cmd.Context(), llm.ConfigFromEnv(), s.EventRepo())
	if err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("create LLM provider: %w", err)
	}

	svc := quizgen.New(provider, cache.New(), quizgen.DefaultConfig(), newLogger("warn"))
	return svc, func() { s.Close() }, nil
}

// readAttachment loads a file and infers its media type from the
// extension, falling back to content sniffing.
func readAttachment(path string) (*llm.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	return &llm.Attachment{MIME: attachmentMIME(path, data), Data: data}, nil
}

func attachmentMIME(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".pptx":
		return extract.MIMEPPTX
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	}
	return http.DetectContentType(data)
}
