// Command ingest turns a syllabus or course description into a structured
// course outline without starting the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/lectureplanner-backend/internal/app"
	"github.com/yungbote/lectureplanner-backend/internal/config"
	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/ingestion"
	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/intake"
	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/prompts"
	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/validation"
	"github.com/yungbote/lectureplanner-backend/internal/platform/shutdown"
)

var exitStatus = map[string]int{
	ingestion.KindInput:         2,
	ingestion.KindConfiguration: 3,
	ingestion.KindConnectivity:  4,
	ingestion.KindUpstream:      5,
	ingestion.KindValidation:    6,
}

type options struct {
	inputPath string
	role      string
	outPath   string
	showTree  bool
	raw       bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Generate a structured course outline from a syllabus",
		Long: `Reads a syllabus or free-form course description from a file or stdin,
sends it to the configured LLM provider and prints the validated course JSON.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIngest(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.inputPath, "file", "f", "-", "source file, - for stdin")
	cmd.Flags().StringVarP(&opts.role, "role", "r", string(prompts.RoleTeacher), "prompt role: teacher or student")
	cmd.Flags().StringVarP(&opts.outPath, "out", "o", "", "write the course JSON here instead of stdout")
	cmd.Flags().BoolVar(&opts.showTree, "tree", false, "include the tree consistency report")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "print the provider reply verbatim")
	return cmd
}

type output struct {
	validation.Reply
	Tree     *validation.InvariantReport `json:"tree,omitempty"`
	Attempts int                         `json:"attempts"`
}

func runIngest(cmd *cobra.Command, opts *options) error {
	role, err := prompts.ParseRole(opts.role)
	if err != nil {
		return &ingestion.InputError{Err: err}
	}
	raw, err := readSource(cmd, opts.inputPath)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return &ingestion.ConfigurationError{Reason: err.Error()}
	}
	log, err := app.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	text, err := intake.Normalize(raw, cfg.Ingest.MaxSourceBytes)
	if err != nil {
		return &ingestion.InputError{Err: err}
	}
	provider, err := app.NewProvider(cfg.LLM, log)
	if err != nil {
		return &ingestion.ConfigurationError{Reason: err.Error()}
	}
	pipeline := app.NewPipeline(log, cfg.LLM, provider)

	ctx := cmd.Context()
	if cfg.Ingest.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Ingest.Timeout)
		defer cancel()
	}
	res, err := pipeline.FetchStructuredCourse(ctx, ingestion.Request{
		SourceText: text,
		Role:       role,
		APIKey:     app.ProviderAPIKey(cfg.LLM),
	})
	if err != nil {
		return err
	}

	var body []byte
	if opts.raw {
		body = []byte(res.RawReply)
	} else {
		out := output{Reply: validation.ReplyFromCourse(res.Course), Attempts: res.Attempts}
		if opts.showTree {
			out.Tree = &res.Tree
		}
		if body, err = json.MarshalIndent(out, "", "  "); err != nil {
			return err
		}
	}
	body = append(body, '\n')

	if opts.outPath == "" {
		_, err = cmd.OutOrStdout().Write(body)
		return err
	}
	return os.WriteFile(opts.outPath, body, 0o644)
}

func readSource(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ingestion.InputError{Err: fmt.Errorf("read source: %w", err)}
	}
	return raw, nil
}

// exitCode maps a failed run onto the process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := exitStatus[ingestion.Kind(err)]; ok {
		return code
	}
	return 1
}

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "ingest:", err)
	if errors.Is(err, intake.ErrTooLarge) {
		fmt.Fprintf(os.Stderr, "ingest: source exceeds the configured limit, set INGEST_MAX_SOURCE_BYTES to raise it\n")
	}
	os.Exit(exitCode(err))
}
