package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"resume-insights/internal/analyses"
	"resume-insights/internal/bootstrap"
	"resume-insights/internal/extract"
	"resume-insights/internal/jobmatch"
	"resume-insights/internal/llm"
	"resume-insights/internal/scoring"
)

type analyzeOptions struct {
	resumePath    string
	jdPath        string
	provider      string
	model         string
	promptVersion string
	raw           bool
	out           string
}

type analyzeOutput struct {
	Result   analyses.Result  `json:"result"`
	Scores   scoring.Scores   `json:"scores"`
	JobMatch *jobmatch.Result `json:"jobMatch,omitempty"`
	Raw      json.RawMessage  `json:"raw,omitempty"`
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one résumé file with the configured model",
		Long:  "Extracts text from a PDF, DOCX or TXT résumé, asks the configured LLM for the structured analysis, validates and normalizes it, then scores it. With --jd the résumé is also matched against a job description.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.resumePath, "resume", "r", "", "path to the résumé (pdf, docx or txt)")
	cmd.Flags().StringVar(&opts.jdPath, "jd", "", "optional job description file to match against")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "override LLM_PROVIDER")
	cmd.Flags().StringVar(&opts.model, "model", "", "override LLM_MODEL")
	cmd.Flags().StringVar(&opts.promptVersion, "prompt-version", llm.DefaultPromptVersion, "prompt version")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "include the raw model JSON in the output")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "also write the JSON output to this path")
	_ = cmd.MarkFlagRequired("resume")
	return cmd
}

func runAnalyze(cmd *cobra.Command, root *rootOptions, opts *analyzeOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := root.load()
	if err != nil {
		return err
	}
	if opts.provider != "" {
		cfg.LLMProvider = strings.ToLower(opts.provider)
	}
	if opts.model != "" {
		cfg.LLMModel = opts.model
	}
	completer, err := bootstrap.NewCompleter(ctx, cfg)
	if err != nil {
		return err
	}
	if completer == nil {
		return errors.New("no usable LLM provider; set LLM_PROVIDER, LLM_MODEL and LLM_API_KEY")
	}
	engine := llm.NewEngine(completer)

	resumeText, err := extractFile(ctx, opts.resumePath)
	if err != nil {
		return err
	}

	raw, err := engine.AnalyzeResume(ctx, llm.AnalyzeInput{
		ResumeText:    resumeText,
		PromptVersion: opts.promptVersion,
	})
	if err != nil {
		return fmt.Errorf("llm analyze: %w", err)
	}
	parsed, err := analyses.ParseResult(raw)
	if err != nil {
		return err
	}

	out := analyzeOutput{
		Result: parsed.Result,
		Scores: scoring.Score(parsed.Result.ScoringInput()),
	}
	if opts.raw {
		out.Raw = raw
	}

	if opts.jdPath != "" {
		data, err := os.ReadFile(opts.jdPath)
		if err != nil {
			return fmt.Errorf("read job description: %w", err)
		}
		jdText, err := jobmatch.ExtractJD(ctx, filepath.Base(opts.jdPath), data)
		if err != nil {
			return err
		}
		match, err := (&jobmatch.Service{Matcher: engine}).Match(ctx, resumeText, jdText)
		if err != nil {
			return err
		}
		out.JobMatch = &match
	}

	pretty, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if opts.out != "" {
		if err := os.WriteFile(opts.out, pretty, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderScores(out.Scores, nil))
	fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
	return nil
}

func extractFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	text, err := extract.ExtractTextFromBytes(ctx, data, "", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", path, err)
	}
	return text, nil
}
