package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"resume-insights/internal/scoring"
)

type scoreOptions struct {
	explain bool
	asJSON  bool
}

type scoreOutput struct {
	scoring.Scores
	Breakdown *scoring.Breakdown `json:"breakdown,omitempty"`
}

func newScoreCmd() *cobra.Command {
	opts := &scoreOptions{}
	cmd := &cobra.Command{
		Use:   "score [file]",
		Short: "Score a normalized résumé record",
		Long:  "Reads a JSON record {skills, experience, education, strengths, weaknesses} from a file, or stdin when the file is omitted or \"-\", and prints the ATS, clarity and overall scores.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			in, err := readInput(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			scores, breakdown := scoring.Explain(in)
			var b *scoring.Breakdown
			if opts.explain {
				b = &breakdown
			}
			if opts.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(scoreOutput{Scores: scores, Breakdown: b})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderScores(scores, b))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.explain, "explain", "e", false, "include the counts behind the score")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func readInput(stdin io.Reader, path string) (scoring.Input, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return scoring.Input{}, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	var in scoring.Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return scoring.Input{}, fmt.Errorf("decode record: %w", err)
	}
	return in, nil
}
