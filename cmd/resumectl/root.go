package main

import (
	"fmt"
	"github.com/spf13/cobra"

	"resume-insights/internal/shared/config"
	"resume-insights/internal/shared/telemetry"
)

var version = "dev"

type rootOptions struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "resumectl",
		Short:         "Résumé scoring and skill catalogue tools",
		Long:          "resumectl scores normalized résumé records, runs a single analysis against the configured model, and seeds the skill-gap catalogue.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if opts.debug {
				level = "debug"
			}
			return telemetry.Configure("dev", level)
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "optional config file layered under the environment")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newScoreCmd(),
		newAnalyzeCmd(opts),
		newSkillsCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) load() (config.Config, error) {
	if o.configPath == "" {
		return config.Load(), nil
	}
	return config.LoadFile(o.configPath)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "resumectl %s\n", version)
		},
	}
}
