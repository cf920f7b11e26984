package main

import (
	"fmt"
	"os"

	"pmflow/app/config"
	"pmflow/pkg/log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pmflow",
	Short: "pmflow runs BPMN processes",
	Long:  `pmflow stores BPMN process definitions, runs process requests and serves them over a JSON API.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if err := config.Initialize(path); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return log.Initialize(log.Config{
			Format:          config.Config.LOG.Format,
			TimestampFormat: config.Config.LOG.TimestampFormat,
			DirPath:         config.Config.LOG.DirPath,
			Level:           config.Config.LOG.Level,
		})
	},
	SilenceUsage: true,
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "ini config file (default $"+config.EnvConfigFile+" or "+config.DefaultConfigFile+")")
}
