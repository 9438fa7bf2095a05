package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "mushlight",
		Short:         "Mushroom LED installation controller",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c",
		"config/led_config.yaml", "Path to the LED configuration file")

	rootCmd.AddCommand(newRunCommand(&configFlag))
	rootCmd.AddCommand(newPatternsCommand())
	rootCmd.AddCommand(newMetricsCommand(&configFlag))

	return rootCmd
}
