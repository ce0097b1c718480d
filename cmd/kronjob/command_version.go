package main

import (
	"fmt"

	"github.com/sourceplane/kronjob/internal/config"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the kronjob version",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "kronjob %s\n", config.ParseVersion())
		return err
	},
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "List the environment variables kronjob reads",
	RunE: func(cmd *cobra.Command, args []string) error {
		return config.Usage()
	},
}

func registerVersionCommand(root *cobra.Command) {
	root.AddCommand(versionCmd)
	root.AddCommand(envCmd)
}
