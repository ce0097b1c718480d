package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sourceplane/kronjob/internal/config"
	"github.com/sourceplane/kronjob/internal/render"
	"github.com/spf13/cobra"
)

var debugNamespace string

var debugCmd = &cobra.Command{
	Use:   "debug [FILE]",
	Short: "Show the aggregated jobs grouped by namespace",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDebug(cmd.Context(), cfg, args, cmd.OutOrStdout())
	},
}

func registerDebugCommand(root *cobra.Command) {
	root.AddCommand(debugCmd)

	debugCmd.Flags().StringVarP(&debugNamespace, "namespace", "n", "", "Only show jobs of this namespace")
	addCompileFlags(debugCmd, false)
}

func runDebug(ctx context.Context, c config.Config, args []string, stdout io.Writer) error {
	compiler, err := newCompiler(c)
	if err != nil {
		return err
	}

	records, err := aggregateFiles(ctx, compiler, inputPaths(args))
	if err != nil {
		return err
	}

	viewer := render.NewRecordViewer(records[0])
	if debugNamespace != "" {
		_, err = fmt.Fprintln(stdout, viewer.ViewNamespace(debugNamespace))
		return err
	}
	_, err = fmt.Fprintln(stdout, viewer.ViewTree())
	return err
}
