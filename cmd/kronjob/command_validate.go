package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sourceplane/kronjob/internal/config"
	"github.com/sourceplane/kronjob/internal/loader"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [FILE...]",
	Short: "Validate abstract job documents without producing manifests",
	Long: "Run structural and semantic validation on every document and report every violation. " +
		"Without FILE arguments the document is read from stdin.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd.Context(), cfg, args, cmd.OutOrStdout())
	},
}

func registerValidateCommand(root *cobra.Command) {
	root.AddCommand(validateCmd)

	addCompileFlags(validateCmd, false)
}

func runValidate(ctx context.Context, c config.Config, args []string, stdout io.Writer) error {
	compiler, err := newCompiler(c)
	if err != nil {
		return err
	}

	paths := inputPaths(args)
	records, err := aggregateFiles(ctx, compiler, paths)
	if err != nil {
		return err
	}

	for i, path := range paths {
		if path == "-" {
			path = loader.StdinSource
		}
		fmt.Fprintf(stdout, "✓ %s: %d jobs valid\n", path, len(records[i]))
	}
	return nil
}
