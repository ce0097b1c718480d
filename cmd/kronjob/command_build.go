package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/sourceplane/kronjob/internal/config"
	"github.com/sourceplane/kronjob/internal/render"
	"github.com/spf13/cobra"
)

var (
	outputFile   string
	outputFormat string
)

var buildCmd = &cobra.Command{
	Use:   "build [FILE...]",
	Short: "Compile abstract job documents into Kubernetes manifests",
	Long: "Compile one or more abstract job documents (YAML, JSON or TOML) into Job and CronJob " +
		"manifests. Without FILE arguments the document is read from stdin.",
	Example: "  kronjob build jobs.yaml -o manifests.yaml\n" +
		"  cat jobs.yaml | kronjob build --k8s-api-version 1.20 -f json",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd.Context(), cfg, args, cmd.OutOrStdout())
	},
}

func registerBuildCommand(root *cobra.Command) {
	root.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default stdout); a .json/.yaml extension overrides --format")
	buildCmd.Flags().StringVarP(&outputFormat, "format", "f", "yaml", "Output format (yaml/json)")
	addCompileFlags(buildCmd, true)
}

func runBuild(ctx context.Context, c config.Config, args []string, stdout io.Writer) error {
	format, err := render.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	compiler, err := newCompiler(c)
	if err != nil {
		return err
	}

	objects, err := compileFiles(ctx, compiler, inputPaths(args))
	if err != nil {
		return err
	}

	writer := render.NewWriter(format)
	if outputFile == "" {
		return writer.Write(stdout, objects)
	}

	if err := writer.WriteFile(outputFile, objects); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputFile, err)
	}

	log.Ctx(ctx).Info().Str("output", outputFile).Int("objects", len(objects)).Msg("wrote manifests")
	return nil
}
