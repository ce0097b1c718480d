package main

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/sourceplane/kronjob/internal/compile"
	"github.com/sourceplane/kronjob/internal/config"
	"github.com/sourceplane/kronjob/internal/loader"
	"github.com/sourceplane/kronjob/internal/model"
	"github.com/sourceplane/kronjob/internal/render"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/runtime"
)

var (
	permissive      bool
	defaultsFile    string
	k8sVersion      string
	disableCronJobs bool
)

// addCompileFlags registers the flags shared by every command that runs the
// pipeline. Projection flags only matter when objects are produced.
func addCompileFlags(cmd *cobra.Command, projection bool) {
	cmd.Flags().BoolVar(&permissive, "permissive", false, "Ignore unknown fields instead of rejecting them")
	if !projection {
		return
	}
	cmd.Flags().StringVar(&defaultsFile, "defaults-file", "", "Document merged beneath every job")
	cmd.Flags().StringVar(&k8sVersion, "k8s-api-version", render.DefaultKubernetesVersion, "Target Kubernetes version")
	cmd.Flags().BoolVar(&disableCronJobs, "disable-cronjobs", false, "Fail on any recurring schedule")
}

func applyCompileFlags(cmd *cobra.Command, c config.Config) config.Config {
	flags := cmd.Flags()
	if flags.Changed("permissive") {
		c.Permissive = permissive
	}
	if flags.Changed("defaults-file") {
		c.DefaultsFile = defaultsFile
	}
	if flags.Changed("k8s-api-version") {
		c.KubernetesVersion = k8sVersion
	}
	if flags.Changed("disable-cronjobs") {
		c.DisableCronJobs = disableCronJobs
	}
	return c
}

func newCompiler(c config.Config) (*compile.Compiler, error) {
	var defaults *model.Fragment
	if c.DefaultsFile != "" {
		var err error
		if defaults, err = loader.LoadDefaults(c.DefaultsFile, !c.Permissive); err != nil {
			return nil, err
		}
	}

	return compile.NewCompiler(compile.Options{
		Permissive: c.Permissive,
		Projection: render.Options{
			KubernetesVersion: c.KubernetesVersion,
			DisableCronJobs:   c.DisableCronJobs,
			Defaults:          defaults,
		},
	})
}

// inputPaths falls back to stdin when no files are named.
func inputPaths(args []string) []string {
	if len(args) == 0 {
		return []string{"-"}
	}
	return args
}

// compileFiles compiles every path concurrently and returns the objects in
// argument order. The first failure cancels the remaining work.
func compileFiles(ctx context.Context, compiler *compile.Compiler, paths []string) ([]runtime.Object, error) {
	results := make([]*compile.Result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := compiler.CompileFile(ctx, path)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var objects []runtime.Object
	for _, result := range results {
		objects = append(objects, result.Objects...)
	}
	return objects, nil
}

// aggregateFiles validates every path concurrently. Unlike compileFiles it
// keeps going after a failure so that all broken files are reported at once.
func aggregateFiles(ctx context.Context, compiler *compile.Compiler, paths []string) ([][]model.AggregateJob, error) {
	records := make([][]model.AggregateJob, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	for i, path := range paths {
		g.Go(func() error {
			doc, err := loader.Load(path)
			if err == nil {
				records[i], err = compiler.Aggregate(ctx, doc)
			}
			if err != nil {
				log.Ctx(ctx).Debug().Err(err).Str("source", path).Msg("validation failed")
				errs[i] = err
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return records, nil
}
