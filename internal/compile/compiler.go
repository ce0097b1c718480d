// Package compile runs the full pipeline from a loaded abstract job document
// to Kubernetes workload objects: structural validation, typed decoding,
// expansion, semantic validation and projection.
package compile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sourceplane/kronjob/internal/expand"
	"github.com/sourceplane/kronjob/internal/loader"
	"github.com/sourceplane/kronjob/internal/model"
	"github.com/sourceplane/kronjob/internal/normalize"
	"github.com/sourceplane/kronjob/internal/render"
	"github.com/sourceplane/kronjob/internal/schedule"
	"github.com/sourceplane/kronjob/internal/schema"
	"github.com/sourceplane/kronjob/internal/validate"
	"k8s.io/apimachinery/pkg/runtime"
)

// Options configure a Compiler.
type Options struct {
	// Permissive ignores unknown fields instead of rejecting them.
	Permissive bool
	Projection render.Options
}

// Result holds the output of compiling one document.
type Result struct {
	Source  string
	Records []model.AggregateJob
	Objects []runtime.Object
}

// Compiler turns abstract job documents into workload objects. It holds no
// per-document state and is safe for concurrent use.
type Compiler struct {
	opts      Options
	schema    *schema.Validator
	validator *validate.Validator
	projector *render.Projector
}

// NewCompiler compiles the schema and checks the projection options.
func NewCompiler(opts Options) (*Compiler, error) {
	schemaValidator, err := schema.NewValidator(!opts.Permissive)
	if err != nil {
		return nil, err
	}

	projector, err := render.NewProjector(opts.Projection)
	if err != nil {
		return nil, err
	}

	return &Compiler{
		opts:      opts,
		schema:    schemaValidator,
		validator: validate.NewValidator(),
		projector: projector,
	}, nil
}

// Aggregate validates the document structure, expands it and validates every
// resulting record. Nothing is returned unless every record is valid.
func (c *Compiler) Aggregate(ctx context.Context, doc *loader.Document) ([]model.AggregateJob, error) {
	logger := log.Ctx(ctx).With().Str("source", doc.Source).Logger()

	logger.Debug().Bool("strict", c.schema.Strict()).Msg("validating document structure")
	if err := c.schema.Validate(doc.Tree); err != nil {
		return nil, fmt.Errorf("%s: %w", doc.Source, err)
	}

	root, err := doc.Decode(!c.opts.Permissive)
	if err != nil {
		return nil, err
	}

	expansion, err := normalize.NormalizeAbstractJob(root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", doc.Source, err)
	}
	expander := expand.NewExpander(expansion)
	records := expander.Expand()
	logger.Debug().
		Int("jobs", len(root.Jobs)).
		Int("namespaces", len(root.Namespaces)).
		Strs("overrides", expansion.OverrideNamespaces()).
		Int("records", len(records)).
		Msg("expanded abstract job")

	for _, namespace := range expander.UnusedOverrides(records) {
		logger.Warn().Str("namespace", namespace).Msg("namespace override matches no job")
	}
	for i := range records {
		if s := records[i].GetSchedule(); schedule.HasSeconds(s) {
			logger.Warn().
				Str("job", validate.SourcePath(records[i].Source).String()).
				Str("schedule", s).
				Msg("schedule has a seconds field, which Kubernetes CronJobs do not accept")
		}
	}

	if err := c.validator.Validate(records); err != nil {
		return nil, fmt.Errorf("%s: %w", doc.Source, err)
	}
	return records, nil
}

// Compile aggregates the document and projects every record.
func (c *Compiler) Compile(ctx context.Context, doc *loader.Document) (*Result, error) {
	records, err := c.Aggregate(ctx, doc)
	if err != nil {
		return nil, err
	}

	objects, err := c.projector.ProjectAll(records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", doc.Source, err)
	}

	log.Ctx(ctx).Info().
		Str("source", doc.Source).
		Int("objects", len(objects)).
		Str("cronJobAPIVersion", c.projector.CronJobAPIVersion()).
		Msg("compiled abstract job")

	return &Result{Source: doc.Source, Records: records, Objects: objects}, nil
}

// CompileFile loads path and compiles it. An empty path or "-" reads stdin.
func (c *Compiler) CompileFile(ctx context.Context, path string) (*Result, error) {
	doc, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	return c.Compile(ctx, doc)
}
