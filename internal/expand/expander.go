package expand

import (
	"github.com/sourceplane/kronjob/internal/model"
	"github.com/sourceplane/kronjob/internal/normalize"
)

// Expander handles job × namespace expansion and merging
type Expander struct {
	expansion *normalize.Expansion
}

// NewExpander creates a new expander
func NewExpander(expansion *normalize.Expansion) *Expander {
	return &Expander{
		expansion: expansion,
	}
}

// Expand produces one AggregateJob per job × namespace pair. The outer loop
// runs over jobs and the inner loop over namespaces, both in input order, so
// the record for job j and namespace n is at index j*len(namespaces)+n.
func (e *Expander) Expand() []model.AggregateJob {
	jobs := e.expansion.Jobs
	namespaces := e.expansion.Namespaces

	result := make([]model.AggregateJob, 0, len(jobs)*len(namespaces))
	for jobIndex := range jobs {
		for _, namespace := range namespaces {
			record := e.aggregate(&jobs[jobIndex], namespace)
			if !e.expansion.ImplicitJobs {
				record.Source.Job = jobIndex
			}
			result = append(result, record)
		}
	}

	return result
}

// aggregate merges base < namespace override < job for a single pair
func (e *Expander) aggregate(job *model.Fragment, namespace *string) model.AggregateJob {
	base := &e.expansion.Base

	effective := e.resolveNamespace(job, namespace)

	var override *model.Fragment
	if effective != nil {
		if o, exists := e.expansion.Overrides[*effective]; exists {
			override = &o
		}
	}

	merged := Merge(base, override, job)
	if effective != nil {
		ns := *effective
		merged.Namespace = &ns
	}

	record := model.AggregateJob{
		Fragment: *merged.DeepCopy(),
		Source:   model.Source{Job: -1},
	}
	if effective != nil {
		record.Source.Namespace = *effective
	}
	return record
}

// resolveNamespace picks the job's own namespace, then the expansion
// namespace, then the base record's namespace
func (e *Expander) resolveNamespace(job *model.Fragment, namespace *string) *string {
	if job.Namespace != nil {
		return job.Namespace
	}
	if namespace != nil {
		return namespace
	}
	return e.expansion.Base.Namespace
}

// UnusedOverrides returns the namespace overrides that none of records
// resolved to, in sorted order.
func (e *Expander) UnusedOverrides(records []model.AggregateJob) []string {
	used := make(map[string]bool, len(records))
	for i := range records {
		used[records[i].GetNamespace()] = true
	}

	var unused []string
	for _, namespace := range e.expansion.OverrideNamespaces() {
		if !used[namespace] {
			unused = append(unused, namespace)
		}
	}
	return unused
}
