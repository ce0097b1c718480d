package normalize

import (
	"fmt"
	"sort"

	"github.com/sourceplane/kronjob/internal/model"
)

// Expansion is the canonical form of an AbstractJob: the base record split
// from its expansion-control fields, with defaults substituted for absent ones.
type Expansion struct {
	Base model.Fragment

	// Jobs always holds at least one fragment.
	Jobs []model.Fragment
	// Namespaces always holds at least one entry; nil marks an absent namespace.
	Namespaces []*string
	Overrides  map[string]model.Fragment

	// ImplicitJobs is set when the input had no jobs and Jobs holds a single empty fragment.
	ImplicitJobs bool
}

// NormalizeAbstractJob deep-copies root and extracts its expansion-control
// fields. The caller's value is never modified.
func NormalizeAbstractJob(root *model.AbstractJob) (*Expansion, error) {
	if root == nil {
		return nil, fmt.Errorf("abstract job cannot be nil")
	}

	copied := root.DeepCopy()

	expansion := &Expansion{
		Base:      copied.Fragment,
		Jobs:      copied.Jobs,
		Overrides: copied.NamespaceOverrides,
	}

	// Default to a single empty job
	if expansion.Jobs == nil {
		expansion.Jobs = []model.Fragment{{}}
		expansion.ImplicitJobs = true
	}

	// Default to a single absent namespace
	if copied.Namespaces == nil {
		expansion.Namespaces = []*string{nil}
	} else {
		expansion.Namespaces = make([]*string, len(copied.Namespaces))
		for i := range copied.Namespaces {
			expansion.Namespaces[i] = &copied.Namespaces[i]
		}
	}

	if expansion.Overrides == nil {
		expansion.Overrides = make(map[string]model.Fragment)
	}

	return expansion, nil
}

// OverrideNamespaces returns the keys of the namespace overrides in sorted order.
func (e *Expansion) OverrideNamespaces() []string {
	keys := make([]string, 0, len(e.Overrides))
	for key := range e.Overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
