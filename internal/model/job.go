package model

import (
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
)

// Fragment is a single, non-nesting job definition. Every field is optional;
// a nil value means the field is absent and will not take part in a merge.
//
// The merge tag selects how the field combines across the base record, a
// namespace override and a job fragment. Fields without a merge tag are
// overridden wholesale by the most specific layer that sets them.
type Fragment struct {
	Name      *string `json:"name,omitempty" merge:"join"`
	Namespace *string `json:"namespace,omitempty"`
	Image     *string `json:"image,omitempty"`
	Schedule  *string `json:"schedule,omitempty"`

	LabelKey    *string           `json:"labelKey,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`

	ConcurrencyPolicy          *batchv1.ConcurrencyPolicy `json:"concurrencyPolicy,omitempty"`
	RestartPolicy              *corev1.RestartPolicy      `json:"restartPolicy,omitempty"`
	Suspend                    *bool                      `json:"suspend,omitempty"`
	FailedJobsHistoryLimit     *int32                     `json:"failedJobsHistoryLimit,omitempty"`
	SuccessfulJobsHistoryLimit *int32                     `json:"successfulJobsHistoryLimit,omitempty"`
	StartingDeadlineSeconds    *int64                     `json:"startingDeadlineSeconds,omitempty"`
	BackoffLimit               *int32                     `json:"backoffLimit,omitempty"`

	ContainerName   *string              `json:"containerName,omitempty"`
	Args            []string             `json:"args,omitempty"`
	Command         []string             `json:"command,omitempty"`
	Env             []corev1.EnvVar      `json:"env,omitempty" merge:"append"`
	ImagePullPolicy *corev1.PullPolicy   `json:"imagePullPolicy,omitempty"`
	NodeSelector    map[string]string    `json:"nodeSelector,omitempty"`
	CPULimit        *string              `json:"cpuLimit,omitempty"`
	CPURequest      *string              `json:"cpuRequest,omitempty"`
	MemoryLimit     *string              `json:"memoryLimit,omitempty"`
	MemoryRequest   *string              `json:"memoryRequest,omitempty"`
	Volumes         []corev1.Volume      `json:"volumes,omitempty"`
	VolumeMounts    []corev1.VolumeMount `json:"volumeMounts,omitempty"`
}

// AbstractJob is the root of a user-authored job template. The embedded
// Fragment holds the base record; the remaining fields control expansion.
type AbstractJob struct {
	Fragment `json:",inline"`

	Jobs               []Fragment          `json:"jobs,omitempty"`
	Namespaces         []string            `json:"namespaces,omitempty"`
	NamespaceOverrides map[string]Fragment `json:"namespaceOverrides,omitempty"`
}

// AggregateJob is one fully resolved job record produced by expansion.
type AggregateJob struct {
	Fragment `json:",inline"`

	Source Source `json:"-"`
}

// Source locates the input that produced an AggregateJob.
type Source struct {
	// Job is the index into AbstractJob.Jobs, or -1 when the root had no jobs.
	Job int
	// Namespace is the effective namespace, empty when none was resolved.
	Namespace string
}

// GetName returns the record name or an empty string.
func (f *Fragment) GetName() string {
	if f.Name == nil {
		return ""
	}
	return *f.Name
}

// GetNamespace returns the record namespace or an empty string.
func (f *Fragment) GetNamespace() string {
	if f.Namespace == nil {
		return ""
	}
	return *f.Namespace
}

// GetSchedule returns the record schedule or an empty string.
func (f *Fragment) GetSchedule() string {
	if f.Schedule == nil {
		return ""
	}
	return *f.Schedule
}

// GetImage returns the record image or an empty string.
func (f *Fragment) GetImage() string {
	if f.Image == nil {
		return ""
	}
	return *f.Image
}
