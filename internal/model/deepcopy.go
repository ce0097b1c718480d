package model

import (
	"maps"
	"slices"

	corev1 "k8s.io/api/core/v1"
)

// DeepCopyInto copies the receiver into out. in must be non-nil.
func (in *Fragment) DeepCopyInto(out *Fragment) {
	*out = *in
	out.Name = copyPtr(in.Name)
	out.Namespace = copyPtr(in.Namespace)
	out.Image = copyPtr(in.Image)
	out.Schedule = copyPtr(in.Schedule)
	out.LabelKey = copyPtr(in.LabelKey)
	out.Labels = maps.Clone(in.Labels)
	out.Annotations = maps.Clone(in.Annotations)
	out.ConcurrencyPolicy = copyPtr(in.ConcurrencyPolicy)
	out.RestartPolicy = copyPtr(in.RestartPolicy)
	out.Suspend = copyPtr(in.Suspend)
	out.FailedJobsHistoryLimit = copyPtr(in.FailedJobsHistoryLimit)
	out.SuccessfulJobsHistoryLimit = copyPtr(in.SuccessfulJobsHistoryLimit)
	out.StartingDeadlineSeconds = copyPtr(in.StartingDeadlineSeconds)
	out.BackoffLimit = copyPtr(in.BackoffLimit)
	out.ContainerName = copyPtr(in.ContainerName)
	out.Args = slices.Clone(in.Args)
	out.Command = slices.Clone(in.Command)
	out.ImagePullPolicy = copyPtr(in.ImagePullPolicy)
	out.NodeSelector = maps.Clone(in.NodeSelector)
	out.CPULimit = copyPtr(in.CPULimit)
	out.CPURequest = copyPtr(in.CPURequest)
	out.MemoryLimit = copyPtr(in.MemoryLimit)
	out.MemoryRequest = copyPtr(in.MemoryRequest)

	if in.Env != nil {
		out.Env = make([]corev1.EnvVar, len(in.Env))
		for i := range in.Env {
			in.Env[i].DeepCopyInto(&out.Env[i])
		}
	}
	if in.Volumes != nil {
		out.Volumes = make([]corev1.Volume, len(in.Volumes))
		for i := range in.Volumes {
			in.Volumes[i].DeepCopyInto(&out.Volumes[i])
		}
	}
	if in.VolumeMounts != nil {
		out.VolumeMounts = make([]corev1.VolumeMount, len(in.VolumeMounts))
		for i := range in.VolumeMounts {
			in.VolumeMounts[i].DeepCopyInto(&out.VolumeMounts[i])
		}
	}
}

// DeepCopy returns a copy of the fragment that shares no memory with it.
func (in *Fragment) DeepCopy() *Fragment {
	if in == nil {
		return nil
	}
	out := new(Fragment)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto copies the receiver into out. in must be non-nil.
func (in *AbstractJob) DeepCopyInto(out *AbstractJob) {
	*out = *in
	in.Fragment.DeepCopyInto(&out.Fragment)
	if in.Jobs != nil {
		out.Jobs = make([]Fragment, len(in.Jobs))
		for i := range in.Jobs {
			in.Jobs[i].DeepCopyInto(&out.Jobs[i])
		}
	}
	out.Namespaces = slices.Clone(in.Namespaces)
	if in.NamespaceOverrides != nil {
		out.NamespaceOverrides = make(map[string]Fragment, len(in.NamespaceOverrides))
		for key, val := range in.NamespaceOverrides {
			out.NamespaceOverrides[key] = *val.DeepCopy()
		}
	}
}

// DeepCopy returns a copy of the abstract job that shares no memory with it.
func (in *AbstractJob) DeepCopy() *AbstractJob {
	if in == nil {
		return nil
	}
	out := new(AbstractJob)
	in.DeepCopyInto(out)
	return out
}

// DeepCopy returns a copy of the record that shares no memory with it.
func (in *AggregateJob) DeepCopy() *AggregateJob {
	if in == nil {
		return nil
	}
	out := new(AggregateJob)
	*out = *in
	in.Fragment.DeepCopyInto(&out.Fragment)
	return out
}

func copyPtr[T any](in *T) *T {
	if in == nil {
		return nil
	}
	out := new(T)
	*out = *in
	return out
}
