package render

import (
	"errors"
	"fmt"
	"maps"

	"dario.cat/mergo"
	"github.com/hashicorp/go-version"
	"github.com/sourceplane/kronjob/internal/model"
	"github.com/sourceplane/kronjob/internal/schedule"
	"github.com/sourceplane/kronjob/internal/validate"
	batchv1 "k8s.io/api/batch/v1"
	batchv1beta1 "k8s.io/api/batch/v1beta1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/utils/ptr"
)

const (
	// DefaultKubernetesVersion is the cluster version objects are generated for
	// when none is given.
	DefaultKubernetesVersion = "1.21"

	DefaultLabelKey                   = "kronjob/job"
	DefaultNamespace                  = "default"
	DefaultFailedJobsHistoryLimit     = int32(10)
	DefaultSuccessfulJobsHistoryLimit = int32(1)

	LabelName        = "app.kubernetes.io/name"
	LabelEnvironment = "app.kubernetes.io/environment"
	LabelComponent   = "app.kubernetes.io/component"

	containerNameSuffix = "-job"
)

var (
	// CronJob moved from batch/v1beta1 to batch/v1 in 1.21. Clusters older
	// than 1.8 only offer alpha CronJobs, which are not generated.
	minCronJobVersion     = version.Must(version.NewVersion("1.8"))
	batchV1CronJobVersion = version.Must(version.NewVersion("1.21"))
)

var (
	ErrUnsupportedVersion = errors.New("unsupported Kubernetes version")
	ErrCronJobsDisabled   = errors.New("CronJob generation has been disabled")
)

// Options control how records are turned into workload objects.
type Options struct {
	// KubernetesVersion selects the CronJob API group, e.g. "1.21".
	KubernetesVersion string
	// DisableCronJobs makes any recurring record an error.
	DisableCronJobs bool
	// Defaults fill fields a record leaves unset.
	Defaults *model.Fragment
}

// Projector maps resolved job records onto Kubernetes Job and CronJob objects.
type Projector struct {
	opts              Options
	cronJobAPIVersion string
	validator         *validate.Validator
}

// NewProjector checks the target Kubernetes version and creates a projector.
func NewProjector(opts Options) (*Projector, error) {
	if opts.KubernetesVersion == "" {
		opts.KubernetesVersion = DefaultKubernetesVersion
	}

	v, err := version.NewVersion(opts.KubernetesVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid Kubernetes version %q: %w", opts.KubernetesVersion, err)
	}

	p := &Projector{opts: opts, validator: validate.NewValidator()}
	core := v.Core()
	switch {
	case core.Segments()[0] != 1 || core.LessThan(minCronJobVersion):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, opts.KubernetesVersion)
	case core.GreaterThanOrEqual(batchV1CronJobVersion):
		p.cronJobAPIVersion = batchv1.SchemeGroupVersion.String()
	default:
		p.cronJobAPIVersion = batchv1beta1.SchemeGroupVersion.String()
	}
	return p, nil
}

// CronJobAPIVersion returns the apiVersion used for CronJob objects.
func (p *Projector) CronJobAPIVersion() string {
	return p.cronJobAPIVersion
}

// ProjectAll converts every record, in order. Records are checked again once
// the defaults are applied, and every violation is reported before any object
// is built.
func (p *Projector) ProjectAll(jobs []model.AggregateJob) ([]runtime.Object, error) {
	resolved := make([]*model.Fragment, len(jobs))
	var errs field.ErrorList
	for i := range jobs {
		f, violations, err := p.resolve(&jobs[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", validate.SourcePath(jobs[i].Source), err)
		}
		resolved[i] = f
		errs = append(errs, violations...)
	}
	if err := validate.NewError(validate.StageSemantic, errs); err != nil {
		return nil, fmt.Errorf("invalid after applying defaults: %w", err)
	}

	objects := make([]runtime.Object, 0, len(jobs))
	for i, f := range resolved {
		obj, err := p.build(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", validate.SourcePath(jobs[i].Source), err)
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// Project converts one record into a batch/v1 Job when its schedule is
// "once", and into a CronJob otherwise.
func (p *Projector) Project(job *model.AggregateJob) (runtime.Object, error) {
	f, violations, err := p.resolve(job)
	if err != nil {
		return nil, err
	}
	if err := validate.NewError(validate.StageSemantic, violations); err != nil {
		return nil, fmt.Errorf("invalid after applying defaults: %w", err)
	}
	return p.build(f)
}

// resolve applies the defaults and checks the result against the semantic
// rules, so that values coming from the defaults document obey them too.
func (p *Projector) resolve(job *model.AggregateJob) (*model.Fragment, field.ErrorList, error) {
	f, err := p.withDefaults(job)
	if err != nil {
		return nil, nil, err
	}
	return f, p.validator.ValidateJob(&model.AggregateJob{Fragment: *f, Source: job.Source}), nil
}

func (p *Projector) build(f *model.Fragment) (runtime.Object, error) {
	labels := buildLabels(f)
	meta := metav1.ObjectMeta{
		Name:      f.GetName(),
		Namespace: f.GetNamespace(),
		Labels:    maps.Clone(labels),
	}

	jobSpec, err := buildJobSpec(f, labels)
	if err != nil {
		return nil, err
	}

	if schedule.IsOnce(f.GetSchedule()) {
		return &batchv1.Job{
			TypeMeta:   metav1.TypeMeta{APIVersion: batchv1.SchemeGroupVersion.String(), Kind: "Job"},
			ObjectMeta: meta,
			Spec:       jobSpec,
		}, nil
	}

	if p.opts.DisableCronJobs {
		return nil, fmt.Errorf("%w: %s has schedule %q", ErrCronJobsDisabled, f.GetName(), f.GetSchedule())
	}

	templateMeta := metav1.ObjectMeta{Labels: maps.Clone(labels)}
	if p.cronJobAPIVersion == batchv1beta1.SchemeGroupVersion.String() {
		return &batchv1beta1.CronJob{
			TypeMeta:   metav1.TypeMeta{APIVersion: p.cronJobAPIVersion, Kind: "CronJob"},
			ObjectMeta: meta,
			Spec: batchv1beta1.CronJobSpec{
				Schedule:                   f.GetSchedule(),
				ConcurrencyPolicy:          batchv1beta1.ConcurrencyPolicy(*f.ConcurrencyPolicy),
				Suspend:                    f.Suspend,
				StartingDeadlineSeconds:    f.StartingDeadlineSeconds,
				FailedJobsHistoryLimit:     f.FailedJobsHistoryLimit,
				SuccessfulJobsHistoryLimit: f.SuccessfulJobsHistoryLimit,
				JobTemplate: batchv1beta1.JobTemplateSpec{
					ObjectMeta: templateMeta,
					Spec:       jobSpec,
				},
			},
		}, nil
	}

	return &batchv1.CronJob{
		TypeMeta:   metav1.TypeMeta{APIVersion: p.cronJobAPIVersion, Kind: "CronJob"},
		ObjectMeta: meta,
		Spec: batchv1.CronJobSpec{
			Schedule:                   f.GetSchedule(),
			ConcurrencyPolicy:          *f.ConcurrencyPolicy,
			Suspend:                    f.Suspend,
			StartingDeadlineSeconds:    f.StartingDeadlineSeconds,
			FailedJobsHistoryLimit:     f.FailedJobsHistoryLimit,
			SuccessfulJobsHistoryLimit: f.SuccessfulJobsHistoryLimit,
			JobTemplate: batchv1.JobTemplateSpec{
				ObjectMeta: templateMeta,
				Spec:       jobSpec,
			},
		},
	}, nil
}

// withDefaults returns a copy of the record with the user defaults and then
// the built-in defaults filled in beneath it.
func (p *Projector) withDefaults(job *model.AggregateJob) (*model.Fragment, error) {
	f := job.Fragment.DeepCopy()

	if p.opts.Defaults != nil {
		if err := mergo.Merge(f, *p.opts.Defaults.DeepCopy(), mergo.WithoutDereference); err != nil {
			return nil, fmt.Errorf("failed to apply defaults: %w", err)
		}
	}

	if f.ConcurrencyPolicy == nil {
		f.ConcurrencyPolicy = ptr.To(batchv1.ForbidConcurrent)
	}
	if f.FailedJobsHistoryLimit == nil {
		f.FailedJobsHistoryLimit = ptr.To(DefaultFailedJobsHistoryLimit)
	}
	if f.SuccessfulJobsHistoryLimit == nil {
		f.SuccessfulJobsHistoryLimit = ptr.To(DefaultSuccessfulJobsHistoryLimit)
	}
	if f.RestartPolicy == nil {
		f.RestartPolicy = ptr.To(corev1.RestartPolicyNever)
	}
	if f.ContainerName == nil {
		f.ContainerName = ptr.To(f.GetName() + containerNameSuffix)
	}
	if f.LabelKey == nil {
		f.LabelKey = ptr.To(DefaultLabelKey)
	}
	if f.Namespace == nil {
		f.Namespace = ptr.To(DefaultNamespace)
	}
	return f, nil
}

func buildLabels(f *model.Fragment) map[string]string {
	labels := make(map[string]string, len(f.Labels)+4)
	maps.Copy(labels, f.Labels)
	labels[*f.LabelKey] = f.GetName()

	for key, value := range map[string]string{
		LabelName:        f.GetName(),
		LabelEnvironment: f.GetNamespace(),
		LabelComponent:   "job",
	} {
		if _, ok := labels[key]; !ok {
			labels[key] = value
		}
	}
	return labels
}

func buildJobSpec(f *model.Fragment, labels map[string]string) (batchv1.JobSpec, error) {
	resources, err := buildResources(f)
	if err != nil {
		return batchv1.JobSpec{}, err
	}

	container := corev1.Container{
		Name:         *f.ContainerName,
		Image:        f.GetImage(),
		Args:         f.Args,
		Command:      f.Command,
		Env:          f.Env,
		Resources:    resources,
		VolumeMounts: f.VolumeMounts,
	}
	if f.ImagePullPolicy != nil {
		container.ImagePullPolicy = *f.ImagePullPolicy
	}

	return batchv1.JobSpec{
		BackoffLimit: f.BackoffLimit,
		Template: corev1.PodTemplateSpec{
			ObjectMeta: metav1.ObjectMeta{
				Labels:      maps.Clone(labels),
				Annotations: f.Annotations,
			},
			Spec: corev1.PodSpec{
				Containers:    []corev1.Container{container},
				NodeSelector:  f.NodeSelector,
				RestartPolicy: *f.RestartPolicy,
				Volumes:       f.Volumes,
			},
		},
	}, nil
}

func buildResources(f *model.Fragment) (corev1.ResourceRequirements, error) {
	var requirements corev1.ResourceRequirements
	for _, q := range []struct {
		list  *corev1.ResourceList
		name  corev1.ResourceName
		value *string
		field string
	}{
		{&requirements.Limits, corev1.ResourceCPU, f.CPULimit, "cpuLimit"},
		{&requirements.Limits, corev1.ResourceMemory, f.MemoryLimit, "memoryLimit"},
		{&requirements.Requests, corev1.ResourceCPU, f.CPURequest, "cpuRequest"},
		{&requirements.Requests, corev1.ResourceMemory, f.MemoryRequest, "memoryRequest"},
	} {
		if q.value == nil {
			continue
		}
		quantity, err := resource.ParseQuantity(*q.value)
		if err != nil {
			return corev1.ResourceRequirements{}, fmt.Errorf("invalid %s %q: %w", q.field, *q.value, err)
		}
		if *q.list == nil {
			*q.list = corev1.ResourceList{}
		}
		(*q.list)[q.name] = quantity
	}
	return requirements, nil
}
