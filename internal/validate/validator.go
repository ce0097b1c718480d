// Package validate checks resolved job records before they are projected into
// workload objects.
package validate

import (
	"fmt"

	"github.com/sourceplane/kronjob/internal/model"
	"github.com/sourceplane/kronjob/internal/schedule"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

const (
	// MaxNameLength leaves room for the suffix the CronJob controller appends
	// to the names of the Jobs it creates.
	MaxNameLength = 52

	minHistoryLimit = 1
)

var (
	validConcurrencyPolicies = []string{
		string(batchv1.AllowConcurrent),
		string(batchv1.ForbidConcurrent),
		string(batchv1.ReplaceConcurrent),
	}
	validRestartPolicies = []string{
		string(corev1.RestartPolicyNever),
		string(corev1.RestartPolicyOnFailure),
	}
	validPullPolicies = []string{
		string(corev1.PullAlways),
		string(corev1.PullIfNotPresent),
		string(corev1.PullNever),
	}
)

// ruleFunc checks one aspect of a record. path locates the record in the input.
type ruleFunc func(job *model.AggregateJob, path *field.Path) field.ErrorList

var rules = []ruleFunc{
	requiredFieldsRule,
	nameRule,
	namespaceRule,
	scheduleRule,
	historyLimitsRule,
	deadlinesRule,
	policiesRule,
	resourcesRule,
}

// Validator checks resolved records against the semantic rules.
type Validator struct {
	rules []ruleFunc
}

// NewValidator creates a validator with the full rule set
func NewValidator() *Validator {
	return &Validator{rules: rules}
}

// Validate checks every record and returns a single *Error listing every
// violation, or nil.
func (v *Validator) Validate(jobs []model.AggregateJob) error {
	var errs field.ErrorList
	for i := range jobs {
		errs = append(errs, v.ValidateJob(&jobs[i])...)
	}
	return NewError(StageSemantic, errs)
}

// ValidateJob returns the violations of a single record.
func (v *Validator) ValidateJob(job *model.AggregateJob) field.ErrorList {
	path := SourcePath(job.Source)

	var errs field.ErrorList
	for _, rule := range v.rules {
		errs = append(errs, rule(job, path)...)
	}
	return errs
}

// SourcePath names the input location of a record, e.g. jobs[1][staging].
func SourcePath(source model.Source) *field.Path {
	path := field.NewPath("root")
	if source.Job >= 0 {
		path = field.NewPath("jobs").Index(source.Job)
	}
	if source.Namespace != "" {
		path = path.Key(source.Namespace)
	}
	return path
}

func requiredFieldsRule(job *model.AggregateJob, path *field.Path) field.ErrorList {
	var errs field.ErrorList
	if job.Name == nil {
		errs = append(errs, field.Required(path.Child("name"), "must be set on the top level, a namespace override or the job"))
	}
	if job.GetImage() == "" {
		errs = append(errs, field.Required(path.Child("image"), "must be set on the top level, a namespace override or the job"))
	}
	if job.GetSchedule() == "" {
		errs = append(errs, field.Required(path.Child("schedule"), "must be set on the top level, a namespace override or the job"))
	}
	return errs
}

func nameRule(job *model.AggregateJob, path *field.Path) field.ErrorList {
	if job.Name == nil {
		return nil
	}

	name := *job.Name
	namePath := path.Child("name")
	if len(name) > MaxNameLength {
		return field.ErrorList{field.TooLong(namePath, name, MaxNameLength)}
	}

	var errs field.ErrorList
	for _, msg := range validation.IsDNS1123Subdomain(name) {
		errs = append(errs, field.Invalid(namePath, name, msg))
	}
	return errs
}

func namespaceRule(job *model.AggregateJob, path *field.Path) field.ErrorList {
	if job.Namespace == nil {
		return nil
	}

	var errs field.ErrorList
	for _, msg := range validation.IsDNS1123Label(*job.Namespace) {
		errs = append(errs, field.Invalid(path.Child("namespace"), *job.Namespace, msg))
	}
	return errs
}

func scheduleRule(job *model.AggregateJob, path *field.Path) field.ErrorList {
	if job.GetSchedule() == "" {
		return nil
	}

	if err := schedule.Validate(*job.Schedule); err != nil {
		return field.ErrorList{field.Invalid(path.Child("schedule"), *job.Schedule,
			fmt.Sprintf("must be either %q or a valid cron schedule: %v", schedule.Once, err))}
	}
	return nil
}

func historyLimitsRule(job *model.AggregateJob, path *field.Path) field.ErrorList {
	var errs field.ErrorList
	if limit := job.FailedJobsHistoryLimit; limit != nil && *limit < minHistoryLimit {
		errs = append(errs, field.Invalid(path.Child("failedJobsHistoryLimit"), *limit,
			fmt.Sprintf("must be greater than or equal to %d", minHistoryLimit)))
	}
	if limit := job.SuccessfulJobsHistoryLimit; limit != nil && *limit < minHistoryLimit {
		errs = append(errs, field.Invalid(path.Child("successfulJobsHistoryLimit"), *limit,
			fmt.Sprintf("must be greater than or equal to %d", minHistoryLimit)))
	}
	return errs
}

func deadlinesRule(job *model.AggregateJob, path *field.Path) field.ErrorList {
	var errs field.ErrorList
	if v := job.BackoffLimit; v != nil && *v < 0 {
		errs = append(errs, field.Invalid(path.Child("backoffLimit"), *v, "must be greater than or equal to 0"))
	}
	if v := job.StartingDeadlineSeconds; v != nil && *v < 0 {
		errs = append(errs, field.Invalid(path.Child("startingDeadlineSeconds"), *v, "must be greater than or equal to 0"))
	}
	return errs
}

func policiesRule(job *model.AggregateJob, path *field.Path) field.ErrorList {
	var errs field.ErrorList
	if v := job.ConcurrencyPolicy; v != nil && !contains(validConcurrencyPolicies, string(*v)) {
		errs = append(errs, field.NotSupported(path.Child("concurrencyPolicy"), *v, validConcurrencyPolicies))
	}
	if v := job.RestartPolicy; v != nil && !contains(validRestartPolicies, string(*v)) {
		errs = append(errs, field.NotSupported(path.Child("restartPolicy"), *v, validRestartPolicies))
	}
	if v := job.ImagePullPolicy; v != nil && !contains(validPullPolicies, string(*v)) {
		errs = append(errs, field.NotSupported(path.Child("imagePullPolicy"), *v, validPullPolicies))
	}
	return errs
}

func resourcesRule(job *model.AggregateJob, path *field.Path) field.ErrorList {
	var errs field.ErrorList
	for _, q := range []struct {
		name  string
		value *string
	}{
		{"cpuLimit", job.CPULimit},
		{"cpuRequest", job.CPURequest},
		{"memoryLimit", job.MemoryLimit},
		{"memoryRequest", job.MemoryRequest},
	} {
		if q.value == nil {
			continue
		}
		if _, err := resource.ParseQuantity(*q.value); err != nil {
			errs = append(errs, field.Invalid(path.Child(q.name), *q.value, err.Error()))
		}
	}
	return errs
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
