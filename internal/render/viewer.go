package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sourceplane/kronjob/internal/model"
	"github.com/sourceplane/kronjob/internal/schedule"
)

const rule = "═══════════════════════════════════════════════════════════\n"

// RecordViewer provides human-readable views of resolved job records
type RecordViewer struct {
	jobs []model.AggregateJob
}

// NewRecordViewer creates a new record viewer
func NewRecordViewer(jobs []model.AggregateJob) *RecordViewer {
	return &RecordViewer{jobs: jobs}
}

// ViewTree returns a tree of records grouped by namespace. Records keep
// their generation order within a namespace.
func (rv *RecordViewer) ViewTree() string {
	if len(rv.jobs) == 0 {
		return "No jobs generated"
	}

	byNamespace := rv.groupByNamespace()
	namespaces := make([]string, 0, len(byNamespace))
	for ns := range byNamespace {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	var sb strings.Builder
	for i, ns := range namespaces {
		isLastNamespace := i == len(namespaces)-1

		nsPrefix := "├─ "
		nsConnector := "│  "
		if isLastNamespace {
			nsPrefix = "└─ "
			nsConnector = "   "
		}
		sb.WriteString(fmt.Sprintf("%s%s\n", nsPrefix, ns))

		jobs := byNamespace[ns]
		for j, job := range jobs {
			isLastJob := j == len(jobs)-1

			jobPrefix := nsConnector + "├─ "
			jobConnector := nsConnector + "│  "
			if isLastJob {
				jobPrefix = nsConnector + "└─ "
				jobConnector = nsConnector + "   "
			}
			sb.WriteString(fmt.Sprintf("%s%s [%s] %s\n", jobPrefix, job.GetName(), job.GetSchedule(), kindOf(job)))

			details := recordDetails(job)
			for k, detail := range details {
				detailPrefix := jobConnector + "├─ "
				if k == len(details)-1 {
					detailPrefix = jobConnector + "└─ "
				}
				sb.WriteString(detailPrefix + detail + "\n")
			}
		}
	}

	sb.WriteString("\n")
	sb.WriteString(rule)
	sb.WriteString(rv.summary(len(namespaces)))
	return sb.String()
}

// ViewNamespace shows the records generated for a single namespace
func (rv *RecordViewer) ViewNamespace(namespace string) string {
	jobs := rv.groupByNamespace()[namespace]
	if len(jobs) == 0 {
		return fmt.Sprintf("No jobs found for namespace: %s", namespace)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (%d jobs)\n", namespace, len(jobs)))
	sb.WriteString(rule + "\n")

	for i, job := range jobs {
		prefix := "├─ "
		connector := "│  "
		if i == len(jobs)-1 {
			prefix = "└─ "
			connector = "   "
		}

		sb.WriteString(fmt.Sprintf("%s%s\n", prefix, job.GetName()))
		sb.WriteString(fmt.Sprintf("%s  Kind: %s\n", connector, kindOf(job)))
		sb.WriteString(fmt.Sprintf("%s  Schedule: %s\n", connector, job.GetSchedule()))
		for _, detail := range recordDetails(job) {
			sb.WriteString(fmt.Sprintf("%s  %s\n", connector, detail))
		}
	}
	return sb.String()
}

func (rv *RecordViewer) groupByNamespace() map[string][]*model.AggregateJob {
	byNamespace := make(map[string][]*model.AggregateJob)
	for i := range rv.jobs {
		job := &rv.jobs[i]
		ns := job.GetNamespace()
		if ns == "" {
			ns = DefaultNamespace
		}
		byNamespace[ns] = append(byNamespace[ns], job)
	}
	return byNamespace
}

func (rv *RecordViewer) summary(namespaces int) string {
	var once int
	for i := range rv.jobs {
		if schedule.IsOnce(rv.jobs[i].GetSchedule()) {
			once++
		}
	}
	return fmt.Sprintf("Summary: %d namespaces, %d jobs (%d Job, %d CronJob)\n",
		namespaces, len(rv.jobs), once, len(rv.jobs)-once)
}

func kindOf(job *model.AggregateJob) string {
	if schedule.IsOnce(job.GetSchedule()) {
		return "Job"
	}
	return "CronJob"
}

func recordDetails(job *model.AggregateJob) []string {
	var details []string
	if job.Image != nil {
		details = append(details, "image: "+*job.Image)
	}
	if len(job.Command) > 0 {
		details = append(details, "command: "+truncate(strings.Join(job.Command, " ")))
	}
	if len(job.Args) > 0 {
		details = append(details, "args: "+truncate(strings.Join(job.Args, " ")))
	}
	if len(job.Env) > 0 {
		names := make([]string, len(job.Env))
		for i, env := range job.Env {
			names[i] = env.Name
		}
		details = append(details, "env: "+strings.Join(names, ", "))
	}
	if job.Suspend != nil && *job.Suspend {
		details = append(details, "suspended")
	}
	return details
}

// truncate shortens long command lines for readability
func truncate(s string) string {
	if runes := []rune(s); len(runes) > 60 {
		return string(runes[:57]) + "..."
	}
	return s
}
