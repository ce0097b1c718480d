// Package schedule validates the schedule field of a job record.
package schedule

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Once marks a job that runs a single time instead of on a cron schedule.
const Once = "once"

// Five-field standard cron, an optional leading seconds field, and the
// @yearly/@monthly/@weekly/@daily/@hourly descriptors.
var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// IsOnce reports whether the schedule selects a one-shot Job.
func IsOnce(schedule string) bool {
	return schedule == Once
}

// Validate returns nil when schedule is either Once or a valid cron expression.
func Validate(schedule string) error {
	if IsOnce(schedule) {
		return nil
	}

	trimmed := strings.TrimSpace(schedule)
	if trimmed == "" {
		return fmt.Errorf("empty schedule")
	}
	// robfig accepts these but the CronJob controller does not
	if strings.HasPrefix(trimmed, "@every") {
		return fmt.Errorf("@every intervals are not supported")
	}
	if strings.HasPrefix(trimmed, "TZ=") || strings.HasPrefix(trimmed, "CRON_TZ=") {
		return fmt.Errorf("time zone prefixes are not supported")
	}

	if _, err := parser.Parse(trimmed); err != nil {
		return err
	}
	return nil
}

// IsValid is Validate as a predicate.
func IsValid(schedule string) bool {
	return Validate(schedule) == nil
}

// HasSeconds reports whether a valid recurring schedule carries the optional
// leading seconds field. The CronJob controller only reads five fields.
func HasSeconds(schedule string) bool {
	if IsOnce(schedule) || !IsValid(schedule) {
		return false
	}
	return len(strings.Fields(schedule)) == 6
}
