package domain

import "time"

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Notification is a decoded progress callback from the CI pipeline.
type Notification struct {
	BuildID   string
	Step      Optional[string]
	StepIndex Optional[int64]
	Status    string
	RunID     Optional[string]
	APKURL    string
	AABURL    string
}

// BuildRunUpdate is the partial record applied to a build run.
type BuildRunUpdate struct {
	Step       Optional[string]
	StepIndex  Optional[int64]
	RunID      Optional[string]
	Status     Optional[string]
	APKURL     Optional[string]
	AABURL     Optional[string]
	FinishedAt *time.Time
}

// Column is a single column assignment of an update. Value is nil for SQL NULL
// and a time.Time for timestamp columns.
type Column struct {
	Name  string
	Value any
}

// JSONValue is Value as it appears in a JSON request body: timestamps become
// FormatTimestamp text, everything else is unchanged.
func (c Column) JSONValue() any {
	if t, ok := c.Value.(time.Time); ok {
		return FormatTimestamp(t)
	}
	return c.Value
}

func IsTerminalStatus(status string) bool {
	return status == StatusSuccess || status == StatusFailed
}

// NewBuildRunUpdate derives the partial update for n. Step, step index and run id
// pass through as received; status and artifact URLs are only written when non-empty.
func NewBuildRunUpdate(n Notification, now time.Time) BuildRunUpdate {
	update := BuildRunUpdate{
		Step:      n.Step,
		StepIndex: n.StepIndex,
		RunID:     n.RunID,
	}
	if n.Status != "" {
		update.Status = Some(n.Status)
	}
	if n.APKURL != "" {
		update.APKURL = Some(n.APKURL)
	}
	if n.AABURL != "" {
		update.AABURL = Some(n.AABURL)
	}
	if IsTerminalStatus(n.Status) {
		finishedAt := now.UTC()
		update.FinishedAt = &finishedAt
	}
	return update
}

// Columns lists the assignments to perform, in a stable order.
func (u BuildRunUpdate) Columns() []Column {
	cols := make([]Column, 0, 7)
	if u.Step.Set {
		cols = append(cols, Column{Name: "step", Value: u.Step.Any()})
	}
	if u.StepIndex.Set {
		cols = append(cols, Column{Name: "step_index", Value: u.StepIndex.Any()})
	}
	if u.RunID.Set {
		cols = append(cols, Column{Name: "run_id", Value: u.RunID.Any()})
	}
	if u.Status.Set {
		cols = append(cols, Column{Name: "status", Value: u.Status.Any()})
	}
	if u.APKURL.Set {
		cols = append(cols, Column{Name: "apk_url", Value: u.APKURL.Any()})
	}
	if u.AABURL.Set {
		cols = append(cols, Column{Name: "aab_url", Value: u.AABURL.Any()})
	}
	if u.FinishedAt != nil {
		cols = append(cols, Column{Name: "finished_at", Value: u.FinishedAt.UTC().Truncate(time.Millisecond)})
	}
	return cols
}

// FormatTimestamp renders t as ISO-8601 UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
