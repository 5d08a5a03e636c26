package model

import "time"

// WorkflowJob is a GitHub Actions job backing a check run.
type WorkflowJob struct {
	ID          int64
	RunID       int64
	Name        string
	Status      string
	Conclusion  string
	HTMLURL     string
	Steps       []WorkflowStep
	StartedAt   time.Time
	CompletedAt time.Time
}

// WorkflowStep is one step of an Actions job.
type WorkflowStep struct {
	Number     int64
	Name       string
	Status     string
	Conclusion string
}

// FailedStep returns the first step with a failure conclusion, or nil.
func (j WorkflowJob) FailedStep() *WorkflowStep {
	for i := range j.Steps {
		if CheckConclusion(j.Steps[i].Conclusion).IsFailure() {
			return &j.Steps[i]
		}
	}
	return nil
}

// CheckLogs is the lazily loaded log view for a single failed check.
type CheckLogs struct {
	Check      RefCheck
	Job        WorkflowJob
	LogsURL    string
	ErrorLines []string // Lines annotated with ##[error].
	Excerpt    []string // Tail of the log with timestamps stripped.
	Truncated  bool
}
