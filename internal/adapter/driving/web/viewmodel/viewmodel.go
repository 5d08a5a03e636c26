// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// DialogViewModel holds the failed-checks dialog for one pull request.
type DialogViewModel struct {
	Repository  string
	Number      int
	Title       string
	Author      string
	Branch      string
	ShortSHA    string
	URL         string
	Live        bool
	FailedCount int
	Checks      []CheckViewModel
	Flash       string
	FlashError  bool
	CSRFToken   string
	RerunPath   string
	SwitchPath  string
}

// CheckViewModel holds presentation-ready data for one check row.
type CheckViewModel struct {
	ID          int64
	Name        string
	AppName     string
	Description string
	Status      string
	Conclusion  string
	// StateClass is a CSS modifier: failed, running, passed or neutral.
	StateClass  string
	Duration    string
	SummaryHTML string
	DetailsURL  string
	IsFailed    bool
	CanRerun    bool
	LogsPath    string
}

// LogsViewModel holds the lazily loaded log fragment of a check.
type LogsViewModel struct {
	CheckName  string
	JobURL     string
	LogsURL    string
	FailedStep string
	Steps      []StepViewModel
	ErrorLines []string
	LogHTML    string
	Truncated  bool
}

// StepViewModel holds one step of an Actions job.
type StepViewModel struct {
	Number     int64
	Name       string
	Conclusion string
	IsFailed   bool
}

// NotificationViewModel holds one row of the notification history.
type NotificationViewModel struct {
	Repository string
	PRNumber   int
	Body       string
	DialogPath string
	CreatedAt  string
	IsRead     bool
}
