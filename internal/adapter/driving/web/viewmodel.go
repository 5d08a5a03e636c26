package web

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	vm "github.com/ericfisherdev/ciwatch/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/ciwatch/internal/application"
	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// dialogPath returns the dialog page path of a pull request.
func dialogPath(repoFullName string, number int) string {
	owner, name, _ := strings.Cut(repoFullName, "/")
	return fmt.Sprintf("/checks/%s/%s/%d", url.PathEscape(owner), url.PathEscape(name), number)
}

// toDialogViewModel converts the checks view into the dialog view model.
// Checks keep the display order of the view.
func toDialogViewModel(view application.PullRequestChecks, csrf string) vm.DialogViewModel {
	base := dialogPath(view.PR.RepoFullName, view.PR.Number)

	checks := make([]vm.CheckViewModel, 0, len(view.Checks))
	for _, c := range view.Checks {
		checks = append(checks, toCheckViewModel(c, base))
	}

	return vm.DialogViewModel{
		Repository:  view.PR.RepoFullName,
		Number:      view.PR.Number,
		Title:       view.PR.Title,
		Author:      view.PR.Author,
		Branch:      view.PR.Branch,
		ShortSHA:    view.PR.ShortSHA(),
		URL:         view.PR.URL,
		Live:        view.Live,
		FailedCount: len(view.FailedChecks()),
		Checks:      checks,
		CSRFToken:   csrf,
		RerunPath:   base + "/rerun",
		SwitchPath:  base + "/checkout",
	}
}

func toCheckViewModel(c model.RefCheck, dialogBase string) vm.CheckViewModel {
	details := c.HTMLURL
	if details == "" {
		details = c.DetailsURL
	}

	cv := vm.CheckViewModel{
		ID:          c.ID,
		Name:        c.Name,
		AppName:     c.AppName,
		Description: c.Description,
		Status:      string(c.Status),
		Conclusion:  string(c.Conclusion),
		StateClass:  stateClass(c),
		Duration:    formatDuration(c.Duration()),
		SummaryHTML: RenderMarkdown(c.OutputSummary),
		DetailsURL:  details,
		IsFailed:    c.IsFailed(),
		CanRerun:    c.IsFailed() && c.Source == model.CheckSourceCheckRun,
	}
	if c.IsActionsJob() {
		cv.LogsPath = fmt.Sprintf("%s/logs/%d", dialogBase, c.ID)
	}
	return cv
}

func stateClass(c model.RefCheck) string {
	switch {
	case c.IsFailed():
		return "failed"
	case c.Status != model.CheckStatusCompleted:
		return "running"
	case c.Conclusion == model.ConclusionSuccess:
		return "passed"
	default:
		return "neutral"
	}
}

// formatDuration renders a check duration like "1m 30s". Empty for zero.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func toLogsViewModel(logs model.CheckLogs) vm.LogsViewModel {
	steps := make([]vm.StepViewModel, 0, len(logs.Job.Steps))
	for _, s := range logs.Job.Steps {
		steps = append(steps, vm.StepViewModel{
			Number:     s.Number,
			Name:       s.Name,
			Conclusion: s.Conclusion,
			IsFailed:   model.CheckConclusion(s.Conclusion).IsFailure(),
		})
	}

	lv := vm.LogsViewModel{
		CheckName:  logs.Check.Name,
		JobURL:     logs.Job.HTMLURL,
		LogsURL:    logs.LogsURL,
		Steps:      steps,
		ErrorLines: logs.ErrorLines,
		LogHTML:    RenderLogLines(logs.Excerpt),
		Truncated:  logs.Truncated,
	}
	if step := logs.Job.FailedStep(); step != nil {
		lv.FailedStep = step.Name
	}
	return lv
}

func toNotificationViewModels(notifications []model.Notification) []vm.NotificationViewModel {
	out := make([]vm.NotificationViewModel, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, vm.NotificationViewModel{
			Repository: n.RepoFullName,
			PRNumber:   n.PRNumber,
			Body:       n.Body,
			DialogPath: dialogPath(n.RepoFullName, n.PRNumber),
			CreatedAt:  n.CreatedAt.Local().Format("2006-01-02 15:04"),
			IsRead:     n.IsRead,
		})
	}
	return out
}
