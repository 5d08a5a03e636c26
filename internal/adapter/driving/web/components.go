package web

//go:generate go tool templ generate

import (
	"strconv"

	vm "github.com/ericfisherdev/ciwatch/internal/adapter/driving/web/viewmodel"
)

func failedHeading(n int) string {
	switch n {
	case 0:
		return "No failed checks"
	case 1:
		return "1 failed check"
	default:
		return strconv.Itoa(n) + " failed checks"
	}
}

func flashClass(isError bool) string {
	if isError {
		return "flash flash--error"
	}
	return "flash"
}

// checkStateLabel shows the conclusion once a check has one.
func checkStateLabel(c vm.CheckViewModel) string {
	if c.Conclusion != "" {
		return c.Conclusion
	}
	return c.Status
}

func stepClass(s vm.StepViewModel) string {
	if s.IsFailed {
		return "step step--failed"
	}
	return "step"
}

func notificationClass(n vm.NotificationViewModel) string {
	if n.IsRead {
		return "notification"
	}
	return "notification notification--unread"
}
