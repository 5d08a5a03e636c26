package web

import (
	"bytes"
	"strings"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Check run summaries are GitHub-flavoured markdown that may embed raw HTML
// (collapsible <details> sections are common), so raw HTML passes through
// goldmark and the combined output is sanitized afterwards.
var (
	summaryMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	summaryPolicy = newSummaryPolicy()
)

func newSummaryPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("details", "summary")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// RenderMarkdown converts a check run summary to sanitized HTML.
func RenderMarkdown(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := summaryMarkdown.Convert([]byte(src), &buf); err != nil {
		return summaryPolicy.Sanitize(src)
	}
	return string(summaryPolicy.SanitizeBytes(buf.Bytes()))
}

// logMarkers maps Actions workflow command prefixes to the CSS class of the
// rendered line. The prefix itself is not shown.
var logMarkers = []struct{ prefix, class string }{
	{"##[error]", "log-error"},
	{"##[warning]", "log-warning"},
	{"##[notice]", "log-notice"},
	{"##[group]", "log-group"},
	{"##[command]", "log-command"},
}

// RenderLogLines renders log lines as escaped HTML, one span per line.
func RenderLogLines(lines []string) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		class, text := classifyLogLine(line)
		b.WriteString(`<span class="` + class + `">`)
		b.WriteString(templ.EscapeString(text))
		b.WriteString(`</span>`)
	}
	return b.String()
}

func classifyLogLine(line string) (class, text string) {
	if line == "##[endgroup]" {
		return "log-group-end", ""
	}
	for _, m := range logMarkers {
		if rest, ok := strings.CutPrefix(line, m.prefix); ok {
			return m.class, rest
		}
	}
	return "log-line", line
}
