package application

import (
	"regexp"
	"strings"
)

// DefaultLogExcerptLines is how many trailing log lines the dialog shows.
const DefaultLogExcerptLines = 200

var (
	logTimestampRe = regexp.MustCompile(`^\d{4}-\d\d-\d\dT\d\d:\d\d:\d\d(\.\d+)?Z `)
	ansiRe         = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
)

// ParsedLog is the readable form of a raw Actions job log.
type ParsedLog struct {
	ErrorLines []string
	Excerpt    []string
	Truncated  bool
}

// ParseActionsLog strips timestamps and ANSI colour codes from a job log,
// collects the ##[error] annotations, and keeps the last maxLines lines.
// maxLines <= 0 selects DefaultLogExcerptLines.
func ParseActionsLog(content string, maxLines int) ParsedLog {
	if maxLines <= 0 {
		maxLines = DefaultLogExcerptLines
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimRight(content, "\n")
	if content == "" {
		return ParsedLog{}
	}

	raw := strings.Split(content, "\n")
	lines := make([]string, 0, len(raw))
	var errs []string
	for _, line := range raw {
		line = ansiRe.ReplaceAllString(logTimestampRe.ReplaceAllString(line, ""), "")
		if rest, ok := strings.CutPrefix(line, "##[error]"); ok {
			errs = append(errs, rest)
		}
		lines = append(lines, line)
	}

	parsed := ParsedLog{ErrorLines: errs, Excerpt: lines}
	if len(lines) > maxLines {
		parsed.Excerpt = lines[len(lines)-maxLines:]
		parsed.Truncated = true
	}
	return parsed
}
