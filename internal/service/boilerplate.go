package service

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"
)

// boilerplateLines are removed in order. Each matches whole lines only.
var boilerplateLines = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^(table of contents|contents|index)[ \t]*$`),
	regexp.MustCompile(`(?im)^page[ \t]+\d+[ \t]*$`),
	regexp.MustCompile(`(?m)^[ \t]*\d+[ \t]*$`),
	regexp.MustCompile(`(?im)^(header|footer|copyright|all rights reserved).*$`),
	regexp.MustCompile(`(?m)^[-=_*]{5,}[ \t]*$`),
}

var (
	excessNewlines  = regexp.MustCompile(`\n{3,}`)
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
)

// TrimBoilerplate removes table-of-contents markers, page numbers, header and
// footer lines and horizontal rules, then compresses whitespace.
func TrimBoilerplate(text string) string {
	before := len(text)
	for _, re := range boilerplateLines {
		text = re.ReplaceAllString(text, "")
	}
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	text = horizontalSpace.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	text = strings.Join(lines, "\n")

	// stripping trailing space can turn whitespace-only lines into new blank runs
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)

	slog.Debug("boilerplate trim", "chars_before", before, "chars_after", len(text))
	return text
}
