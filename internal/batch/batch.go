// Package batch extracts individual tracebacks out of a log blob that
// may contain several interleaved errors, preserving chained Python
// exceptions as single units (component I).
package batch

import (
	"regexp"
	"strings"
)

var (
	pyTracebackStart = regexp.MustCompile(`(?m)^Traceback \(most recent call last\):`)
	pyChainSeparator = regexp.MustCompile(`(?m)^\s*(?:The above exception was the direct cause|During handling of the above exception)`)
	nodeErrorStart   = regexp.MustCompile(`(?m)^([A-Z]\w*(?:Error|Exception)): .+\n\s+at\s`)
	rustPanicStart   = regexp.MustCompile(`(?m)^thread '.*' panicked at`)
	genericErrorLine = regexp.MustCompile(`^[A-Za-z][\w.]*(?:Error|Exception|Warning|Exit).*:`)
)

// Extract splits text into individual traceback strings. Chained
// Python tracebacks (connected by a cause/context separator) stay
// merged into a single block. Returns nil when no recognizable
// traceback start is found.
func Extract(text string) []string {
	if starts := matchStarts(pyTracebackStart, text); len(starts) > 0 {
		return extractPythonBlocks(text, starts)
	}
	if starts := matchStarts(nodeErrorStart, text); len(starts) > 0 {
		return extractGenericBlocks(text, starts)
	}
	if starts := matchStarts(rustPanicStart, text); len(starts) > 0 {
		return extractGenericBlocks(text, starts)
	}
	return nil
}

func matchStarts(expr *regexp.Regexp, text string) []int {
	locs := expr.FindAllStringIndex(text, -1)
	starts := make([]int, len(locs))
	for i, loc := range locs {
		starts[i] = loc[0]
	}
	return starts
}

func extractPythonBlocks(text string, starts []int) []string {
	type span struct{ start, end int }
	var groups []span
	currentStart := starts[0]

	for i := 1; i < len(starts); i++ {
		between := text[starts[i-1]:starts[i]]
		if pyChainSeparator.MatchString(between) {
			continue
		}
		groups = append(groups, span{currentStart, starts[i]})
		currentStart = starts[i]
	}
	groups = append(groups, span{currentStart, len(text)})

	var blocks []string
	for _, g := range groups {
		block := trimTrailingNoise(strings.TrimSpace(text[g.start:g.end]))
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

func extractGenericBlocks(text string, starts []int) []string {
	var blocks []string
	for i, start := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		block := trimTrailingNoise(strings.TrimSpace(text[start:end]))
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// trimTrailingNoise drops trailing log lines (timestamps, blank
// padding) that follow the last line still recognizable as part of
// the traceback body.
func trimTrailingNoise(block string) string {
	lines := strings.Split(block, "\n")
	if len(lines) == 0 {
		return block
	}

	lastIdx := len(lines) - 1
	for i := len(lines) - 1; i >= 0; i-- {
		stripped := strings.TrimSpace(lines[i])
		switch {
		case stripped != "" && genericErrorLine.MatchString(stripped):
			lastIdx = i
		case strings.HasPrefix(stripped, "File ") || strings.HasPrefix(lines[i], "  "):
			lastIdx = i
		default:
			continue
		}
		break
	}

	return strings.Join(lines[:lastIdx+1], "\n")
}
