// Package chain splits a multi-exception traceback (Python's chained
// exceptions, Node/Rust "Caused by:" blocks) into ordered links and
// summarizes the causal chain for output (component H).
package chain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/HoyeonS/railtrace/internal/language"
	"github.com/HoyeonS/railtrace/internal/report"
)

var (
	pyDirectCause     = regexp.MustCompile(`(?m)^\s*The above exception was the direct cause of the following exception:\s*$`)
	pyImplicitContext = regexp.MustCompile(`(?m)^\s*During handling of the above exception, another exception occurred:\s*$`)
	causedBy          = regexp.MustCompile(`(?m)^Caused by:\s*$`)
	nodeCausedBy      = regexp.MustCompile(`(?m)^Caused by:`)
)

type boundary struct {
	start, end int
	rel        report.Relationship
}

// Split parses trace into an ordered slice of chain links. Index 0 is
// the root cause as it appears first in text; the last link is the
// exception that was ultimately raised.
func Split(trace string) []report.ChainLink {
	switch language.Detect(trace) {
	case report.Python:
		return splitOnBoundaries(trace, pythonBoundaries(trace))
	case report.Node:
		return splitCausedBy(trace, nodeCausedBy)
	case report.Rust:
		return splitCausedBy(trace, causedBy)
	default:
		return []report.ChainLink{{TraceText: strings.TrimSpace(trace), Relationship: report.RelationshipRoot, Index: 0}}
	}
}

// IsChained reports whether trace contains any chain boundary marker,
// regardless of detected language.
func IsChained(trace string) bool {
	return pyDirectCause.MatchString(trace) || pyImplicitContext.MatchString(trace) || nodeCausedBy.MatchString(trace)
}

func pythonBoundaries(trace string) []boundary {
	var bounds []boundary
	for _, m := range pyDirectCause.FindAllStringIndex(trace, -1) {
		bounds = append(bounds, boundary{m[0], m[1], report.RelationshipDirectCause})
	}
	for _, m := range pyImplicitContext.FindAllStringIndex(trace, -1) {
		bounds = append(bounds, boundary{m[0], m[1], report.RelationshipImplicitContext})
	}
	sortBoundaries(bounds)
	return bounds
}

func sortBoundaries(bounds []boundary) {
	for i := 1; i < len(bounds); i++ {
		for j := i; j > 0 && bounds[j-1].start > bounds[j].start; j-- {
			bounds[j-1], bounds[j] = bounds[j], bounds[j-1]
		}
	}
}

func splitOnBoundaries(trace string, bounds []boundary) []report.ChainLink {
	if len(bounds) == 0 {
		return []report.ChainLink{{TraceText: strings.TrimSpace(trace), Relationship: report.RelationshipRoot, Index: 0}}
	}

	var links []report.ChainLink
	prevEnd := 0

	for i, b := range bounds {
		block := strings.TrimSpace(trace[prevEnd:b.start])
		if block != "" {
			rel := report.RelationshipRoot
			if i > 0 {
				rel = bounds[i-1].rel
			}
			links = append(links, report.ChainLink{TraceText: block, Relationship: rel, Index: len(links)})
		}
		prevEnd = b.end
	}

	if final := strings.TrimSpace(trace[prevEnd:]); final != "" {
		links = append(links, report.ChainLink{TraceText: final, Relationship: bounds[len(bounds)-1].rel, Index: len(links)})
	}

	return links
}

func splitCausedBy(trace string, sep *regexp.Regexp) []report.ChainLink {
	parts := sep.Split(trace, -1)
	if len(parts) <= 1 {
		return []report.ChainLink{{TraceText: strings.TrimSpace(trace), Relationship: report.RelationshipRoot, Index: 0}}
	}

	var links []report.ChainLink
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		rel := report.RelationshipCausedBy
		if i == 0 {
			rel = report.RelationshipRoot
		}
		links = append(links, report.ChainLink{TraceText: part, Relationship: rel, Index: len(links)})
	}
	return links
}

var relationshipLabels = map[report.Relationship]string{
	report.RelationshipRoot:            "ROOT CAUSE",
	report.RelationshipDirectCause:     "caused →",
	report.RelationshipImplicitContext: "during handling →",
	report.RelationshipCausedBy:        "caused by →",
}

const maxSummaryErrorLen = 80

// Summary renders a human-readable chain description, or "" when
// links has fewer than two entries.
func Summary(links []report.ChainLink) string {
	if len(links) < 2 {
		return ""
	}

	lines := make([]string, 0, len(links)+1)
	lines = append(lines, fmt.Sprintf("Exception chain (%d linked errors):", len(links)))

	for i, link := range links {
		arrow := "  *"
		if i > 0 {
			arrow = "  ->"
		}
		label, ok := relationshipLabels[link.Relationship]
		if !ok {
			label = string(link.Relationship)
		}
		lines = append(lines, fmt.Sprintf("%s [%s] %s", arrow, label, errorLine(link.TraceText)))
	}

	return strings.Join(lines, "\n")
}

func errorLine(trace string) string {
	lines := strings.Split(strings.TrimSpace(trace), "\n")
	line := lines[len(lines)-1]
	if len(line) > maxSummaryErrorLen {
		line = line[:maxSummaryErrorLen-3] + "..."
	}
	return line
}
