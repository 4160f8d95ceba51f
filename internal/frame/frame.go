// Package frame extracts (file, line, symbol) frames from a trace, one
// parser per language (component C).
package frame

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/HoyeonS/railtrace/internal/report"
)

var (
	pythonFrame = regexp.MustCompile(`File "([^"]+)", line (\d+), in (\S+)`)

	nodeFrameNamed = regexp.MustCompile(`at (\S+) \(([^:]+):(\d+):(\d+)\)`)
	nodeFrameAnon  = regexp.MustCompile(`at ([^\s(]+):(\d+):(\d+)`)

	rustFrame = regexp.MustCompile(`(\S+\.rs):(\d+)`)

	goFrame = regexp.MustCompile(`^\t(\S+\.go):(\d+)`)

	jvmFrame = regexp.MustCompile(`at ([\w$.]+)\(([\w$]+\.(?:java|kt)):(\d+)\)`)

	solidityFrame = regexp.MustCompile(`-->\s*(\S+\.sol):(\d+)`)
)

// Extract parses trace according to lang's grammar, returning frames in
// trace order (innermost-last or innermost-first per language, see
// spec). When lang is report.Unknown, every parser is tried in
// report.CanonicalOrder and the first non-empty result is returned.
func Extract(trace string, lang report.LanguageTag) []report.Frame {
	switch lang {
	case report.Python:
		return extractPython(trace)
	case report.Node:
		return extractNode(trace)
	case report.Rust:
		return extractRust(trace)
	case report.Go:
		return extractGo(trace)
	case report.JVM:
		return extractJVM(trace)
	case report.Solidity:
		return extractSolidity(trace)
	default:
		for _, candidate := range report.CanonicalOrder {
			if frames := Extract(trace, candidate); len(frames) > 0 {
				return frames
			}
		}
		return nil
	}
}

// Innermost returns the frame the spec treats as "most recently
// executing" for lang: the last frame for python/node/rust, the first
// for go/jvm/solidity.
func Innermost(frames []report.Frame, lang report.LanguageTag) (report.Frame, bool) {
	if len(frames) == 0 {
		return report.Frame{}, false
	}
	switch lang {
	case report.Go, report.JVM, report.Solidity:
		return frames[0], true
	default:
		return frames[len(frames)-1], true
	}
}

func extractPython(trace string) []report.Frame {
	var frames []report.Frame
	for _, m := range pythonFrame.FindAllStringSubmatch(trace, -1) {
		line, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		frames = append(frames, report.Frame{FilePath: m[1], LineNumber: line, Symbol: m[3]})
	}
	return frames
}

func extractNode(trace string) []report.Frame {
	var frames []report.Frame
	for _, line := range strings.Split(trace, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "at ") {
			continue
		}
		if m := nodeFrameNamed.FindStringSubmatch(trimmed); m != nil {
			if skipNodePath(m[2]) {
				continue
			}
			n, err := strconv.Atoi(m[3])
			if err != nil {
				continue
			}
			frames = append(frames, report.Frame{FilePath: m[2], LineNumber: n, Symbol: m[1]})
			continue
		}
		if m := nodeFrameAnon.FindStringSubmatch(trimmed); m != nil {
			if skipNodePath(m[1]) {
				continue
			}
			n, err := strconv.Atoi(m[2])
			if err != nil {
				continue
			}
			frames = append(frames, report.Frame{FilePath: m[1], LineNumber: n})
		}
	}
	return frames
}

func skipNodePath(path string) bool {
	return strings.HasPrefix(path, "node:") || strings.HasPrefix(path, "<")
}

func extractRust(trace string) []report.Frame {
	var frames []report.Frame
	for _, m := range rustFrame.FindAllStringSubmatch(trace, -1) {
		if strings.Contains(m[1], "/rustc/") || strings.Contains(m[1], "library/std") {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		frames = append(frames, report.Frame{FilePath: m[1], LineNumber: n})
	}
	return frames
}

func extractGo(trace string) []report.Frame {
	var frames []report.Frame
	for _, line := range strings.Split(trace, "\n") {
		m := goFrame.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		path := m[1]
		if strings.Contains(path, "GOROOT") || strings.HasPrefix(path, "/usr/local/go/") {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		frames = append(frames, report.Frame{FilePath: path, LineNumber: n})
	}
	return frames
}

func extractJVM(trace string) []report.Frame {
	var frames []report.Frame
	for _, m := range jvmFrame.FindAllStringSubmatch(trace, -1) {
		n, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		frames = append(frames, report.Frame{FilePath: m[2], LineNumber: n, Symbol: m[1]})
	}
	return frames
}

func extractSolidity(trace string) []report.Frame {
	var frames []report.Frame
	for _, m := range solidityFrame.FindAllStringSubmatch(trace, -1) {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		frames = append(frames, report.Frame{FilePath: m[1], LineNumber: n})
	}
	return frames
}
