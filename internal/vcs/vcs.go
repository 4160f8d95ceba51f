// Package vcs gathers git blame and recent-history context for a local
// frame (component E). All git invocations are subprocesses bounded by
// a timeout; any failure surfaces as report.VcsContext.Error rather
// than aborting the caller.
package vcs

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/HoyeonS/railtrace/internal/report"
)

// Collector runs git subprocesses under configured timeouts.
type Collector struct {
	BlameTimeout time.Duration
	LogTimeout   time.Duration
}

// New returns a Collector with the given timeouts.
func New(blameTimeout, logTimeout time.Duration) *Collector {
	return &Collector{BlameTimeout: blameTimeout, LogTimeout: logTimeout}
}

// Collect builds a VcsContext for the given frame. Skip is the
// process-wide "skip_vcs" toggle; when true, Collect returns an empty,
// error-populated context without running any subprocess.
func (c *Collector) Collect(ctx context.Context, f report.Frame, skip bool) report.VcsContext {
	if skip {
		return report.VcsContext{Frame: f, Error: "vcs collection disabled"}
	}

	root, err := c.repoRoot(ctx, f.FilePath)
	if err != nil {
		return report.VcsContext{Frame: f, Error: "Not in a git repository"}
	}

	blame, err := c.blame(ctx, root, f.FilePath, f.LineNumber)
	if err != nil {
		return report.VcsContext{Frame: f, RepoRoot: root, Error: err.Error()}
	}

	diffs, err := c.recentDiffs(ctx, root, f.FilePath, f.LineNumber)
	if err != nil {
		diffs = nil
	}

	return report.VcsContext{Frame: f, Blame: blame, Diffs: diffs, RepoRoot: root}
}

func (c *Collector) repoRoot(ctx context.Context, path string) (string, error) {
	dir := filepath.Dir(path)
	out, err := c.run(ctx, dir, c.BlameTimeout, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

var porcelainHeader = regexp.MustCompile(`^([0-9a-f]{7,40}) \d+ \d+`)

func (c *Collector) blame(ctx context.Context, root, path string, line int) (*report.BlameRecord, error) {
	dir := filepath.Dir(path)
	rangeArg := fmt.Sprintf("-L%d,%d", line, line)
	out, err := c.run(ctx, dir, c.BlameTimeout, "blame", "--porcelain", rangeArg, "--", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	return parsePorcelainBlame(out, line)
}

func parsePorcelainBlame(output string, line int) (*report.BlameRecord, error) {
	rec := &report.BlameRecord{Line: line}
	scanner := bufio.NewScanner(strings.NewReader(output))
	found := false

	for scanner.Scan() {
		text := scanner.Text()
		switch {
		case porcelainHeader.MatchString(text):
			m := porcelainHeader.FindStringSubmatch(text)
			rec.Commit = m[1]
			found = true
		case strings.HasPrefix(text, "author "):
			rec.Author = strings.TrimPrefix(text, "author ")
		case strings.HasPrefix(text, "author-mail "):
			rec.Email = strings.Trim(strings.TrimPrefix(text, "author-mail "), "<>")
		case strings.HasPrefix(text, "author-time "):
			secs, err := strconv.ParseInt(strings.TrimPrefix(text, "author-time "), 10, 64)
			if err == nil {
				rec.Timestamp = time.Unix(secs, 0).UTC()
			}
		case strings.HasPrefix(text, "summary "):
			rec.Summary = strings.TrimPrefix(text, "summary ")
		case strings.HasPrefix(text, "\t"):
			rec.Content = strings.TrimPrefix(text, "\t")
		}
	}

	if !found {
		return nil, fmt.Errorf("no blame record for line %d", line)
	}
	return rec, nil
}

const (
	maxHunkLines   = 20
	maxDiffCommits = 3
	diffRadius     = 5
)

// recentDiffs finds up to maxDiffCommits commits that touched the
// lines around line (via `git log -L`, falling back to a plain
// per-file log when that range has no history), then fetches each
// commit's diff and extracts just the hunk overlapping the target
// range.
func (c *Collector) recentDiffs(ctx context.Context, root, path string, line int) ([]report.DiffHunk, error) {
	dir := filepath.Dir(path)

	start := line - diffRadius
	if start < 1 {
		start = 1
	}
	lineRange := fmt.Sprintf("-L%d,%d:%s", start, line+diffRadius, filepath.Base(path))

	var entries []logEntry
	out, err := c.run(ctx, dir, c.LogTimeout, "log", "-n", strconv.Itoa(maxDiffCommits),
		lineRange, "--format=%H|%an|%aI|%s", "--no-patch")
	if err == nil {
		entries = parseLogEntries(out)
	}

	if len(entries) == 0 {
		fallback, ferr := c.run(ctx, dir, c.LogTimeout, "log", "-n", strconv.Itoa(maxDiffCommits),
			"--format=%H|%an|%aI|%s", "--no-patch", "--", filepath.Base(path))
		if ferr != nil {
			return nil, ferr
		}
		entries = parseLogEntries(fallback)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	return c.hydrateHunks(ctx, dir, path, entries, line), nil
}

// logEntry is one `git log --format=%H|%an|%aI|%s` row.
type logEntry struct {
	Commit    string
	Author    string
	Timestamp time.Time
	Message   string
}

func parseLogEntries(output string) []logEntry {
	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 4)
		if len(parts) != 4 {
			continue
		}
		ts, _ := time.Parse(time.RFC3339, parts[2])
		entries = append(entries, logEntry{Commit: parts[0], Author: parts[1], Timestamp: ts, Message: parts[3]})
	}
	return entries
}

// hydrateHunks fetches each commit's diff on path and keeps only the
// hunk overlapping line, capped at maxHunkLines.
func (c *Collector) hydrateHunks(ctx context.Context, dir, path string, entries []logEntry, line int) []report.DiffHunk {
	hunks := make([]report.DiffHunk, 0, len(entries))
	for _, e := range entries {
		diffOut, err := c.run(ctx, dir, c.LogTimeout, "diff", e.Commit+"~1.."+e.Commit, "--", filepath.Base(path))
		hunkText := ""
		if err == nil {
			hunkText = extractRelevantHunk(diffOut, line, diffRadius)
		}
		hunks = append(hunks, report.DiffHunk{
			Commit:    e.Commit,
			Author:    e.Author,
			Timestamp: e.Timestamp,
			Message:   e.Message,
			HunkText:  hunkText,
			Path:      path,
		})
	}
	return hunks
}

var hunkHeader = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

// extractRelevantHunk parses unified-diff output into hunks and
// returns the one overlapping targetLine±radius, capped at
// maxHunkLines. Falls back to the first hunk (capped at 15 lines) when
// none overlaps, and to "" when the diff has no hunks at all.
func extractRelevantHunk(diffOutput string, targetLine, radius int) string {
	if diffOutput == "" {
		return ""
	}

	type hunk struct {
		start int
		lines []string
	}
	var hunks []hunk
	var current hunk

	for _, line := range strings.Split(diffOutput, "\n") {
		if m := hunkHeader.FindStringSubmatch(line); m != nil {
			if len(current.lines) > 0 {
				hunks = append(hunks, current)
			}
			start, _ := strconv.Atoi(m[1])
			current = hunk{start: start, lines: []string{line}}
			continue
		}
		if len(current.lines) > 0 {
			current.lines = append(current.lines, line)
		}
	}
	if len(current.lines) > 0 {
		hunks = append(hunks, current)
	}

	targetStart := targetLine - radius
	targetEnd := targetLine + radius

	for _, h := range hunks {
		hunkLen := 0
		for _, l := range h.lines {
			if !strings.HasPrefix(l, "-") {
				hunkLen++
			}
		}
		if hunkEnd := h.start + hunkLen; h.start <= targetEnd && hunkEnd >= targetStart {
			return strings.Join(capLines(h.lines, maxHunkLines), "\n")
		}
	}

	if len(hunks) > 0 {
		return strings.Join(capLines(hunks[0].lines, 15), "\n")
	}
	return ""
}

func capLines(lines []string, n int) []string {
	if len(lines) > n {
		return lines[:n]
	}
	return lines
}

func (c *Collector) run(ctx context.Context, dir string, timeout time.Duration, args ...string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, "git", args...)
	cmd.Dir = dir

	out, err := cmd.Output()
	if err != nil {
		if cctx.Err() != nil {
			return "", fmt.Errorf("git %s: timed out", strings.Join(args, " "))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}
