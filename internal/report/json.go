package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// reportJSON is the wire shape of DiagnosisReport. Drops the raw trace
// (never held on the struct in the first place) and exposes File/Line
// only when HasLocation is set, matching invariant 2 (both present or
// both absent).
type reportJSON struct {
	ErrorType         string  `json:"error_type"`
	ErrorMessage      string  `json:"error_message"`
	File              *string `json:"file,omitempty"`
	Line              *int    `json:"line,omitempty"`
	Symbol            string  `json:"symbol,omitempty"`
	RootCause         string  `json:"root_cause"`
	SuggestedFix      string  `json:"suggested_fix"`
	Severity          string  `json:"severity"`
	Tier              int     `json:"tier"`
	Model             string  `json:"model,omitempty"`
	ArchitectureNotes string  `json:"architecture_notes,omitempty"`
	VcsSummary        string  `json:"vcs_summary,omitempty"`
}

// MarshalJSON implements the §4.M serialization contract.
func (r DiagnosisReport) MarshalJSON() ([]byte, error) {
	w := reportJSON{
		ErrorType:         r.ErrorType,
		ErrorMessage:      r.ErrorMessage,
		Symbol:            r.Symbol,
		RootCause:         r.RootCause,
		SuggestedFix:      r.SuggestedFix,
		Severity:          string(r.Severity),
		Tier:              r.Tier,
		Model:             r.Model,
		ArchitectureNotes: r.ArchitectureNotes,
		VcsSummary:        r.VcsSummary,
	}
	if r.HasLocation {
		w.File = &r.File
		line := r.Line
		w.Line = &line
	}
	return json.Marshal(w)
}

// UnmarshalJSON is the inverse of MarshalJSON, for the round-trip
// property in spec §8.
func (r *DiagnosisReport) UnmarshalJSON(data []byte) error {
	var w reportJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = DiagnosisReport{
		ErrorType:         w.ErrorType,
		ErrorMessage:      w.ErrorMessage,
		Symbol:            w.Symbol,
		RootCause:         w.RootCause,
		SuggestedFix:      w.SuggestedFix,
		Severity:          Severity(w.Severity),
		Tier:              w.Tier,
		Model:             w.Model,
		ArchitectureNotes: w.ArchitectureNotes,
		VcsSummary:        w.VcsSummary,
	}
	if w.File != nil && w.Line != nil {
		r.File = *w.File
		r.Line = *w.Line
		r.HasLocation = true
	}
	return nil
}

// ToDict mirrors the original's `_report_to_dict`: a JSON-safe map with
// the raw trace and non-serializable VCS detail already stripped (there
// never was a raw trace field on this type, and vcs_summary is already
// the compact string form).
func (r DiagnosisReport) ToDict() (map[string]any, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ChainResult is the response shape for a chained diagnosis.
type ChainResult struct {
	ChainSummary string            `json:"chain_summary"`
	IsChained    bool              `json:"is_chained"`
	Reports      []DiagnosisReport `json:"reports"`
	RootCause    *DiagnosisReport  `json:"root_cause,omitempty"`
	FinalError   *DiagnosisReport  `json:"final_error,omitempty"`
	TotalLinked  int               `json:"total_linked"`
}

// BatchResult is the response shape for a batch diagnosis.
type BatchResult struct {
	Reports        []DiagnosisReport `json:"reports"`
	TotalErrors    int               `json:"total_errors"`
	SeverityCounts map[string]int    `json:"severity_counts"`
	ElapsedSeconds float64           `json:"elapsed_seconds"`
}

// HasCritical reports whether any report in the batch is critical.
func (b BatchResult) HasCritical() bool {
	return b.SeverityCounts["critical"] > 0
}

// FormatSummary renders a short human summary, matching the original's
// batch.py:BatchResult.format_summary (severity icons, critical banner).
func (b BatchResult) FormatSummary() string {
	icons := map[string]string{
		"critical": "[critical]",
		"high":     "[high]",
		"medium":   "[medium]",
		"low":      "[low]",
	}

	out := "Batch summary\n"
	out += "  total errors: " + itoa(b.TotalErrors) + "\n"
	for _, level := range []string{"critical", "high", "medium", "low"} {
		if n := b.SeverityCounts[level]; n > 0 {
			out += "  " + icons[level] + " " + level + ": " + itoa(n) + "\n"
		}
	}
	if b.HasCritical() {
		out += "  critical errors detected -- immediate attention required\n"
	}
	return out
}

// maxPromptDeps caps dependency lists for prompt-facing output, matching
// the original's format_for_prompt truncation.
const maxPromptDeps = 30

// ToDict serializes a ProjectProfile for the /project/scan response.
func (p ProjectProfile) ToDict() map[string]any {
	return map[string]any{
		"root":            p.Root,
		"name":            p.Name,
		"languages":       p.Languages,
		"frameworks":      p.Frameworks,
		"deps":            p.Deps,
		"dev_deps":        p.DevDeps,
		"entry_points":    p.EntryPoints,
		"config_files":    p.ConfigFiles,
		"structure":       p.Structure,
		"runtime":         p.Runtime,
		"package_manager": p.PackageManager,
	}
}

// FormatForPrompt renders a compact textual summary for injection into
// a model prompt, capping dependency lists at maxPromptDeps with an
// "...and N more" tail, matching the original's format_for_prompt.
func (p ProjectProfile) FormatForPrompt() string {
	out := "Project: " + p.Name + "\n"
	if len(p.Languages) > 0 {
		out += "Languages: " + joinStrings(p.Languages) + "\n"
	}
	if len(p.Frameworks) > 0 {
		out += "Frameworks: " + joinStrings(p.Frameworks) + "\n"
	}
	if len(p.Deps) > 0 {
		out += "Dependencies: " + formatDeps(p.Deps) + "\n"
	}
	if p.Runtime != "" {
		out += "Runtime: " + p.Runtime + "\n"
	}
	if p.PackageManager != "" {
		out += "Package manager: " + p.PackageManager + "\n"
	}
	return out
}

// FormatForPrompt renders the window with a marker on the error line,
// matching the original's linecache-based `>>>` banner.
func (w SourceWindow) FormatForPrompt() string {
	if !w.Exists {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "-- %s (line %d) --\n", w.FilePath, w.ErrorLine)
	for i, line := range w.Lines {
		n := w.StartLine + i
		marker := "    "
		if n == w.ErrorLine {
			marker = " >>>"
		}
		fmt.Fprintf(&b, "%s %4d | %s\n", marker, n, line)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatForPrompt renders a compact summary of blame and recent
// history for injection into a model prompt.
func (v VcsContext) FormatForPrompt() string {
	if v.Error != "" {
		return ""
	}
	var lines []string
	if v.Blame != nil {
		lines = append(lines, fmt.Sprintf("Last changed by %s (%s) in %s: %s",
			v.Blame.Author, v.Blame.Commit[:minInt(8, len(v.Blame.Commit))], v.Blame.Summary, v.Blame.Content))
	}
	for _, d := range v.Diffs {
		lines = append(lines, fmt.Sprintf("%s %s: %s", d.Commit[:minInt(8, len(d.Commit))], d.Author, d.Message))
	}
	return strings.Join(lines, "\n")
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func joinStrings(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

func formatDeps(deps map[string]string) string {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	shown := names
	extra := 0
	if len(names) > maxPromptDeps {
		shown = names[:maxPromptDeps]
		extra = len(names) - maxPromptDeps
	}

	out := ""
	for i, name := range shown {
		if i > 0 {
			out += ", "
		}
		out += name + "@" + deps[name]
	}
	if extra > 0 {
		out += ", ...and " + itoa(extra) + " more"
	}
	return out
}
