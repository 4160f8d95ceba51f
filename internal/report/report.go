// Package report holds the shared data model every other diagnosis
// component returns or consumes: frames, source windows, version-control
// context, project profiles, the diagnosis report itself, chain links,
// and memory entries.
package report

import "time"

// LanguageTag is the closed set of runtimes the pipeline recognizes.
type LanguageTag string

const (
	Python   LanguageTag = "python"
	Node     LanguageTag = "node"
	Rust     LanguageTag = "rust"
	Go       LanguageTag = "go"
	JVM      LanguageTag = "jvm"
	Solidity LanguageTag = "solidity"
	Unknown  LanguageTag = "unknown"
)

// CanonicalOrder is the tie-break order used by the language detector
// and the frame extractor's unknown-language fallback.
var CanonicalOrder = []LanguageTag{Python, Node, Rust, Go, JVM, Solidity}

// Severity is the closed severity scale.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Frame is a single file/line/symbol location extracted from a trace.
type Frame struct {
	FilePath   string
	LineNumber int
	Symbol     string // empty when the trace carries no symbol
}

// SourceWindow is an immutable, bounded read of source lines around a
// frame's error line.
type SourceWindow struct {
	FilePath  string
	ErrorLine int
	StartLine int
	EndLine   int
	Lines     []string
	Exists    bool
}

// BlameRecord is a single git-blame line for a frame's error line.
type BlameRecord struct {
	Commit    string
	Author    string
	Email     string
	Timestamp time.Time
	Line      int
	Content   string
	Summary   string
}

// IsRecent reports whether the commit landed within the last 7 days of
// now. Computed on read, never persisted, per spec.
func (b BlameRecord) IsRecent(now time.Time) bool {
	return now.Sub(b.Timestamp) < 7*24*time.Hour
}

// AgeLabel renders a short human age string ("2d ago", "3w ago"),
// matching the original's age-banded blame display.
func (b BlameRecord) AgeLabel(now time.Time) string {
	d := now.Sub(b.Timestamp)
	switch {
	case d < 0:
		return "just now"
	case d < 24*time.Hour:
		return "today"
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		return pluralAge(days, "d")
	case d < 30*24*time.Hour:
		weeks := int(d.Hours() / (24 * 7))
		return pluralAge(weeks, "w")
	case d < 365*24*time.Hour:
		months := int(d.Hours() / (24 * 30))
		return pluralAge(months, "mo")
	default:
		years := int(d.Hours() / (24 * 365))
		return pluralAge(years, "y")
	}
}

func pluralAge(n int, unit string) string {
	if n <= 0 {
		n = 1
	}
	return itoa(n) + unit + " ago"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		digits = append([]byte{'-'}, digits...)
	}
	return string(digits)
}

// DiffHunk is a single commit's change overlapping a target line range.
type DiffHunk struct {
	Commit    string
	Author    string
	Timestamp time.Time
	Message   string
	HunkText  string // capped at 20 lines
	Path      string
}

// VcsContext is the version-control enrichment for a single frame.
// Only one of Error or (Blame, Diffs) is meaningfully populated.
type VcsContext struct {
	Frame    Frame
	Blame    *BlameRecord
	Diffs    []DiffHunk
	RepoRoot string
	Error    string
}

// ProjectProfile describes a scanned project root. A value object,
// cached per absolute root by the project profiler.
type ProjectProfile struct {
	Root          string
	Name          string
	Languages     []string
	Frameworks    []string
	Deps          map[string]string
	DevDeps       map[string]string
	EntryPoints   []string
	ConfigFiles   []string
	Structure     map[string]string
	Runtime       string
	PackageManager string
}

// DiagnosisReport is the immutable result of analyzing a single trace.
type DiagnosisReport struct {
	ID                string
	ErrorType         string
	ErrorMessage      string
	File              string
	Line              int
	HasLocation       bool
	Symbol            string
	RootCause         string
	SuggestedFix      string
	Severity          Severity
	Tier              int
	Model             string
	ArchitectureNotes string
	VcsSummary        string
}

// Relationship is the kind of separator that preceded a chain link.
type Relationship string

const (
	RelationshipRoot            Relationship = "root"
	RelationshipDirectCause     Relationship = "direct_cause"
	RelationshipImplicitContext Relationship = "implicit_context"
	RelationshipCausedBy        Relationship = "caused_by"
)

// ChainLink is one segment of a split exception chain.
type ChainLink struct {
	TraceText    string
	Relationship Relationship
	Index        int
}

// MemoryEntry is a persisted, recallable prior diagnosis.
type MemoryEntry struct {
	ID             string
	Timestamp      time.Time
	Language       LanguageTag
	Fingerprint    string
	Snippet        string
	Severity       Severity
	Tier           int
	RootCause      string
	SuggestedFix   string
	Confidence     float64
	Success        bool
	RepoID         string
	HasRepoID      bool
}
