// Package orchestrator runs the full diagnosis cascade: language
// detection, frame extraction, side-context collection, and tier
// escalation through pattern matching and model providers (component
// L). It is the only component that wires every other component
// together.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/HoyeonS/railtrace/internal/batch"
	"github.com/HoyeonS/railtrace/internal/chain"
	"github.com/HoyeonS/railtrace/internal/frame"
	"github.com/HoyeonS/railtrace/internal/gateway"
	"github.com/HoyeonS/railtrace/internal/language"
	"github.com/HoyeonS/railtrace/internal/memory"
	"github.com/HoyeonS/railtrace/internal/metrics"
	"github.com/HoyeonS/railtrace/internal/normalize"
	"github.com/HoyeonS/railtrace/internal/pattern"
	"github.com/HoyeonS/railtrace/internal/project"
	"github.com/HoyeonS/railtrace/internal/report"
	"github.com/HoyeonS/railtrace/internal/sourcewindow"
	"github.com/HoyeonS/railtrace/internal/vcs"
)

// maxContextFrames bounds how many innermost frames get source/VCS
// context collected, per §4.L step 4.
const maxContextFrames = 3

// Options are the per-call flags from the DiagnoseRequest contract.
// The contract's defaults are {deep: false, haiku: false,
// project_root: "", use_memory: true, skip_vcs: false}; the zero value
// has UseMemory false, so callers should start from DefaultOptions.
type Options struct {
	Deep        bool
	Haiku       bool
	ProjectRoot string
	UseMemory   bool
	SkipVcs     bool
}

// DefaultOptions matches the DiagnoseRequest contract's default field
// values.
func DefaultOptions() Options {
	return Options{UseMemory: true}
}

// Orchestrator wires together every component needed to run the
// cascade in §4.L.
type Orchestrator struct {
	sourceReader *sourcewindow.Reader
	vcsCollector *vcs.Collector
	memoryStore  *memory.Store
	gatewayReg   *gateway.Registry
	githubEnrich project.GitHubEnricher
	metrics      *metrics.Collector
}

// New builds an Orchestrator. memoryStore and githubEnrich may be nil
// to disable those features entirely.
func New(vcsCollector *vcs.Collector, memoryStore *memory.Store, gatewayReg *gateway.Registry, githubEnrich project.GitHubEnricher, m *metrics.Collector) *Orchestrator {
	return &Orchestrator{
		sourceReader: sourcewindow.New(),
		vcsCollector: vcsCollector,
		memoryStore:  memoryStore,
		gatewayReg:   gatewayReg,
		githubEnrich: githubEnrich,
		metrics:      m,
	}
}

// Diagnose runs the full cascade on a single (possibly non-chained)
// trace.
func (o *Orchestrator) Diagnose(ctx context.Context, trace string, opts Options) (report.DiagnosisReport, error) {
	defer o.sourceReader.Clear()
	return o.diagnoseOne(ctx, trace, opts)
}

// DiagnoseChain splits trace into causally-linked segments and
// diagnoses each independently, per §4.L's chained-analysis rule.
func (o *Orchestrator) DiagnoseChain(ctx context.Context, trace string, opts Options) (report.ChainResult, error) {
	defer o.sourceReader.Clear()

	links := chain.Split(trace)
	reports := make([]report.DiagnosisReport, 0, len(links))
	for _, link := range links {
		rep, err := o.diagnoseOne(ctx, link.TraceText, opts)
		if err != nil {
			return report.ChainResult{}, err
		}
		reports = append(reports, rep)
	}

	result := report.ChainResult{
		ChainSummary: chain.Summary(links),
		IsChained:    len(links) > 1,
		Reports:      reports,
		TotalLinked:  len(reports),
	}
	if len(reports) > 0 {
		result.RootCause = &reports[0]
		result.FinalError = &reports[len(reports)-1]
	}
	return result, nil
}

// DiagnoseBatch extracts every independent error out of text and
// diagnoses each, aggregating severity counts.
func (o *Orchestrator) DiagnoseBatch(ctx context.Context, text string, opts Options) (report.BatchResult, error) {
	defer o.sourceReader.Clear()
	start := time.Now()

	traces := batch.Extract(text)
	result := report.BatchResult{
		TotalErrors:    len(traces),
		SeverityCounts: map[string]int{"critical": 0, "high": 0, "medium": 0, "low": 0},
	}

	for _, tb := range traces {
		rep, err := o.diagnoseOne(ctx, tb, opts)
		if err != nil {
			return report.BatchResult{}, err
		}
		result.Reports = append(result.Reports, rep)
		result.SeverityCounts[string(rep.Severity)]++
	}
	result.ElapsedSeconds = time.Since(start).Seconds()
	return result, nil
}

// diagnoseOne runs steps 1-9 of §4.L on a single, already-split trace.
// It does not clear the source-line cache; callers own that.
func (o *Orchestrator) diagnoseOne(ctx context.Context, trace string, opts Options) (report.DiagnosisReport, error) {
	lang := language.Detect(trace)

	norm, err := normalize.Normalize(trace)
	if err != nil {
		return report.DiagnosisReport{
			ErrorType: "EmptyTraceError",
			RootCause: "no content to analyze",
			Severity:  report.SeverityLow,
		}, nil
	}

	errorLine := canonicalErrorLine(trace, lang)
	errorType, errorMessage := splitErrorLine(errorLine)

	frames := frame.Extract(trace, lang)
	innermost, hasInnermost := frame.Innermost(frames, lang)

	promptCtx := o.collectContext(ctx, trace, lang, frames, opts)

	var rep report.DiagnosisReport
	var tier gateway.Tier

	switch {
	case opts.Deep && o.gatewayReg != nil && o.gatewayReg.Available(gateway.TierGateway):
		rep = gateway.Diagnose(ctx, o.gatewayReg, gateway.TierGateway, o.buildPrompt(trace, promptCtx, true))
		tier = gateway.TierGateway
	case opts.Haiku && o.gatewayReg != nil && o.gatewayReg.Available(gateway.TierDeep):
		rep = gateway.Diagnose(ctx, o.gatewayReg, gateway.TierDeep, o.buildPrompt(trace, promptCtx, false))
		tier = gateway.TierDeep
	default:
		matchText := trace
		if lang == report.Python || lang == report.Node {
			matchText = errorLine
		}
		if m, ok := pattern.Match(matchText, lang); ok {
			rep = report.DiagnosisReport{
				ErrorType:    errorType,
				ErrorMessage: errorMessage,
				RootCause:    m.RootCause,
				SuggestedFix: m.SuggestedFix,
				Severity:     m.Severity,
				Tier:         1,
			}
			tier = gateway.TierPattern
		} else if o.gatewayReg != nil && o.gatewayReg.Available(gateway.TierFast) {
			rep = gateway.Diagnose(ctx, o.gatewayReg, gateway.TierFast, o.buildPrompt(trace, promptCtx, false))
			tier = gateway.TierFast
		} else {
			rep = report.DiagnosisReport{
				ErrorType:    errorType,
				ErrorMessage: errorMessage,
				RootCause:    "no pattern match and no model backend available",
				SuggestedFix: "configure model gateway credentials (tier 2-4) to enable analysis of this error",
				Severity:     report.SeverityMedium,
				Tier:         0,
			}
			tier = 0
		}
	}

	if rep.ErrorType == "" {
		rep.ErrorType = errorType
	}
	if rep.ErrorMessage == "" {
		rep.ErrorMessage = errorMessage
	}
	if hasInnermost && !rep.HasLocation {
		rep.File = innermost.FilePath
		rep.Line = innermost.LineNumber
		rep.Symbol = innermost.Symbol
		rep.HasLocation = true
	}
	rep.VcsSummary = promptCtx.vcsSummary

	if o.metrics != nil {
		o.metrics.RecordDiagnosis(string(lang), string(rep.Severity))
		o.metrics.RecordPatternMatch(string(lang), tier == gateway.TierPattern)
	}

	if opts.UseMemory && o.memoryStore != nil && tier >= gateway.TierFast {
		o.recordMemory(ctx, lang, norm, rep, tier)
	}

	return rep, nil
}

// confidenceForTier is monotone non-decreasing in tier, per §4.L.
func confidenceForTier(tier gateway.Tier) float64 {
	switch tier {
	case gateway.TierFast:
		return 0.6
	case gateway.TierDeep:
		return 0.8
	case gateway.TierGateway:
		return 0.95
	default:
		return 0.5
	}
}

func (o *Orchestrator) recordMemory(ctx context.Context, lang report.LanguageTag, norm normalize.Result, rep report.DiagnosisReport, tier gateway.Tier) {
	entry := report.MemoryEntry{
		Timestamp:    time.Now(),
		Language:     lang,
		Fingerprint:  norm.Fingerprint,
		Snippet:      norm.Snippet,
		Severity:     rep.Severity,
		Tier:         int(tier),
		RootCause:    rep.RootCause,
		SuggestedFix: rep.SuggestedFix,
		Confidence:   confidenceForTier(tier),
		Success:      false,
	}
	_, _ = o.memoryStore.Record(ctx, entry)
}

type assembledContext struct {
	sourceWindows []string
	vcsSummaries  []string
	vcsSummary    string
	projectPrompt string
	memoryRecall  string
}

func (o *Orchestrator) collectContext(ctx context.Context, trace string, lang report.LanguageTag, frames []report.Frame, opts Options) assembledContext {
	var out assembledContext

	innerFrames := lastN(frames, maxContextFrames, lang)

	for _, f := range innerFrames {
		if f.FilePath == "" {
			continue
		}
		window := o.sourceReader.Window(f.FilePath, f.LineNumber, sourcewindow.DefaultRadius)
		if window.Exists {
			out.sourceWindows = append(out.sourceWindows, window.FormatForPrompt())
		}

		if o.vcsCollector != nil {
			vc := o.vcsCollector.Collect(ctx, f, opts.SkipVcs)
			if vc.Error == "" {
				out.vcsSummaries = append(out.vcsSummaries, vc.FormatForPrompt())
				if out.vcsSummary == "" {
					out.vcsSummary = summaryOf(vc)
				}
			}
		}
	}

	if opts.ProjectRoot != "" {
		profile, err := project.Scan(ctx, opts.ProjectRoot, o.githubEnrich)
		if err == nil {
			out.projectPrompt = profile.FormatForPrompt()
		}
	}

	if opts.UseMemory && o.memoryStore != nil {
		norm, err := normalize.Normalize(trace)
		if err == nil {
			entries, merr := o.memoryStore.Recall(ctx, norm.Snippet, "", 3)
			if merr == nil && len(entries) > 0 {
				out.memoryRecall = formatRecall(entries)
			}
		}
	}

	return out
}

func summaryOf(vc report.VcsContext) string {
	if vc.Blame == nil {
		return ""
	}
	hash := vc.Blame.Commit
	if len(hash) > 8 {
		hash = hash[:8]
	}
	return hash + " " + vc.Blame.Author + " (" + vc.Blame.AgeLabel(time.Now()) + "), " + itoa(len(vc.Diffs)) + " recent commits"
}

func formatRecall(entries []report.MemoryEntry) string {
	var lines []string
	for _, e := range entries {
		lines = append(lines, string(e.Severity)+": "+e.RootCause+" -> "+e.SuggestedFix)
	}
	return strings.Join(lines, "\n")
}

func (o *Orchestrator) buildPrompt(trace string, ctx assembledContext, deep bool) gateway.Prompt {
	return gateway.Prompt{
		Trace:          trace,
		SourceWindow:   strings.Join(ctx.sourceWindows, "\n\n"),
		VcsSummary:     strings.Join(ctx.vcsSummaries, "\n"),
		ProjectProfile: ctx.projectPrompt,
		MemoryRecall:   ctx.memoryRecall,
		Deep:           deep,
	}
}

// canonicalErrorLine returns the error line per §4.C's innermost-frame
// convention: the last non-empty line for python/node/rust, the first
// matching candidate for go/jvm/solidity.
func canonicalErrorLine(trace string, lang report.LanguageTag) string {
	lines := strings.Split(strings.TrimRight(trace, "\n"), "\n")
	switch lang {
	case report.Go, report.JVM, report.Solidity:
		for _, l := range lines {
			if strings.TrimSpace(l) != "" {
				return strings.TrimSpace(l)
			}
		}
	default:
		for i := len(lines) - 1; i >= 0; i-- {
			if strings.TrimSpace(lines[i]) != "" {
				return strings.TrimSpace(lines[i])
			}
		}
	}
	return ""
}

func splitErrorLine(line string) (errorType, errorMessage string) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return strings.TrimSpace(line), ""
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:])
}

// lastN returns up to n innermost frames in innermost-first order,
// respecting the language's own innermost convention.
func lastN(frames []report.Frame, n int, lang report.LanguageTag) []report.Frame {
	if len(frames) == 0 {
		return nil
	}
	ordered := frames
	switch lang {
	case report.Go, report.JVM, report.Solidity:
		// already innermost-first
	default:
		ordered = make([]report.Frame, len(frames))
		for i, f := range frames {
			ordered[len(frames)-1-i] = f
		}
	}
	if len(ordered) > n {
		ordered = ordered[:n]
	}
	return ordered
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
