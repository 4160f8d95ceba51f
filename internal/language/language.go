// Package language classifies a trace into one of the closed set of
// runtimes the pipeline understands (component B).
package language

import (
	"regexp"

	"github.com/HoyeonS/railtrace/internal/report"
)

// signature is one regular expression contributing to a language's score.
type signature struct {
	pattern *regexp.Regexp
}

// signatureTable is data, not code: it can be edited (new entries added
// or removed) without touching Detect's scoring loop.
var signatureTable = map[report.LanguageTag][]signature{
	report.Python: {
		{regexp.MustCompile(`Traceback \(most recent call last\):`)},
		{regexp.MustCompile(`File "[^"]+", line \d+`)},
		{regexp.MustCompile(`(?m)^\w*(Error|Exception|Warning):`)},
	},
	report.Node: {
		{regexp.MustCompile(`(?m)^\s+at .+\(.+:\d+:\d+\)`)},
		{regexp.MustCompile(`(?m)^\s+at .+:\d+:\d+`)},
		{regexp.MustCompile(`node:internal/`)},
	},
	report.Rust: {
		{regexp.MustCompile(`thread '.*' panicked at`)},
		{regexp.MustCompile(`\.rs:\d+`)},
		{regexp.MustCompile(`RUST_BACKTRACE`)},
	},
	report.Go: {
		{regexp.MustCompile(`(?m)^panic: `)},
		{regexp.MustCompile(`goroutine \d+ \[.+\]:`)},
		{regexp.MustCompile(`\.go:\d+ \+0x[0-9a-f]+`)},
	},
	report.JVM: {
		{regexp.MustCompile(`(?m)^\s*at [\w$.]+\([\w]+\.(java|kt):\d+\)`)},
		{regexp.MustCompile(`Caused by: [\w.]+(Exception|Error)`)},
		{regexp.MustCompile(`(?m)^Exception in thread`)},
	},
	report.Solidity: {
		{regexp.MustCompile(`-->\s*[\w./-]+\.sol:\d+`)},
		{regexp.MustCompile(`solc[,: ]`)},
		{regexp.MustCompile(`revert(ed)?\b`)},
	},
}

// Detect scores trace against every language's signature table and
// returns the highest-scoring language. Ties are broken in
// report.CanonicalOrder. Zero matches returns report.Unknown. Pure and
// idempotent.
func Detect(trace string) report.LanguageTag {
	best := report.Unknown
	bestScore := 0

	for _, lang := range report.CanonicalOrder {
		score := 0
		for _, sig := range signatureTable[lang] {
			if sig.pattern.MatchString(trace) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = lang
		}
	}

	return best
}
