// Package pattern matches a normalized error line against curated,
// per-language signatures to produce an instant root-cause and fix
// without invoking a model (component G, tier 1 of the cascade).
package pattern

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/HoyeonS/railtrace/internal/report"
)

// rule is one entry in a language's pattern table. RootCause and
// SuggestedFix are Sprintf templates consuming the regex's capture
// groups in order.
type rule struct {
	expr         *regexp.Regexp
	rootCause    string
	suggestedFix string
	severity     report.Severity
}

// Match is a successful pattern hit.
type Match struct {
	RootCause    string
	SuggestedFix string
	Severity     report.Severity
}

var pythonRules = []rule{
	{
		expr:         regexp.MustCompile(`ModuleNotFoundError: No module named '(\S+)'`),
		rootCause:    "Missing dependency: %s",
		suggestedFix: "Run: pip install %[1]s",
		severity:     report.SeverityHigh,
	},
	{
		expr:         regexp.MustCompile(`ImportError: cannot import name '(\S+)' from '(\S+)'`),
		rootCause:    "Bad import — '%s' doesn't exist in '%s' (version mismatch or typo)",
		suggestedFix: "Check the package version or fix the import name",
		severity:     report.SeverityHigh,
	},
	{
		expr:         regexp.MustCompile(`KeyError: (.+)`),
		rootCause:    "Accessed missing dict key: %s",
		suggestedFix: "Use .get(%[1]s, default) or check key existence first",
		severity:     report.SeverityMedium,
	},
	{
		expr:         regexp.MustCompile(`TypeError: (.+) got an unexpected keyword argument '(\S+)'`),
		rootCause:    "Function %s doesn't accept kwarg '%s'",
		suggestedFix: "Check the function signature — likely an API change or typo",
		severity:     report.SeverityMedium,
	},
	{
		expr:         regexp.MustCompile(`FileNotFoundError: \[Errno 2\] No such file or directory: '(.+)'`),
		rootCause:    "Missing file: %s",
		suggestedFix: "Verify the path exists or create the file/directory",
		severity:     report.SeverityHigh,
	},
	{
		expr:         regexp.MustCompile(`ConnectionRefusedError`),
		rootCause:    "Service unreachable — connection refused",
		suggestedFix: "Check whether the target service is running and the port is correct",
		severity:     report.SeverityCritical,
	},
	{
		expr:         regexp.MustCompile(`PermissionError`),
		rootCause:    "Insufficient file/process permissions",
		suggestedFix: "Check file ownership and permissions (chmod/chown)",
		severity:     report.SeverityCritical,
	},
	{
		expr:         regexp.MustCompile(`ZeroDivisionError`),
		rootCause:    "Division by zero",
		suggestedFix: "Add a guard: check the denominator is non-zero before dividing",
		severity:     report.SeverityMedium,
	},
	{
		// AttributeError stays medium: it usually means a None value or
		// wrong type slipped through, not a crash condition on its own.
		expr:         regexp.MustCompile(`AttributeError: '(\S+)' object has no attribute '(\S+)'`),
		rootCause:    "'%s' has no attribute '%s' — likely None or the wrong type",
		suggestedFix: "Add a type check or verify the object was initialized",
		severity:     report.SeverityMedium,
	},
}

var nodeRules = []rule{
	{
		expr:         regexp.MustCompile(`Cannot find module '(\S+)'`),
		rootCause:    "Missing dependency: %s",
		suggestedFix: "Run: npm install %[1]s",
		severity:     report.SeverityHigh,
	},
	{
		expr:         regexp.MustCompile(`TypeError: Cannot read propert(?:y|ies) '?(\S+)'? of (undefined|null)`),
		rootCause:    "Property '%s' accessed on %s",
		suggestedFix: "Add a null check before accessing the property",
		severity:     report.SeverityMedium,
	},
	{
		expr:         regexp.MustCompile(`ECONNREFUSED`),
		rootCause:    "Service unreachable — connection refused",
		suggestedFix: "Check whether the target service is running and the port is correct",
		severity:     report.SeverityCritical,
	},
	{
		expr:         regexp.MustCompile(`UnhandledPromiseRejection`),
		rootCause:    "A promise rejected without a .catch handler",
		suggestedFix: "Add error handling to the async call chain",
		severity:     report.SeverityHigh,
	},
}

var rustRules = []rule{
	{
		expr:         regexp.MustCompile(`called .Option::unwrap\(\). on a .None. value`),
		rootCause:    "unwrap() called on a None value",
		suggestedFix: "Handle the None case explicitly or use unwrap_or/expect with context",
		severity:     report.SeverityMedium,
	},
	{
		expr:         regexp.MustCompile(`index out of bounds: the len is (\d+) but the index is (\d+)`),
		rootCause:    "Index %[2]s out of bounds for length %[1]s",
		suggestedFix: "Bounds-check before indexing, or use .get() instead",
		severity:     report.SeverityMedium,
	},
	{
		expr:         regexp.MustCompile(`attempt to (?:add|subtract|multiply) with overflow`),
		rootCause:    "Arithmetic overflow on an integer operation",
		suggestedFix: "Use checked_/wrapping_/saturating_ arithmetic or widen the type",
		severity:     report.SeverityHigh,
	},
}

var goRules = []rule{
	{
		expr:         regexp.MustCompile(`runtime error: invalid memory address or nil pointer dereference`),
		rootCause:    "Nil pointer dereference",
		suggestedFix: "Check the value for nil before dereferencing it",
		severity:     report.SeverityCritical,
	},
	{
		expr:         regexp.MustCompile(`runtime error: integer divide by zero`),
		rootCause:    "Division by zero",
		suggestedFix: "Add a guard: check the divisor is non-zero before dividing",
		severity:     report.SeverityCritical,
	},
	{
		expr:         regexp.MustCompile(`runtime error: index out of range \[(\d+)\] with length (\d+)`),
		rootCause:    "Index %s out of range for length %s",
		suggestedFix: "Bounds-check before indexing",
		severity:     report.SeverityMedium,
	},
	{
		expr:         regexp.MustCompile(`fatal error: concurrent map (read and )?writes?`),
		rootCause:    "Concurrent map access without synchronization",
		suggestedFix: "Guard the map with a sync.Mutex or use sync.Map",
		severity:     report.SeverityHigh,
	},
}

var jvmRules = []rule{
	{
		expr:         regexp.MustCompile(`java\.lang\.NullPointerException`),
		rootCause:    "Null pointer dereference",
		suggestedFix: "Check the reference for null before use, or use Optional",
		severity:     report.SeverityCritical,
	},
	{
		expr:         regexp.MustCompile(`java\.lang\.ClassNotFoundException: (\S+)`),
		rootCause:    "Missing class on the classpath: %s",
		suggestedFix: "Verify the dependency is declared and on the runtime classpath",
		severity:     report.SeverityHigh,
	},
	{
		expr:         regexp.MustCompile(`java\.lang\.OutOfMemoryError`),
		rootCause:    "JVM heap exhausted",
		suggestedFix: "Increase -Xmx or investigate a memory leak",
		severity:     report.SeverityCritical,
	},
}

var solidityRules = []rule{
	{
		expr:         regexp.MustCompile(`revert(?:ed)?:? ?(.*insufficient.*|.*balance.*)`),
		rootCause:    "Transaction reverted on an insufficient balance/allowance check",
		suggestedFix: "Verify balances and approvals before the call that reverts",
		severity:     report.SeverityHigh,
	},
	{
		expr:         regexp.MustCompile(`out of gas|OutOfGas`),
		rootCause:    "Transaction ran out of gas",
		suggestedFix: "Raise the gas limit or reduce the operation's gas cost",
		severity:     report.SeverityMedium,
	},
	{
		expr:         regexp.MustCompile(`SafeMath: (addition|subtraction|multiplication) overflow`),
		rootCause:    "Arithmetic overflow caught by SafeMath",
		suggestedFix: "Validate operand ranges before the arithmetic operation",
		severity:     report.SeverityHigh,
	},
}

var tables = map[report.LanguageTag][]rule{
	report.Python:   pythonRules,
	report.Node:     nodeRules,
	report.Rust:     rustRules,
	report.Go:       goRules,
	report.JVM:      jvmRules,
	report.Solidity: solidityRules,
}

// Match tests errorLine against lang's pattern table, falling back to
// the Python table (the richest and most general one) when lang has no
// table of its own or no rule in lang's table fires.
func Match(errorLine string, lang report.LanguageTag) (Match, bool) {
	if m, ok := matchTable(errorLine, tables[lang]); ok {
		return m, true
	}
	if lang != report.Python {
		if m, ok := matchTable(errorLine, pythonRules); ok {
			return m, true
		}
	}
	return Match{}, false
}

func matchTable(errorLine string, rules []rule) (Match, bool) {
	for _, r := range rules {
		m := r.expr.FindStringSubmatch(errorLine)
		if m == nil {
			continue
		}
		args := make([]any, 0, len(m)-1)
		for _, g := range m[1:] {
			args = append(args, g)
		}
		return Match{
			RootCause:    sprintfGroups(r.rootCause, args),
			SuggestedFix: sprintfGroups(r.suggestedFix, args),
			Severity:     r.severity,
		}, true
	}
	return Match{}, false
}

// sprintfGroups formats template with args only when template actually
// contains verbs; templates with no capture groups are returned as-is
// even when args is non-empty (e.g. ConnectionRefusedError variants).
func sprintfGroups(template string, args []any) string {
	if !strings.Contains(template, "%") {
		return template
	}
	return fmt.Sprintf(template, args...)
}
