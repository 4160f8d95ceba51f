// Command railtrace is a thin CLI over the railtrace diagnosis
// pipeline: pipe a traceback or panic in, get a structured report out.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/HoyeonS/railtrace/internal/config"
	"github.com/HoyeonS/railtrace/internal/logger"
	"github.com/HoyeonS/railtrace/internal/report"
	"github.com/HoyeonS/railtrace/pkg/railtrace"
)

const demoTraceback = `Traceback (most recent call last):
  File "app.py", line 42, in main
    from blockchain import verify_hash
  File "blockchain.py", line 5, in <module>
    import solana
ModuleNotFoundError: No module named 'solana'`

var severityIcons = map[report.Severity]string{
	report.SeverityLow:      "[low]",
	report.SeverityMedium:   "[medium]",
	report.SeverityHigh:     "[high]",
	report.SeverityCritical: "[critical]",
}

func main() {
	var (
		file        = flag.String("file", "", "path to an error log file")
		jsonOut     = flag.Bool("json", false, "output the raw JSON report")
		demo        = flag.Bool("demo", false, "run against a built-in demo traceback")
		configPath  = flag.String("config", "", "path to a YAML config file")
		deep        = flag.Bool("deep", false, "use the deep (tier 4) model")
		haiku       = flag.Bool("haiku", false, "use the tier 3 model")
		projectRoot = flag.String("project", "", "project root to profile for context")
		skipVcs     = flag.Bool("skip-vcs", false, "skip git blame/log lookups")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "railtrace: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
		fmt.Fprintf(os.Stderr, "railtrace: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	trace, err := readInput(*file, *demo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "railtrace: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	client, err := railtrace.New(ctx, cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "railtrace: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	opts := railtrace.DefaultOptions()
	opts.Deep = *deep
	opts.Haiku = *haiku
	opts.ProjectRoot = *projectRoot
	opts.SkipVcs = *skipVcs

	rep, err := client.Diagnose(ctx, trace, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "railtrace: %v\n", err)
		os.Exit(1)
	}

	if *jsonOut {
		printJSON(rep)
		return
	}
	printPretty(rep)
}

func readInput(file string, demo bool) (string, error) {
	switch {
	case demo:
		return demoTraceback, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", file, err)
		}
		return string(data), nil
	default:
		stat, err := os.Stdin.Stat()
		if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return "", fmt.Errorf("reading stdin: %w", err)
			}
			return string(data), nil
		}
		flag.Usage()
		fmt.Fprintln(os.Stderr, "\nno input -- use --file, --demo, or pipe a traceback on stdin")
		os.Exit(1)
		return "", nil
	}
}

func printJSON(rep railtrace.DiagnosisReport) {
	data, err := rep.MarshalJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "railtrace: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func printPretty(rep railtrace.DiagnosisReport) {
	icon := severityIcons[rep.Severity]
	if icon == "" {
		icon = "[unknown]"
	}
	file := rep.File
	if !rep.HasLocation {
		file = "n/a"
	}
	line := "n/a"
	if rep.HasLocation {
		line = fmt.Sprintf("%d", rep.Line)
	}

	fmt.Printf(`
railtrace -- analysis report

%s severity:     %s
error type:      %s
message:         %s
file:            %s
line:            %s
symbol:          %s

root cause:      %s
suggested fix:   %s
`, icon, rep.Severity, rep.ErrorType, rep.ErrorMessage, file, line, rep.Symbol, rep.RootCause, rep.SuggestedFix)
}
