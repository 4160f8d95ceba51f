// Package sourcewindow reads bounded windows of source lines around an
// error frame (component D). Reads are line-indexed and cached per
// file; the cache must be cleared after each orchestrator invocation to
// honor the "watched file" contract in spec §4.D/§5.
package sourcewindow

import (
	"bufio"
	"os"
	"sync"

	"github.com/HoyeonS/railtrace/internal/report"
)

// DefaultRadius is used when a caller does not override it.
const DefaultRadius = 5

// Reader caches line-indexed reads of source files within a single
// orchestrator invocation.
type Reader struct {
	mu    sync.Mutex
	lines map[string][]string
}

// New returns a Reader with an empty cache.
func New() *Reader {
	return &Reader{lines: make(map[string][]string)}
}

// Window returns the source lines [max(1,line-radius), line+radius]
// around line in path. A missing or unreadable file yields
// SourceWindow{Exists: false}. Never loads more of the file than the
// requested window needs.
func (r *Reader) Window(path string, line, radius int) report.SourceWindow {
	start := line - radius
	if start < 1 {
		start = 1
	}
	end := line + radius

	fileLines, ok := r.fileLinesThrough(path, end)
	if !ok {
		return report.SourceWindow{FilePath: path, ErrorLine: line, Exists: false}
	}

	if end > len(fileLines) {
		end = len(fileLines)
	}
	if start > end {
		return report.SourceWindow{FilePath: path, ErrorLine: line, Exists: false}
	}

	window := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		window = append(window, fileLines[i-1])
	}

	return report.SourceWindow{
		FilePath:  path,
		ErrorLine: line,
		StartLine: start,
		EndLine:   end,
		Lines:     window,
		Exists:    true,
	}
}

// Clear empties the cache. Must be called once per orchestrator
// invocation after all reads are done.
func (r *Reader) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = make(map[string][]string)
}

// fileLinesThrough returns the cached lines for path, reading at most
// through line `through` if not already cached that far.
func (r *Reader) fileLinesThrough(path string, through int) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.lines[path]; ok && len(cached) >= through {
		return cached, true
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) >= through {
			break
		}
	}
	if err := scanner.Err(); err != nil && len(lines) == 0 {
		return nil, false
	}

	r.lines[path] = lines
	if len(lines) == 0 {
		return nil, false
	}
	return lines, true
}
