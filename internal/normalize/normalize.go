// Package normalize canonicalizes a raw trace into a stable fingerprint
// and a short snippet, used as the deduplication key throughout the
// pipeline (component A).
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
)

// ErrEmptyTrace is returned when the input trace is empty or whitespace.
var ErrEmptyTrace = errors.New("trace is empty")

// pythonLocation matches `File "<path>", line <n>` tokens, checked
// first on every line.
var pythonLocation = regexp.MustCompile(`File "([^"]+)", line (\d+)`)

// genericLocation matches a bare `basename:line` token, checked as a
// fallback on every line in addition to (not instead of) the Python
// pattern, matching the original's both-checked-per-line behavior.
var genericLocation = regexp.MustCompile(`([\w./\\-]+):(\d+)`)

const snippetLimit = 500

// Result is the output of Normalize: a stable fingerprint and a short
// snippet of the canonical form.
type Result struct {
	Fingerprint string
	Snippet     string
	Canonical   string
}

// Normalize canonicalizes trace into a deterministic token sequence,
// fingerprints it with SHA-256, and takes the first 500 bytes as the
// snippet. Idempotent: Normalize(Normalize(trace).Canonical) yields the
// same Canonical form.
func Normalize(trace string) (Result, error) {
	if strings.TrimSpace(trace) == "" {
		return Result{}, ErrEmptyTrace
	}

	tokens := collectTokens(trace)
	canonical := strings.Join(tokens, "\n")

	sum := sha256.Sum256([]byte(canonical))
	fingerprint := hex.EncodeToString(sum[:])

	snippet := canonical
	if len(snippet) > snippetLimit {
		snippet = snippet[:snippetLimit]
	}

	return Result{Fingerprint: fingerprint, Snippet: snippet, Canonical: canonical}, nil
}

func collectTokens(trace string) []string {
	seen := make(map[string]bool)
	var tokens []string

	for _, line := range strings.Split(trace, "\n") {
		if m := pythonLocation.FindStringSubmatch(line); m != nil {
			token := basename(m[1]) + ":" + m[2]
			if !seen[token] {
				seen[token] = true
				tokens = append(tokens, token)
			}
		}
		if m := genericLocation.FindStringSubmatch(line); m != nil {
			token := basename(m[1]) + ":" + m[2]
			if !seen[token] {
				seen[token] = true
				tokens = append(tokens, token)
			}
		}
	}

	return tokens
}

func basename(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
