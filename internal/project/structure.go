package project

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/HoyeonS/railtrace/internal/report"
)

// scanStructure maps each top-level entry under root to a short
// summary ("file", or "<n> files" for a directory), skipping
// generated/vcs noise and hidden entries.
func scanStructure(root string) map[string]string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}

	structure := make(map[string]string)
	for _, e := range entries {
		if skipDirs[e.Name()] || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		summary := "file"
		if e.IsDir() {
			children, _ := os.ReadDir(filepath.Join(root, e.Name()))
			summary = strconv.Itoa(len(children)) + " files"
		}
		structure[e.Name()] = summary
	}
	return structure
}

func detectEntryPoints(root string) []string {
	var found []string
	for _, name := range entryPoints {
		if fileExists(filepath.Join(root, name)) {
			found = append(found, name)
		}
	}
	return found
}

func detectConfigFiles(root string) []string {
	var found []string
	for _, name := range configFiles {
		if fileExists(filepath.Join(root, name)) {
			found = append(found, name)
		}
	}
	return found
}

func inferFrameworks(p *report.ProjectProfile) {
	seen := make(map[string]bool)
	add := func(name string) {
		fw, ok := frameworkMarkers[strings.ToLower(name)]
		if !ok || seen[fw] {
			return
		}
		seen[fw] = true
		p.Frameworks = append(p.Frameworks, fw)
	}
	for name := range p.Deps {
		add(name)
	}
	for name := range p.DevDeps {
		add(name)
	}
	sort.Strings(p.Frameworks)
}
