package project

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"

	"github.com/HoyeonS/railtrace/internal/report"
)

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func parsePackageJSON(path string, p *report.ProjectProfile) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return
	}
	for name, version := range pkg.Dependencies {
		addDep(p.Deps, name, version)
	}
	for name, version := range pkg.DevDependencies {
		addDep(p.DevDeps, name, version)
	}
}

var cargoDepLine = regexp.MustCompile(`^([A-Za-z0-9_\-]+)\s*=\s*"?\^?([A-Za-z0-9_.\-]*)"?`)

func parseCargoToml(path string, p *report.ProjectProfile) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	section := ""
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") {
			section = line
			continue
		}
		if line == "" {
			continue
		}
		m := cargoDepLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		switch {
		case strings.Contains(section, "dev-dependencies"):
			addDep(p.DevDeps, m[1], m[2])
		case strings.Contains(section, "dependencies"):
			addDep(p.Deps, m[1], m[2])
		}
	}
}

var goModRequireLine = regexp.MustCompile(`^\s*([A-Za-z0-9_./\-]+)\s+(v[0-9][A-Za-z0-9_.\-+]*)`)

func parseGoMod(path string, p *report.ProjectProfile) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	inRequire := false
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "require ("):
			inRequire = true
			continue
		case trimmed == ")" :
			inRequire = false
			continue
		case strings.HasPrefix(trimmed, "require ") && !strings.Contains(trimmed, "("):
			trimmed = strings.TrimPrefix(trimmed, "require ")
		case !inRequire:
			continue
		}
		if strings.Contains(trimmed, "// indirect") {
			trimmed = strings.Split(trimmed, "// indirect")[0]
		}
		m := goModRequireLine.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		addDep(p.Deps, m[1], m[2])
	}
}
