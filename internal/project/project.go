// Package project scans a project root to identify languages,
// frameworks, dependencies, and entry points that augment model prompts
// (component F).
package project

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/HoyeonS/railtrace/internal/report"
)

// skipDirs is the closed set of generated/vcs directories the breadth-1
// structure scan never descends into.
var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "__pycache__": true,
	".venv": true, "venv": true, "target": true, "dist": true,
	"build": true, ".idea": true, ".vscode": true, "vendor": true,
}

// entryPoints is the closed set of conventional entrypoint filenames.
var entryPoints = []string{
	"main.py", "app.py", "manage.py", "index.js", "index.ts",
	"server.js", "main.go", "Main.java", "main.rs",
}

// configFiles is the closed set of conventional config filenames
// reported in ProjectProfile.ConfigFiles when present.
var configFiles = []string{
	"hardhat.config.js", "hardhat.config.ts", "foundry.toml",
	"truffle-config.js", "tsconfig.json", "docker-compose.yml",
	"Dockerfile", ".env.example",
}

// frameworkMarkers maps a dependency name to the framework label it
// implies. Applied to the union of deps and dev_deps.
var frameworkMarkers = map[string]string{
	"django":          "Django",
	"flask":           "Flask",
	"fastapi":         "FastAPI",
	"solana":          "Solana",
	"web3":            "Web3",
	"ethers":          "Ethers",
	"hardhat":         "Hardhat",
	"react":           "React",
	"next":            "Next.js",
	"vue":             "Vue",
	"express":         "Express",
	"actix-web":       "Actix",
	"tokio":           "Tokio",
	"gin-gonic/gin":   "Gin",
	"spring-boot":     "Spring Boot",
	"openzeppelin":    "OpenZeppelin",
}

var cache = struct {
	sync.RWMutex
	entries map[string]report.ProjectProfile
}{entries: make(map[string]report.ProjectProfile)}

// ClearCache evicts every cached profile. Process-lifetime otherwise.
func ClearCache() {
	cache.Lock()
	defer cache.Unlock()
	cache.entries = make(map[string]report.ProjectProfile)
}

// GitHubEnricher optionally augments a profile with repository metadata
// read from GitHub. Implemented by internal/project's github.go.
type GitHubEnricher interface {
	Enrich(ctx context.Context, profile *report.ProjectProfile) error
}

// Scan profiles root, consulting the process-lifetime cache first.
// enricher, if non-nil, is used to enrich the profile from a read-only
// GitHub API call when root's .git/config names a github.com remote.
func Scan(ctx context.Context, root string, enricher GitHubEnricher) (report.ProjectProfile, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return report.ProjectProfile{}, err
	}

	cache.RLock()
	if p, ok := cache.entries[abs]; ok {
		cache.RUnlock()
		return p, nil
	}
	cache.RUnlock()

	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return report.ProjectProfile{}, os.ErrNotExist
	}

	profile := report.ProjectProfile{
		Root:    abs,
		Name:    filepath.Base(abs),
		Deps:    make(map[string]string),
		DevDeps: make(map[string]string),
	}

	detectManifests(abs, &profile)
	profile.Structure = scanStructure(abs)
	profile.EntryPoints = detectEntryPoints(abs)
	profile.ConfigFiles = detectConfigFiles(abs)
	inferFrameworks(&profile)

	if enricher != nil {
		_ = enricher.Enrich(ctx, &profile)
	}

	cache.Lock()
	cache.entries[abs] = profile
	cache.Unlock()

	return profile, nil
}

func detectManifests(root string, p *report.ProjectProfile) {
	if path := filepath.Join(root, "requirements.txt"); fileExists(path) {
		addLanguage(p, "python")
		p.PackageManager = "pip"
		parseRequirementsTxt(path, p)
	}
	if path := filepath.Join(root, "pyproject.toml"); fileExists(path) {
		addLanguage(p, "python")
		switch {
		case fileExists(filepath.Join(root, "poetry.lock")):
			p.PackageManager = "poetry"
		case fileExists(filepath.Join(root, "Pipfile")):
			p.PackageManager = "pipenv"
		case p.PackageManager == "":
			p.PackageManager = "pip"
		}
		parsePyprojectToml(path, p)
	}
	if path := filepath.Join(root, "package.json"); fileExists(path) {
		lang := "js"
		if fileExists(filepath.Join(root, "tsconfig.json")) {
			lang = "ts"
		}
		addLanguage(p, lang)
		p.PackageManager = detectNodePackageManager(root)
		parsePackageJSON(path, p)
	}
	if path := filepath.Join(root, "Cargo.toml"); fileExists(path) {
		addLanguage(p, "rust")
		p.PackageManager = "cargo"
		parseCargoToml(path, p)
	}
	if path := filepath.Join(root, "go.mod"); fileExists(path) {
		addLanguage(p, "go")
		p.PackageManager = "go modules"
		parseGoMod(path, p)
	}
	if path := filepath.Join(root, "pom.xml"); fileExists(path) {
		addLanguage(p, "jvm")
		p.PackageManager = "maven"
	}
	if fileExists(filepath.Join(root, "build.gradle")) || fileExists(filepath.Join(root, "build.gradle.kts")) {
		addLanguage(p, "jvm")
		p.PackageManager = "gradle"
	}
	if hasSolidityFiles(root) {
		addLanguage(p, "solidity")
		switch {
		case fileExists(filepath.Join(root, "hardhat.config.js")), fileExists(filepath.Join(root, "hardhat.config.ts")):
			p.PackageManager = "hardhat"
		case fileExists(filepath.Join(root, "foundry.toml")):
			p.PackageManager = "foundry"
		case fileExists(filepath.Join(root, "truffle-config.js")):
			p.PackageManager = "truffle"
		}
	}
}

func addLanguage(p *report.ProjectProfile, lang string) {
	for _, existing := range p.Languages {
		if existing == lang {
			return
		}
	}
	p.Languages = append(p.Languages, lang)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func hasSolidityFiles(root string) bool {
	entries, err := os.ReadDir(root)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sol") {
			return true
		}
	}
	return false
}

var requirementLine = regexp.MustCompile(`^([A-Za-z0-9_.\-]+)\s*(?:[=<>!~]+=?\s*([A-Za-z0-9_.\-]+))?`)

func parseRequirementsTxt(path string, p *report.ProjectProfile) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := requirementLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		addDep(p.Deps, m[1], m[2])
	}
}

var pyprojectDepLine = regexp.MustCompile(`^([A-Za-z0-9_.\-]+)\s*=\s*"?\^?([A-Za-z0-9_.\-]*)"?`)

func parsePyprojectToml(path string, p *report.ProjectProfile) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	inDeps := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "[") {
			inDeps = strings.Contains(line, "dependencies")
			continue
		}
		if !inDeps || line == "" {
			continue
		}
		m := pyprojectDepLine.FindStringSubmatch(line)
		if m == nil || strings.EqualFold(m[1], "python") {
			continue
		}
		addDep(p.Deps, m[1], m[2])
	}
}

func addDep(deps map[string]string, name, version string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return
	}
	if _, exists := deps[name]; exists {
		return
	}
	deps[name] = version
}

func detectNodePackageManager(root string) string {
	switch {
	case fileExists(filepath.Join(root, "bun.lockb")):
		return "bun"
	case fileExists(filepath.Join(root, "pnpm-lock.yaml")):
		return "pnpm"
	case fileExists(filepath.Join(root, "yarn.lock")):
		return "yarn"
	default:
		return "npm"
	}
}
