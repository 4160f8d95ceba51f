package project

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"

	"github.com/HoyeonS/railtrace/internal/report"
)

// githubRemote matches both SSH and HTTPS github.com remote URLs.
var githubRemote = regexp.MustCompile(`github\.com[:/]([\w.\-]+)/([\w.\-]+?)(?:\.git)?$`)

// GitHubProfile enriches a ProjectProfile with read-only repository
// metadata fetched from the GitHub API, when the project's git remote
// points at github.com: the default branch is stored in Runtime and
// the repository topics are appended to Frameworks. The repository
// description is not read.
type GitHubProfile struct {
	client  *github.Client
	timeout time.Duration
}

// NewGitHubProfile builds an enricher authenticated with a static
// personal-access token. An empty token yields an unauthenticated,
// rate-limited client.
func NewGitHubProfile(token string, timeout time.Duration) *GitHubProfile {
	var client *github.Client
	if token == "" {
		client = github.NewClient(nil)
	} else {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = github.NewClient(oauth2.NewClient(context.Background(), ts))
	}
	return &GitHubProfile{client: client, timeout: timeout}
}

// Enrich is a no-op when root has no discoverable github.com remote.
func (g *GitHubProfile) Enrich(ctx context.Context, profile *report.ProjectProfile) error {
	owner, name, ok := remoteOwnerRepo(profile.Root)
	if !ok {
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	repo, _, err := g.client.Repositories.Get(cctx, owner, name)
	if err != nil {
		return err
	}

	if repo.GetDefaultBranch() != "" {
		profile.Runtime = repo.GetDefaultBranch()
	}
	seen := make(map[string]bool)
	for _, fw := range profile.Frameworks {
		seen[fw] = true
	}
	for _, topic := range repo.Topics {
		if !seen[topic] {
			profile.Frameworks = append(profile.Frameworks, topic)
			seen[topic] = true
		}
	}
	return nil
}

func remoteOwnerRepo(root string) (owner, name string, ok bool) {
	data, err := os.ReadFile(filepath.Join(root, ".git", "config"))
	if err != nil {
		return "", "", false
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "url = ") {
			continue
		}
		url := strings.TrimPrefix(line, "url = ")
		m := githubRemote.FindStringSubmatch(url)
		if m != nil {
			return m[1], m[2], true
		}
	}
	return "", "", false
}
