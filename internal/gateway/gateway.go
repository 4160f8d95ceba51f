// Package gateway escalates a trace to a hosted model when pattern
// matching can't produce a confident diagnosis (component K, tiers
// 2-4 of the cascade). Providers are pluggable; prompt assembly and
// response parsing are shared across all of them.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/HoyeonS/railtrace/internal/report"
)

// Tier identifies which escalation level produced a report.
type Tier int

const (
	TierPattern Tier = 1
	TierFast    Tier = 2
	TierDeep    Tier = 3
	TierGateway Tier = 4
)

// Prompt is the fully assembled context handed to a Provider, in the
// fixed order: trace, source window, vcs context, project profile,
// memory recall.
type Prompt struct {
	Trace          string
	SourceWindow   string
	VcsSummary     string
	ProjectProfile string
	MemoryRecall   string
	Deep           bool
}

// Render joins the prompt sections in their fixed order, omitting any
// section that is empty.
func (p Prompt) Render() string {
	var sections []string
	sections = append(sections, fmt.Sprintf("Traceback:\n```\n%s\n```", strings.TrimSpace(p.Trace)))
	if p.SourceWindow != "" {
		sections = append(sections, "Source context:\n"+p.SourceWindow)
	}
	if p.VcsSummary != "" {
		sections = append(sections, "Version control context:\n"+p.VcsSummary)
	}
	if p.ProjectProfile != "" {
		sections = append(sections, "Project profile:\n"+p.ProjectProfile)
	}
	if p.MemoryRecall != "" {
		sections = append(sections, "Similar past diagnoses:\n"+p.MemoryRecall)
	}
	return strings.Join(sections, "\n\n")
}

const systemPrompt = `You are an expert debugging engine. Analyze the traceback and context provided and return ONLY a JSON object with these exact keys:

{
  "error_type": "the exception class name",
  "error_message": "the error message",
  "file_path": "file where the error originated or null",
  "line_number": line number as integer or null,
  "symbol": "function or method name or null",
  "root_cause": "concise root cause explanation",
  "suggested_fix": "actionable fix with a code snippet if relevant",
  "severity": "low|medium|high|critical"
}

Be precise. Be actionable. No markdown, no explanation outside the JSON.`

const deepSystemPrompt = `You are an expert debugging engine in deep analysis mode. Analyze the traceback and context provided and return ONLY a JSON object with these exact keys:

{
  "error_type": "the exception class name",
  "error_message": "the error message",
  "file_path": "file where the error originated or null",
  "line_number": line number as integer or null,
  "symbol": "function or method name or null",
  "root_cause": "thorough root cause analysis, tracing the full chain of causation",
  "suggested_fix": "detailed fix with code examples and architectural recommendations",
  "severity": "low|medium|high|critical",
  "architecture_notes": "broader systemic issues this error reveals, if any"
}

Think deeply. Trace causation chains. No markdown outside the JSON.`

// Provider is one model backend a tier can escalate to.
type Provider interface {
	// Name identifies the provider for logging and metrics.
	Name() string
	// Complete sends systemPrompt and userPrompt to the model and
	// returns its raw text response.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// modelResponse is the wire shape every provider is instructed to
// return; fields absent from a given tier's prompt are left zero.
type modelResponse struct {
	ErrorType         string `json:"error_type"`
	ErrorMessage      string `json:"error_message"`
	FilePath          string `json:"file_path"`
	LineNumber        *int   `json:"line_number"`
	Symbol            string `json:"symbol"`
	RootCause         string `json:"root_cause"`
	SuggestedFix      string `json:"suggested_fix"`
	Severity          string `json:"severity"`
	ArchitectureNotes string `json:"architecture_notes"`
}

// Registry dispatches a prompt to the provider configured for a tier.
type Registry struct {
	providers map[Tier]Provider
}

// NewRegistry returns an empty registry; call Register for each tier
// in use.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[Tier]Provider)}
}

// Register wires provider in as the handler for tier. A nil provider
// disables the tier.
func (r *Registry) Register(tier Tier, provider Provider) {
	r.providers[tier] = provider
}

// Available reports whether tier has a registered provider.
func (r *Registry) Available(tier Tier) bool {
	return r.providers[tier] != nil
}

// ErrTierUnavailable is returned by Diagnose when tier has no
// registered provider.
type ErrTierUnavailable struct{ Tier Tier }

func (e ErrTierUnavailable) Error() string {
	return fmt.Sprintf("gateway: tier %d has no registered provider", e.Tier)
}

// Diagnose escalates prompt to tier's provider and parses its response
// into a DiagnosisReport. On any failure (unavailable tier, transport
// error, malformed JSON) it returns a sentinel report describing the
// failure rather than an error, so the orchestrator can still emit a
// result.
func Diagnose(ctx context.Context, r *Registry, tier Tier, prompt Prompt) report.DiagnosisReport {
	provider, ok := r.providers[tier]
	if !ok || provider == nil {
		return failureReport(tier, ErrTierUnavailable{Tier: tier})
	}

	sys := systemPrompt
	if prompt.Deep {
		sys = deepSystemPrompt
	}

	raw, err := provider.Complete(ctx, sys, prompt.Render())
	if err != nil {
		return failureReport(tier, err)
	}

	parsed, err := parseResponse(raw)
	if err != nil {
		return failureReport(tier, err)
	}

	return toReport(parsed, tier, provider.Name())
}

func parseResponse(raw string) (modelResponse, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) > 2 {
			text = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}

	var resp modelResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return modelResponse{}, fmt.Errorf("gateway: malformed model response: %w", err)
	}
	return resp, nil
}

func toReport(m modelResponse, tier Tier, model string) report.DiagnosisReport {
	rep := report.DiagnosisReport{
		ErrorType:         m.ErrorType,
		ErrorMessage:      m.ErrorMessage,
		File:              m.FilePath,
		Symbol:            m.Symbol,
		RootCause:         m.RootCause,
		SuggestedFix:      m.SuggestedFix,
		Severity:          report.Severity(m.Severity),
		Tier:              int(tier),
		Model:             model,
		ArchitectureNotes: m.ArchitectureNotes,
	}
	if m.LineNumber != nil && m.FilePath != "" {
		rep.Line = *m.LineNumber
		rep.HasLocation = true
	}
	return rep
}

func failureReport(tier Tier, err error) report.DiagnosisReport {
	return report.DiagnosisReport{
		ErrorType:    "ModelAnalysisError",
		ErrorMessage: err.Error(),
		RootCause:    fmt.Sprintf("model analysis failed (%s)", err.Error()),
		SuggestedFix: "check credentials/network and retry, or rely on the pattern match",
		Severity:     report.SeverityLow,
		Tier:         int(tier),
	}
}

// httpProvider calls a hosted chat-completions-style HTTP endpoint;
// pkg/railtrace registers it for tiers 2 and 4 (tier 3 uses
// oauthProvider).
type httpProvider struct {
	name       string
	endpoint   string
	model      string
	httpClient *http.Client
	apiKey     string
}

// NewHTTPProvider returns a Provider that POSTs a minimal chat payload
// to endpoint with apiKey as a bearer token.
func NewHTTPProvider(name, endpoint, model, apiKey string, timeout time.Duration) Provider {
	return &httpProvider{
		name:       name,
		endpoint:   endpoint,
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	System   string        `json:"system"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (p *httpProvider) Name() string { return p.name }

func (p *httpProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    p.model,
		System:   systemPrompt,
		Messages: []chatMessage{{Role: "user", Content: userPrompt}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("content-type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("gateway: %s returned status %d", p.name, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("gateway: %s returned an empty response", p.name)
	}
	return parsed.Content[0].Text, nil
}

// oauthProvider is a tier-3 provider authenticated via the OAuth2
// client-credentials grant instead of a static API key.
type oauthProvider struct {
	httpProvider
}

// NewOAuthProvider returns a tier-3 Provider whose HTTP client carries
// a token automatically refreshed via the client-credentials grant.
func NewOAuthProvider(name, endpoint, model, clientID, clientSecret, tokenURL string, timeout time.Duration) Provider {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	httpClient := cfg.Client(context.Background())
	httpClient.Timeout = timeout

	return &oauthProvider{httpProvider{
		name:       name,
		endpoint:   endpoint,
		model:      model,
		httpClient: httpClient,
	}}
}
