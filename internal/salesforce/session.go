package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"sfmon_exporter/internal/logger"
)

// Session is the authenticated handle to one Salesforce org. It is created
// once at startup, shared read-only by every collector, and never partially
// mutated.
type Session struct {
	InstanceURL string
	AccessToken string
	APIVersion  string
}

// orgDisplay matches the JSON emitted by `sf org display --json`.
type orgDisplay struct {
	Result struct {
		AccessToken string `json:"accessToken"`
		InstanceURL string `json:"instanceUrl"`
		APIVersion  string `json:"apiVersion"`
	} `json:"result"`
}

// NewSession authenticates against the org with the `sf` CLI and returns the
// resulting session. Every failure here is fatal to the process: no collector
// can run without a session, and authentication is never retried.
func NewSession(ctx context.Context, authURL string) (*Session, error) {
	if authURL == "" {
		return nil, fmt.Errorf("SFDX authentication URL is required but was not provided")
	}

	log := logger.NewLoggerWithContext("salesforce-session")

	sfCmd, err := exec.LookPath("sf")
	if err != nil {
		return nil, fmt.Errorf("salesforce CLI (sf) not found in PATH: %w", err)
	}

	// The auth URL is a secret; pass it through a short-lived temp file
	// rather than argv, which is visible in the process table.
	tmp, err := os.CreateTemp("", "sfdx-auth-*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to create auth URL temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(authURL); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write auth URL temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close auth URL temp file: %w", err)
	}

	login := exec.CommandContext(ctx, sfCmd,
		"org", "login", "sfdx-url", "--set-default", "--sfdx-url-file", tmp.Name())
	if out, err := login.CombinedOutput(); err != nil {
		log.Error().Err(err).Str("output", strings.TrimSpace(string(out))).Msg("Salesforce CLI login failed")
		return nil, fmt.Errorf("sf org login failed: %w", err)
	}

	display := exec.CommandContext(ctx, sfCmd, "org", "display", "--json")
	out, err := display.Output()
	if err != nil {
		return nil, fmt.Errorf("sf org display failed: %w", err)
	}

	var info orgDisplay
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("failed to parse sf org display output: %w", err)
	}
	if info.Result.AccessToken == "" || info.Result.InstanceURL == "" || info.Result.APIVersion == "" {
		return nil, fmt.Errorf("sf org display output missing accessToken, instanceUrl or apiVersion")
	}

	log.Info().
		Str("instance_url", info.Result.InstanceURL).
		Str("api_version", info.Result.APIVersion).
		Msg("Authenticated to Salesforce org")

	return &Session{
		InstanceURL: strings.TrimRight(info.Result.InstanceURL, "/"),
		AccessToken: info.Result.AccessToken,
		APIVersion:  info.Result.APIVersion,
	}, nil
}

// BaseURL returns the REST data API root for this session.
func (s *Session) BaseURL() string {
	return fmt.Sprintf("%s/services/data/v%s", s.InstanceURL, s.APIVersion)
}
