package config

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/civicpulse/pulse/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Poll holds the organization-level poll configuration: the timezone all
// week boundaries are computed in, and the issue registry file
type Poll struct {
	Timezone   string
	IssuesFile string
}

// Flags returns CLI flags for Poll configuration
func (p *Poll) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "timezone",
			Usage:       "Organization timezone for week boundaries (IANA name)",
			Category:    "Poll",
			Value:       "America/New_York",
			Sources:     cli.EnvVars("PULSE_TIMEZONE"),
			Destination: &p.Timezone,
		},
		&cli.StringFlag{
			Name:        "issues-file",
			Usage:       "Path to the issue registry YAML file (built-in defaults when unset)",
			Category:    "Poll",
			Sources:     cli.EnvVars("PULSE_ISSUES_FILE"),
			Destination: &p.IssuesFile,
		},
	}
}

// Location resolves the organization timezone
func (p *Poll) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid timezone",
			goerr.V("timezone", p.Timezone))
	}
	return loc, nil
}

// Registry loads the issue registry. With no file configured the built-in
// default set is used; either way a single registry instance is the source
// of truth for validation, tallies and export columns.
func (p *Poll) Registry(ctx context.Context) (*model.IssueRegistry, error) {
	if p.IssuesFile == "" {
		ctxlog.From(ctx).Warn("No issue registry file configured, using built-in default issues")
		return model.DefaultIssueRegistry(), nil
	}

	return LoadIssuesFromFile(p.IssuesFile)
}

// LogValue returns structured log value
func (p Poll) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("timezone", p.Timezone),
		slog.String("issuesFile", p.IssuesFile),
	)
}

// LoadIssuesFromFile loads the issue registry from a YAML file
func LoadIssuesFromFile(path string) (*model.IssueRegistry, error) {
	if path == "" {
		return nil, goerr.New("issue registry file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(err, "issue registry file not found",
				goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to read issue registry file",
			goerr.V("path", path))
	}

	var registry model.IssueRegistry
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, goerr.Wrap(err, "failed to parse issue registry YAML",
			goerr.V("path", path))
	}

	if err := registry.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid issue registry",
			goerr.V("path", path))
	}

	return &registry, nil
}
