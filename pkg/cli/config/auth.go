package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Auth holds operator authentication configuration. The reset and export
// endpoints require a bearer token signed with this secret.
type Auth struct {
	Secret string
}

// Flags returns CLI flags for Auth configuration
func (a *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "auth-secret",
			Usage:       "HMAC secret for operator bearer tokens",
			Category:    "Auth",
			Sources:     cli.EnvVars("PULSE_AUTH_SECRET"),
			Destination: &a.Secret,
		},
	}
}

// IsConfigured checks if operator auth is configured
func (a *Auth) IsConfigured() bool {
	return a.Secret != ""
}

// Validate validates the auth configuration
func (a *Auth) Validate() error {
	if len(a.Secret) < 16 {
		return goerr.New("auth secret must be at least 16 bytes")
	}
	return nil
}

// LogValue returns structured log value without leaking the secret
func (a Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("configured", a.IsConfigured()),
		slog.Int("secretLength", len(a.Secret)),
	)
}
