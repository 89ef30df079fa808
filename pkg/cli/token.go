package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/civicpulse/pulse/pkg/cli/config"
)

func cmdToken() *cli.Command {
	var (
		authCfg config.Auth
		subject string
		expires time.Duration
	)

	flags := joinFlags(
		authCfg.Flags(),
		[]cli.Flag{
			&cli.StringFlag{
				Name:        "subject",
				Usage:       "Operator name recorded in audit logs",
				Required:    true,
				Destination: &subject,
			},
			&cli.DurationFlag{
				Name:        "expires",
				Usage:       "Token lifetime",
				Value:       30 * 24 * time.Hour,
				Destination: &expires,
			},
		},
	)

	return &cli.Command{
		Name:  "token",
		Usage: "Mint an operator bearer token for the reset and export endpoints",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if !authCfg.IsConfigured() {
				return goerr.New("auth secret is required (set PULSE_AUTH_SECRET)")
			}
			if err := authCfg.Validate(); err != nil {
				return err
			}

			now := time.Now()
			token, err := jwt.NewBuilder().
				Issuer("pulse").
				Subject(subject).
				IssuedAt(now).
				Expiration(now.Add(expires)).
				Build()
			if err != nil {
				return goerr.Wrap(err, "failed to build token")
			}

			signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, []byte(authCfg.Secret)))
			if err != nil {
				return goerr.Wrap(err, "failed to sign token")
			}

			fmt.Println(string(signed))
			return nil
		},
	}
}
