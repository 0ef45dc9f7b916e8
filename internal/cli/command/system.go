package command

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mcnannay/peptrackr/internal/cli/connection"
)

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Server probes",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check that the server is up",
				Action: systemHealth,
			},
			{
				Name:   "ready",
				Usage:  "Check that the server can reach its storage",
				Action: systemReady,
			},
		},
	}
}

func systemHealth(c *cli.Context) error {
	return probe(c, (*connection.HTTPClient).Health, "healthy")
}

func systemReady(c *cli.Context) error {
	return probe(c, (*connection.HTTPClient).Ready, "ready")
}

type probeFunc func(*connection.HTTPClient, context.Context) (*connection.HealthStatus, error)

func probe(c *cli.Context, call probeFunc, label string) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}

	ctx, cancel := s.context(c)
	defer cancel()

	status, err := call(s.client, ctx)
	if err != nil {
		return err
	}

	if s.table() {
		s.printf("✓ Server is %s\n", label)
		s.printf("  Target: %s\n", s.client.BaseURL())
		return nil
	}
	return s.print(status)
}
