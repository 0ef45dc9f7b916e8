package command

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mcnannay/peptrackr/internal/cli/config"
	"github.com/mcnannay/peptrackr/internal/cli/connection"
	"github.com/mcnannay/peptrackr/internal/cli/output"
	"github.com/mcnannay/peptrackr/internal/infra/buildinfo"
)

const metaCLIConfig = "cliConfig"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "peptrackr-cli",
		Usage:   "Read and write the peptrackr store over HTTP",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			StoreCommand(),
			BackupCommand(),
			SystemCommand(),
			ConfigCommand(),
			VersionCommand(),
			ShellCommand(),
		},
		Before: loadCLIConfig,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	defaults := config.Default()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI config file",
			EnvVars: []string{"PEPTRACKR_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Server address (e.g., 127.0.0.1:8000)",
			EnvVars: []string{"PEPTRACKR_SERVER"},
			Value:   defaults.Server,
		},
		&cli.StringFlag{
			Name:    "prefix",
			Usage:   "API path prefix",
			EnvVars: []string{"PEPTRACKR_PREFIX"},
			Value:   defaults.Prefix,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   defaults.Output,
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Request timeout",
			Value: connection.DefaultTimeout,
		},
	}
}

// loadCLIConfig reads the config file before any command runs.
func loadCLIConfig(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[metaCLIConfig] = cfg
	return nil
}

// GlobalFlags holds the resolved global options.
type GlobalFlags struct {
	ConfigPath string
	Server     string
	Prefix     string
	Output     output.Format
	Timeout    time.Duration
}

// ParseGlobalFlags resolves global options: an explicit flag (or its
// environment variable) wins over the config file, which wins over the
// built-in default.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	cfg := cliConfig(c)

	pick := func(name, fromFile string) string {
		if c.IsSet(name) || fromFile == "" {
			return c.String(name)
		}
		return fromFile
	}

	format, err := output.ParseFormat(pick("output", cfg.Output))
	if err != nil {
		return nil, err
	}

	return &GlobalFlags{
		ConfigPath: c.String("config"),
		Server:     pick("server", cfg.Server),
		Prefix:     pick("prefix", cfg.Prefix),
		Output:     format,
		Timeout:    c.Duration("timeout"),
	}, nil
}

func cliConfig(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata[metaCLIConfig].(*config.CLIConfig); ok {
		return cfg
	}
	return &config.CLIConfig{}
}

// session bundles what an action needs to talk to the server.
type session struct {
	flags  *GlobalFlags
	client *connection.HTTPClient
	out    io.Writer
}

func newSession(c *cli.Context) (*session, error) {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return nil, err
	}
	return &session{
		flags:  flags,
		client: connection.NewHTTPClient(flags.Server, flags.Prefix),
		out:    c.App.Writer,
	}, nil
}

// context derives a request context bounded by --timeout.
func (s *session) context(c *cli.Context) (context.Context, context.CancelFunc) {
	parent := c.Context
	if parent == nil {
		parent = context.Background()
	}
	if s.flags.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.flags.Timeout)
}

// print renders data in the selected format.
func (s *session) print(data any) error {
	return output.NewFormatter(s.flags.Output).Format(s.out, data)
}

// table reports whether human-oriented output was requested.
func (s *session) table() bool {
	return s.flags.Output == output.FormatTable
}

func (s *session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
