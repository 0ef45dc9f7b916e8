package command

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mcnannay/peptrackr/internal/cli/config"
	"github.com/mcnannay/peptrackr/internal/cli/output"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage CLI defaults",
		Subcommands: []*cli.Command{
			{
				Name:   "view",
				Usage:  "Show the CLI configuration file",
				Action: configView,
			},
			{
				Name:      "set",
				Usage:     "Set a default (" + strings.Join(config.Keys, ", ") + ")",
				ArgsUsage: "KEY VALUE",
				Action:    configSet,
			},
			{
				Name:   "path",
				Usage:  "Print the configuration file path",
				Action: configPath,
			},
		},
	}
}

func configView(c *cli.Context) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	cfg := cliConfig(c)
	return output.NewFormatter(flags.Output).Format(c.App.Writer, cfg)
}

func configSet(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("usage: config set KEY VALUE")
	}
	key, value := c.Args().Get(0), c.Args().Get(1)

	if key == "output" {
		if _, err := output.ParseFormat(value); err != nil {
			return err
		}
	}

	cfg := cliConfig(c)
	if !cfg.Set(key, value) {
		return fmt.Errorf("unknown key %q (want one of %s)", key, strings.Join(config.Keys, ", "))
	}

	path := c.String("config")
	if err := config.Save(cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Set %s = %s in %s\n", key, value, path)
	return nil
}

func configPath(c *cli.Context) error {
	fmt.Fprintln(c.App.Writer, c.String("config"))
	return nil
}
