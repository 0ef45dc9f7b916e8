package command

import (
	"errors"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mcnannay/peptrackr/internal/cli/repl"
)

// ShellCommand returns the interactive shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Start an interactive shell (type 'help' for commands)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "history",
				Usage: "History file (empty disables persistence)",
				Value: repl.DefaultHistoryPath(),
			},
		},
		Action: runShell,
	}
}

func runShell(c *cli.Context) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}

	history := repl.NewHistory(c.String("history"))
	if err := history.Load(); err != nil {
		return err
	}

	// Every line runs through a fresh App carrying the shell's resolved
	// connection settings.
	base := []string{
		c.App.Name,
		"--config", flags.ConfigPath,
		"--server", flags.Server,
		"--prefix", flags.Prefix,
		"--output", string(flags.Output),
		"--timeout", flags.Timeout.String(),
	}
	exec := func(args []string) error {
		if args[0] == "shell" {
			return errors.New("already in a shell")
		}
		app := App()
		app.Writer = c.App.Writer
		app.ErrWriter = c.App.ErrWriter
		app.Reader = strings.NewReader("")
		app.ExitErrHandler = func(*cli.Context, error) {}
		return app.RunContext(c.Context, append(append([]string{}, base...), args...))
	}

	r := repl.New(exec,
		repl.WithIO(c.App.Reader, c.App.Writer),
		repl.WithCompleter(repl.NewCompleter(commandPaths(App().Commands, ""))),
		repl.WithHistory(history),
	)
	if err := r.Run(); err != nil {
		return err
	}
	return history.Save()
}

// commandPaths flattens the command tree into "group sub" paths.
func commandPaths(cmds []*cli.Command, parent string) []string {
	var paths []string
	for _, cmd := range cmds {
		if cmd.Hidden || cmd.Name == "shell" {
			continue
		}
		path := cmd.Name
		if parent != "" {
			path = parent + " " + cmd.Name
		}
		paths = append(paths, path)
		paths = append(paths, commandPaths(cmd.Subcommands, path)...)
	}
	return paths
}
