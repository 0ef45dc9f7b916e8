package command

import (
	"github.com/urfave/cli/v2"

	"github.com/mcnannay/peptrackr/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			flags, err := ParseGlobalFlags(c)
			if err != nil {
				return err
			}
			info := buildinfo.Get()
			s := &session{flags: flags, out: c.App.Writer}
			if s.table() {
				s.printf("%s\n", buildinfo.String())
				return nil
			}
			return s.print(info)
		},
	}
}
