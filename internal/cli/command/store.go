package command

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

// StoreCommand returns the store subcommand group.
func StoreCommand() *cli.Command {
	return &cli.Command{
		Name:  "store",
		Usage: "Read and write store entries",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show the value stored under KEY",
				ArgsUsage: "KEY",
				Action:    storeGet,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List entries (all, or only the given keys)",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "key",
						Aliases: []string{"k"},
						Usage:   "Only these keys (repeatable)",
					},
				},
				Action: storeList,
			},
			{
				Name:      "put",
				Usage:     "Store a JSON value under KEY",
				ArgsUsage: "KEY [JSON|-]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read the value from a file",
					},
				},
				Action: storePut,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete KEY",
				ArgsUsage: "KEY",
				Action:    storeDelete,
			},
		},
	}
}

func requireKey(c *cli.Context) (string, error) {
	key := c.Args().First()
	if key == "" {
		return "", fmt.Errorf("KEY is required")
	}
	return key, nil
}

func storeGet(c *cli.Context) error {
	key, err := requireKey(c)
	if err != nil {
		return err
	}
	s, err := newSession(c)
	if err != nil {
		return err
	}

	ctx, cancel := s.context(c)
	defer cancel()

	value, err := s.client.Get(ctx, key)
	if err != nil {
		return err
	}
	return s.print(value)
}

func storeList(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}

	ctx, cancel := s.context(c)
	defer cancel()

	entries, err := s.client.List(ctx, c.StringSlice("key"))
	if err != nil {
		return err
	}
	if len(entries) == 0 && s.table() {
		s.printf("No entries found\n")
		return nil
	}
	return s.print(entries)
}

func storePut(c *cli.Context) error {
	key, err := requireKey(c)
	if err != nil {
		return err
	}

	value, err := readValue(c)
	if err != nil {
		return err
	}
	if !json.Valid(value) {
		return fmt.Errorf("value for %q is not valid JSON", key)
	}

	s, err := newSession(c)
	if err != nil {
		return err
	}

	ctx, cancel := s.context(c)
	defer cancel()

	if err := s.client.Put(ctx, key, value); err != nil {
		return err
	}

	if s.table() {
		s.printf("Stored %s\n", key)
		return nil
	}
	return s.print(map[string]any{"ok": true, "key": key})
}

// readValue takes the value from --file, the second argument, or stdin
// when the argument is "-" or absent.
func readValue(c *cli.Context) ([]byte, error) {
	if path := c.String("file"); path != "" {
		if c.Args().Len() > 1 {
			return nil, fmt.Errorf("give the value either as an argument or with --file, not both")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read value: %w", err)
		}
		return data, nil
	}

	if arg := c.Args().Get(1); arg != "" && arg != "-" {
		return []byte(arg), nil
	}

	reader := c.App.Reader
	if reader == nil {
		reader = os.Stdin
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read value from stdin: %w", err)
	}
	return data, nil
}

func storeDelete(c *cli.Context) error {
	key, err := requireKey(c)
	if err != nil {
		return err
	}
	s, err := newSession(c)
	if err != nil {
		return err
	}

	ctx, cancel := s.context(c)
	defer cancel()

	if err := s.client.Delete(ctx, key); err != nil {
		return err
	}

	if s.table() {
		s.printf("Deleted %s\n", key)
		return nil
	}
	return s.print(map[string]any{"ok": true, "key": key})
}
