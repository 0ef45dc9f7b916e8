package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

// BackupCommand returns the backup subcommand group.
func BackupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Export and import the whole store",
		Subcommands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Download every entry as a backup document",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "Write to FILE instead of stdout",
					},
				},
				Action: backupExport,
			},
			{
				Name:      "import",
				Usage:     "Upload a backup document (or a flat key/value object)",
				ArgsUsage: "FILE|-",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "replace",
						Usage: "Delete keys the document does not contain",
					},
				},
				Action: backupImport,
			},
		},
	}
}

func backupExport(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}

	ctx, cancel := s.context(c)
	defer cancel()

	doc, err := s.client.Export(ctx)
	if err != nil {
		return err
	}

	path := c.String("out")
	if path == "" {
		return s.print(json.RawMessage(doc))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, doc, "", "  "); err != nil {
		return fmt.Errorf("format backup: %w", err)
	}
	pretty.WriteByte('\n')

	if err := os.WriteFile(path, pretty.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}

	var summary struct {
		Entries map[string]json.RawMessage `json:"entries"`
	}
	_ = json.Unmarshal(doc, &summary)

	if s.table() {
		s.printf("Exported %d entries to %s\n", len(summary.Entries), path)
		return nil
	}
	return s.print(map[string]any{"ok": true, "entries": len(summary.Entries), "file": path})
}

func backupImport(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("FILE is required (use - for stdin)")
	}

	doc, err := readDocument(c, path)
	if err != nil {
		return err
	}
	if !json.Valid(doc) {
		return fmt.Errorf("%s is not valid JSON", path)
	}

	s, err := newSession(c)
	if err != nil {
		return err
	}

	ctx, cancel := s.context(c)
	defer cancel()

	result, err := s.client.Import(ctx, doc, c.Bool("replace"))
	if err != nil {
		return err
	}

	if s.table() {
		s.printf("Imported %d entries", result.Imported)
		if c.Bool("replace") {
			s.printf(", removed %d", result.Removed)
		}
		s.printf("\n")
		return nil
	}
	return s.print(result)
}

func readDocument(c *cli.Context, path string) ([]byte, error) {
	if path != "-" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read backup: %w", err)
		}
		return data, nil
	}

	reader := c.App.Reader
	if reader == nil {
		reader = os.Stdin
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read backup from stdin: %w", err)
	}
	return data, nil
}
