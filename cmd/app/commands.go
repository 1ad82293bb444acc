package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/reverie/internal"
	"github.com/starford/reverie/internal/dreamstore"
	"github.com/starford/reverie/internal/export"
	"github.com/starford/reverie/internal/journal"
	"github.com/starford/reverie/internal/models"
	"github.com/starford/reverie/internal/storage"
	"github.com/starford/reverie/internal/termview"
)

// withJournal opens the configured journal for a one-shot command. Logs go
// to stderr so command output stays clean.
func withJournal(cmd *cli.Command, fn func(*internal.Journal) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := internal.NewLogger(cfg, os.Stderr)
	j, err := internal.OpenJournal(cfg, logger)
	if err != nil {
		return err
	}
	defer j.Close()
	return fn(j)
}

func rangeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "since", Usage: "Earliest day (YYYY-MM-DD, 'yesterday', 'last week', ...)"},
		&cli.StringFlag{Name: "until", Usage: "Latest day"},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Show dreams grouped by day, newest first",
		Flags: rangeFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			now := time.Now()
			f, err := dreamstore.ParseFilter(cmd.String("since"), cmd.String("until"), now)
			if err != nil {
				return err
			}
			return withJournal(cmd, func(j *internal.Journal) error {
				return termview.Journal(os.Stdout, j.Service.Days(ctx, f), now)
			})
		},
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Write a new dream",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Title", Required: true},
			&cli.StringFlag{Name: "content", Usage: "What happened; '-' reads stdin", Required: true},
			&cli.StringFlag{Name: "audio", Usage: "Attach a saved recording (audio/<name>)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			content := cmd.String("content")
			if content == "-" {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				content = string(data)
			}
			return withJournal(cmd, func(j *internal.Journal) error {
				d, err := j.Service.Create(ctx, journal.CreateInput{
					Title:    cmd.String("title"),
					Content:  content,
					AudioRef: cmd.String("audio"),
				})
				if err != nil {
					return err
				}
				return termview.Entry(os.Stdout, d)
			})
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a dream by id",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return errors.New("delete: id is required")
			}
			return withJournal(cmd, func(j *internal.Journal) error {
				removed, err := j.Service.Delete(ctx, id)
				if err != nil {
					return err
				}
				if !removed {
					fmt.Printf("No dream with id %s\n", id)
					return nil
				}
				fmt.Printf("Deleted %s\n", id)
				return nil
			})
		},
	}
}

func recordingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "recordings",
		Usage: "List saved voice recordings",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withJournal(cmd, func(j *internal.Journal) error {
				recs, err := j.Service.Recordings(ctx)
				if err != nil {
					return err
				}
				return termview.Recordings(os.Stdout, recs, time.Now())
			})
		},
	}
}

func exportCommand() *cli.Command {
	flags := append(rangeFlags(), &cli.StringFlag{
		Name:     "dir",
		Aliases:  []string{"d"},
		Usage:    "Directory to write Markdown files into",
		Required: true,
	})
	return &cli.Command{
		Name:  "export",
		Usage: "Write dreams as Markdown files with YAML frontmatter",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			f, err := dreamstore.ParseFilter(cmd.String("since"), cmd.String("until"), time.Now())
			if err != nil {
				return err
			}
			dir := cmd.String("dir")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			out, err := storage.NewFS(dir)
			if err != nil {
				return err
			}
			return withJournal(cmd, func(j *internal.Journal) error {
				n, err := export.Write(out, j.Service.List(ctx, f))
				if err != nil {
					return err
				}
				fmt.Printf("Exported %d dreams to %s\n", n, dir)
				return nil
			})
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Merge Markdown files written by export; known ids are skipped",
		ArgsUsage: "<file.md>...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return errors.New("import: at least one file is required")
			}
			dreams := make([]models.Dream, 0, len(paths))
			for _, p := range paths {
				data, err := os.ReadFile(p)
				if err != nil {
					return fmt.Errorf("import: %w", err)
				}
				d, err := export.Parse(data)
				if err != nil {
					return fmt.Errorf("import %s: %w", p, err)
				}
				dreams = append(dreams, d)
			}
			return withJournal(cmd, func(j *internal.Journal) error {
				n, err := j.Service.Import(ctx, dreams)
				if err != nil {
					return err
				}
				fmt.Printf("Imported %d of %d dreams\n", n, len(dreams))
				return nil
			})
		},
	}
}
