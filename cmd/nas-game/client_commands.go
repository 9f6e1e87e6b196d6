package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/0xADE/nas-game/internal/catalog"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newClientCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Talk to a running server",
	}

	simple := func(use, short string, call func(cmd *cobra.Command, args []string) (string, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				out, err := call(cmd, args)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			},
		}
	}

	cmd.AddCommand(simple("ping", "Check that the server is alive", func(cmd *cobra.Command, _ []string) (string, error) {
		c, err := ctx.client()
		if err != nil {
			return "", err
		}
		return c.Ping(cmd.Context())
	}))

	echo := simple("echo TEXT...", "Send text and print the reply", func(cmd *cobra.Command, args []string) (string, error) {
		c, err := ctx.client()
		if err != nil {
			return "", err
		}
		return c.Echo(cmd.Context(), strings.Join(args, " "))
	})
	echo.Args = cobra.MinimumNArgs(1)
	cmd.AddCommand(echo)

	cmd.AddCommand(simple("add-dummy", "Add a placeholder entry and print the catalog", func(cmd *cobra.Command, _ []string) (string, error) {
		c, err := ctx.client()
		if err != nil {
			return "", err
		}
		return c.AddDummy(cmd.Context())
	}))

	add := simple("add [FILE]", "Merge a JSON array of entries from FILE or stdin", func(cmd *cobra.Command, args []string) (string, error) {
		entries, err := readEntries(cmd, args)
		if err != nil {
			return "", err
		}
		c, err := ctx.client()
		if err != nil {
			return "", err
		}
		return c.AddGames(cmd.Context(), entries)
	})
	add.Args = cobra.MaximumNArgs(1)
	cmd.AddCommand(add)

	cmd.AddCommand(simple("save", "Persist the server catalog", func(cmd *cobra.Command, _ []string) (string, error) {
		c, err := ctx.client()
		if err != nil {
			return "", err
		}
		return c.SaveLibrary(cmd.Context())
	}))

	download := simple("download NAME...", "Queue cover downloads", func(cmd *cobra.Command, args []string) (string, error) {
		c, err := ctx.client()
		if err != nil {
			return "", err
		}
		return c.DownloadImages(cmd.Context(), args)
	})
	download.Args = cobra.MinimumNArgs(1)
	cmd.AddCommand(download)

	cmd.AddCommand(simple("optimize", "Queue a transcode of staged covers", func(cmd *cobra.Command, _ []string) (string, error) {
		c, err := ctx.client()
		if err != nil {
			return "", err
		}
		return c.OptimizeImages(cmd.Context())
	}))

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show cover fetch history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := ctx.client()
			if err != nil {
				return err
			}
			records, err := c.ImageStatus(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No fetches recorded")
				return nil
			}

			names := make([]string, 0, len(records))
			for name := range records {
				names = append(names, name)
			}
			sort.Strings(names)

			rows := make([][]string, 0, len(names))
			for _, name := range names {
				rec := records[name]
				rows = append(rows, []string{
					name,
					string(rec.Status),
					strconv.FormatUint(rec.Attempts, 10),
					strconv.FormatUint(rec.Failures, 10),
					humanize.Time(rec.UpdatedAt),
					rec.LastError,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Game", "Status", "Attempts", "Failures", "Updated", "Last error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	})

	return cmd
}

func readEntries(cmd *cobra.Command, args []string) ([]catalog.Entry, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var entries []catalog.Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	return entries, nil
}
