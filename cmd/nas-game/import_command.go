package main

import (
	"fmt"
	"strings"

	"github.com/0xADE/nas-game/internal/catalog"
	"github.com/0xADE/nas-game/internal/launchers"
	"github.com/spf13/cobra"
)

type importFlags struct {
	images bool
	dryRun bool
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Discover installed games and add them to the server",
	}
	cmd.PersistentFlags().BoolVar(&flags.images, "images", false, "Also queue cover downloads for imported games")
	cmd.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "List discovered games without contacting the server")

	cmd.AddCommand(&cobra.Command{
		Use:   "steam [STEAM_ROOT]",
		Short: "Import games from a Steam install",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := launchers.DefaultSteamRoot()
			if len(args) == 1 {
				root = args[0]
			}
			return runImport(cmd, ctx, launchers.Sources{SteamRoot: root}, flags)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "desktop [DIR...]",
		Short: "Import games from launcher .desktop entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := args
			if len(dirs) == 0 {
				dirs = launchers.DefaultDesktopDirs()
			}
			return runImport(cmd, ctx, launchers.Sources{DesktopDirs: dirs}, flags)
		},
	})

	return cmd
}

func runImport(cmd *cobra.Command, ctx *commandContext, src launchers.Sources, flags importFlags) error {
	found, err := launchers.NewScanner(ctx.log()).Scan(cmd.Context(), src)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No games found")
		return nil
	}

	if flags.dryRun {
		rows := make([][]string, 0, len(found))
		for _, d := range found {
			l := d.Entry.Launchers[0]
			rows = append(rows, []string{d.Name, l.Name, l.ExternalID, d.Source})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Game", "Launcher", "ID", "Source"}, rows, nil))
		return nil
	}

	c, err := ctx.client()
	if err != nil {
		return err
	}
	entries := make([]catalog.Entry, 0, len(found))
	names := make([]string, 0, len(found))
	for _, d := range found {
		entries = append(entries, d.Entry)
		names = append(names, coverName(d.Name))
	}

	out, err := c.AddGames(cmd.Context(), entries)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)

	if flags.images {
		out, err := c.DownloadImages(cmd.Context(), names)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
	}
	return nil
}

// coverName turns a display title into a staging file stem
func coverName(title string) string {
	name := strings.NewReplacer("/", " ", `\`, " ").Replace(title)
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", ".")
	}
	return strings.Join(strings.Fields(name), " ")
}
