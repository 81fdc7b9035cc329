package commands

import (
	"os"
	"slices"

	"gwtdownloads/internal/components/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var sitesReload bool

func init() {
	sitesCmd.Flags().BoolVar(&sitesReload, "reload", false, "Refetch the site feed instead of using the cached copy.")
	rootCmd.AddCommand(sitesCmd)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

var sitesCmd = &cobra.Command{
	Use:   "sites [--reload]",
	Short: "Lists the sites of the account and whether they are verified.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := loadConfig()
		tel := setupTelemetry(ctx, cfg)
		client, err := createClient(ctx, cfg, tel, "")
		if err != nil {
			serviceutil.Fatal("failed to login", err)
		}

		sites, err := client.Sites(ctx, sitesReload)
		if err != nil {
			serviceutil.Fatal("failed to list sites", err)
		}

		names := make([]string, 0, len(sites))
		for name := range sites {
			names = append(names, name)
		}
		slices.Sort(names)

		t := newTable()
		t.AppendHeader(table.Row{"Site", "Verified"})
		for _, name := range names {
			t.AppendRow(table.Row{name, sites[name].Verified})
		}
		t.Render()
	},
}
