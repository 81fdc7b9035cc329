package commands

import (
	"context"
	"fmt"
	"os"

	"gwtdownloads/internal/components/serviceutil"
	"gwtdownloads/internal/components/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	otelProviders telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "gwt-cli",
	Short: "gwt-cli downloads report tables from the webmaster tools console.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		serviceutil.InitSlog(verbose)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		err := otelProviders.Shutdown(context.Background())
		if err != nil {
			fmt.Fprintln(os.Stderr, "shutdown telemetry:", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigName, "The json5 config file, falls back to the same name under the user config directory.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
