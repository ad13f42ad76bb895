package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/battlewithbytes/webbrand/internal/config"
	"github.com/battlewithbytes/webbrand/internal/ui"
	"github.com/battlewithbytes/webbrand/internal/version"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "webbrand",
	Short:         "webbrand - custom icon and banners for a self-hosted web UI",
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is normal.
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.Long = ui.Green.Render("webbrand") + " " + ui.Cyan.Render(version.Version) + "\n" +
		ui.Dim.Render("Upload replacement logo images and serve them in place of the web bundle's originals, by request interception or by copying them into the bundle.")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath, "path to config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Red.Render("error:"), err)
		os.Exit(1)
	}
}
