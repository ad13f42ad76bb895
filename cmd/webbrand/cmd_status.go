package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/battlewithbytes/webbrand/internal/ui"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which roles have an override",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		cfg := a.cfg

		fmt.Println(ui.Label("Mode:         ") + ui.White.Render(cfg.Mode))
		fmt.Println(ui.Label("Web dir:      ") + ui.White.Render(cfg.WebDir) + " " + ui.Flag(dirExists(cfg.WebDir), "", "(missing)"))
		fmt.Println(ui.Label("Override dir: ") + ui.White.Render(cfg.OverrideDir) + " " + ui.Flag(a.store.DirExists(), "", "(not created yet)"))
		fmt.Println()

		for _, r := range a.store.Table().Roles() {
			fp, err := a.store.Fingerprint(r)
			if err != nil {
				fmt.Printf("  %-14s %s\n", r, ui.Flag(false, "", "default"))
				continue
			}
			fmt.Printf("  %-14s %s %s\n", r, ui.Flag(true, "custom", ""), ui.Dim.Render(fp[:12]))
		}
		return nil
	},
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
