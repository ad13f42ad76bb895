package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/battlewithbytes/webbrand/internal/config"
	"github.com/battlewithbytes/webbrand/internal/setup"
	"github.com/battlewithbytes/webbrand/internal/ui"
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and modify webbrand configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Context(), configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		fmt.Println(ui.Cyan.Render("Mode:      ") + ui.White.Render(cfg.Mode))
		fmt.Println(ui.Cyan.Render("Web dir:   ") + ui.White.Render(cfg.WebDir))
		fmt.Println(ui.Cyan.Render("Overrides: ") + ui.White.Render(cfg.OverrideDir))
		fmt.Println(ui.Cyan.Render("Data dir:  ") + ui.White.Render(cfg.DataDir))
		fmt.Println()
		fmt.Println(ui.Cyan.Render("Server:"))
		fmt.Println(ui.Dim.Render("  Bind:       ") + ui.White.Render(cfg.Addr()))
		fmt.Println(ui.Dim.Render("  Dashboard:  ") + ui.White.Render(cfg.Server.DashboardURL))
		fmt.Println(ui.Dim.Render("  Origins:    ") + ui.White.Render(orNone(strings.Join(cfg.Server.AllowedOrigins, ", "))))
		fmt.Println(ui.Dim.Render("  Rate limit: ") + ui.White.Render(fmt.Sprintf("%d/min", cfg.Server.RateLimit)))
		fmt.Println(ui.Dim.Render("  Max upload: ") + ui.White.Render(fmt.Sprintf("%d bytes", cfg.Upload.MaxBytes)))
		fmt.Println()
		if cfg.InterceptEnabled() {
			fmt.Println(ui.Cyan.Render("Intercept:"))
			fmt.Println(ui.Dim.Render("  Prefix:     ") + ui.White.Render(orNone(cfg.Intercept.Prefix)))
			fmt.Println()
		}
		if cfg.PushEnabled() {
			fmt.Println(ui.Cyan.Render("Distribute:"))
			fmt.Println(ui.Dim.Render("  Workers:    ") + ui.White.Render(fmt.Sprintf("%d", cfg.Distribute.Workers)))
			fmt.Println(ui.Dim.Render("  Backups:    ") + ui.White.Render(orNone(cfg.BackupDir())))
			fmt.Println()
		}
		fmt.Println(ui.Cyan.Render("History:   ") + ui.Flag(cfg.History.Enabled, cfg.HistoryPath(), "disabled"))
		fmt.Println(ui.Cyan.Render("Log:       ") + ui.White.Render(cfg.Log.Level+" ("+cfg.Log.Format+")"))
		fmt.Println()
		fmt.Println(ui.Dim.Render("Config file: " + configPath))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively write a config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup.Run(cmd.Context(), configPath)
		if errors.Is(err, setup.ErrCancelled) {
			fmt.Println("Setup cancelled.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(ui.Green.Render("Configuration written to " + configPath))
		fmt.Printf("  Start with: webbrand serve --config %s\n", configPath)
		fmt.Printf("  Upload at:  http://%s/logo/upload\n", cfg.Addr())
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the config file and environment overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.Load(cmd.Context(), configPath); err != nil {
			return err
		}
		fmt.Println(ui.Green.Render("ok") + " " + ui.Dim.Render(configPath))
		return nil
	},
}
