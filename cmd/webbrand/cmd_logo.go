package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/battlewithbytes/webbrand/internal/distribute"
	"github.com/battlewithbytes/webbrand/internal/logo"
	"github.com/battlewithbytes/webbrand/internal/ui"
)

func init() {
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(clearCmd)
}

var setCmd = &cobra.Command{
	Use:   "set <role> <image>",
	Short: "Store an override image for a role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		role, err := a.store.Table().ParseRole(args[0])
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		if err := a.store.Save(role, data); err != nil {
			return err
		}
		fmt.Printf("%s %s %s\n", ui.Green.Render("saved"), role, ui.Dim.Render(logo.Fingerprint(data)[:12]))

		if !a.cfg.PushEnabled() {
			return nil
		}
		if err := a.openHistory(); err != nil {
			return err
		}
		rep, err := a.distributor().Distribute(cmd.Context(), distribute.TriggerUpload, role)
		if err != nil {
			return err
		}
		printReport(rep, false)
		return reportErr(rep)
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear <role>",
	Short: "Remove the override for a role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		role, err := a.store.Table().ParseRole(args[0])
		if err != nil {
			return err
		}
		if err := a.store.Delete(role); err != nil {
			if logo.KindOf(err) == logo.KindNotFound {
				return fmt.Errorf("no override stored for %s", role)
			}
			return err
		}
		fmt.Printf("%s %s\n", ui.Green.Render("cleared"), role)

		if !a.cfg.PushEnabled() {
			return nil
		}
		if err := a.openHistory(); err != nil {
			return err
		}
		rep, err := a.distributor().Restore(cmd.Context(), distribute.TriggerDelete, role)
		if err != nil {
			return err
		}
		printReport(rep, false)
		return reportErr(rep)
	},
}
