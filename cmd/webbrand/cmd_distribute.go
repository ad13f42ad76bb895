package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/battlewithbytes/webbrand/internal/distribute"
	"github.com/battlewithbytes/webbrand/internal/ui"
)

var (
	distributeDryRun  bool
	distributeVerbose bool
	restoreVerbose    bool
)

func init() {
	distributeCmd.Flags().BoolVar(&distributeDryRun, "dry-run", false, "list the bundle files each role would replace")
	distributeCmd.Flags().BoolVarP(&distributeVerbose, "verbose", "v", false, "print every file result")
	restoreCmd.Flags().BoolVarP(&restoreVerbose, "verbose", "v", false, "print every file result")
	rootCmd.AddCommand(distributeCmd)
	rootCmd.AddCommand(restoreCmd)
}

var distributeCmd = &cobra.Command{
	Use:   "distribute [role...]",
	Short: "Copy stored overrides over matching files in the web bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		roles, err := a.roleArgs(args)
		if err != nil {
			return err
		}

		if distributeDryRun {
			d := a.distributor()
			matches, err := d.Scan(cmd.Context(), roles...)
			if err != nil {
				return err
			}
			found := 0
			for _, r := range a.store.Table().Roles() {
				paths, ok := matches[r]
				if !ok {
					continue
				}
				found++
				fmt.Println(ui.Label(string(r) + ":"))
				for _, p := range paths {
					fmt.Printf("  %s\n", p)
				}
			}
			if found == 0 {
				fmt.Println(ui.Dim.Render("no matching bundle files"))
			}
			return nil
		}

		if err := a.openHistory(); err != nil {
			return err
		}
		rep, err := a.distributor().Distribute(cmd.Context(), distribute.TriggerManual, roles...)
		if err != nil {
			return err
		}
		printReport(rep, distributeVerbose)
		return reportErr(rep)
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore [role...]",
	Short: "Put backed-up originals back into the web bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		roles, err := a.roleArgs(args)
		if err != nil {
			return err
		}
		if err := a.openHistory(); err != nil {
			return err
		}
		rep, err := a.distributor().Restore(cmd.Context(), distribute.TriggerManual, roles...)
		if err != nil {
			return err
		}
		printReport(rep, restoreVerbose)
		return reportErr(rep)
	},
}
