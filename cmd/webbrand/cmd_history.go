package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/battlewithbytes/webbrand/internal/history"
	"github.com/battlewithbytes/webbrand/internal/ui"
)

var (
	historyLimit int
	historyPrune int
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", history.DefaultLimit, "number of runs to list")
	historyCmd.Flags().IntVar(&historyPrune, "prune", 0, "delete all but the newest N runs")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recent distribution runs or show one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if !a.cfg.History.Enabled {
			return fmt.Errorf("history is disabled in %s", configPath)
		}
		if err := a.openHistory(); err != nil {
			return err
		}

		if len(args) == 1 {
			rep, err := a.history.Get(ctx, args[0])
			if err != nil {
				return err
			}
			printReport(rep, true)
			return nil
		}
		if historyPrune > 0 {
			n, err := a.history.Prune(ctx, historyPrune)
			if err != nil {
				return err
			}
			fmt.Printf("pruned %d run(s)\n", n)
			return nil
		}

		runs, err := a.history.Recent(ctx, historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println(ui.Dim.Render("no runs recorded"))
			return nil
		}
		for _, r := range runs {
			state := ui.Green.Render("ok")
			switch {
			case r.Skipped != "":
				state = ui.Yellow.Render("skipped")
			case r.Failed() > 0:
				state = ui.Red.Render(fmt.Sprintf("%d failed", r.Failed()))
			}
			fmt.Printf("%s  %-8s %s  %s\n", ui.Dim.Render(r.Started.Local().Format("2006-01-02 15:04:05")), r.Trigger, r.ID, state)
		}
		return nil
	},
}
