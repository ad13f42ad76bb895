package main

import (
	"fmt"
	"sort"

	"github.com/battlewithbytes/webbrand/internal/distribute"
	"github.com/battlewithbytes/webbrand/internal/ui"
)

func printReport(rep *distribute.Report, verbose bool) {
	fmt.Printf("%s %s %s\n", ui.Label("run:"), ui.White.Render(rep.ID), ui.Dim.Render("("+rep.Trigger+")"))
	if rep.Skipped != "" {
		fmt.Printf("  %s %s\n", ui.Yellow.Render("skipped:"), rep.Skipped)
		return
	}
	for _, s := range rep.Roles {
		line := fmt.Sprintf("  %-18s matched=%d copied=%d unchanged=%d restored=%d",
			s.Role, s.Matched, s.Copied, s.Unchanged, s.Restored)
		switch {
		case s.Skipped != "":
			fmt.Printf("  %-18s %s\n", s.Role, ui.Dim.Render(s.Skipped))
		case s.Failed > 0:
			fmt.Println(line + ui.Red.Render(fmt.Sprintf(" failed=%d", s.Failed)))
		case s.NoBackup > 0:
			fmt.Println(line + ui.Yellow.Render(fmt.Sprintf(" no_backup=%d", s.NoBackup)))
		default:
			fmt.Println(line)
		}
	}
	if !verbose {
		return
	}
	files := append([]distribute.FileResult(nil), rep.Files...)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	for _, f := range files {
		out := string(f.Outcome)
		if f.Outcome == distribute.OutcomeFailed {
			out = ui.Red.Render(out) + " " + ui.Dim.Render(f.Error)
		}
		fmt.Printf("    %s %s\n", f.Path, out)
	}
}

// reportErr turns a run with failed files into a non-zero exit.
func reportErr(rep *distribute.Report) error {
	if n := rep.Failed(); n > 0 {
		return fmt.Errorf("%d file(s) failed", n)
	}
	return nil
}
