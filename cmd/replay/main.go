// Command replay reads a frame journal written by cmd/sim, verifies
// that the fixed-house count never decreases, and prints the final
// frame and a short summary.
package main

import (
	"flag"
	"fmt"
	"os"

	"repairtown.ai/internal/persistence/runlog"
	"repairtown.ai/internal/render"
)

func main() {
	var (
		path  = flag.String("runlog", "", "path to .jsonl.zst frame journal")
		quiet = flag.Bool("quiet", false, "suppress the final grid")
	)
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "missing -runlog")
		os.Exit(2)
	}

	frames, err := runlog.ReadFrames(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read runlog:", err)
		os.Exit(1)
	}
	if len(frames) == 0 {
		fmt.Fprintln(os.Stderr, "empty runlog")
		os.Exit(1)
	}

	lastFixed := -1
	for i, f := range frames {
		if err := f.CheckGrid(); err != nil {
			fmt.Fprintf(os.Stderr, "malformed journal: %v\n", err)
			os.Exit(1)
		}
		if f.Fixed < lastFixed {
			fmt.Fprintf(os.Stderr, "frame %d: fixed count went backwards (%d -> %d)\n", i, lastFixed, f.Fixed)
			os.Exit(1)
		}
		lastFixed = f.Fixed
	}

	final := frames[len(frames)-1]
	if !*quiet {
		fmt.Print(render.Frame(final))
	}
	fmt.Printf("replay ok: frames=%d grid=%dx%d fixed=%d/%d elapsed=%dms\n",
		len(frames), final.Rows, final.Cols, final.Fixed, final.Total, final.ElapsedMs)
	if final.Fixed != final.Total {
		os.Exit(1)
	}
}
