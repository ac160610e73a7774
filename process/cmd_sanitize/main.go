package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"earnings/process/jobenv"
	"earnings/process/sanitize"
)

func main() {
	var opts sanitize.Options
	flag.BoolVar(&opts.DryRun, "dry-run", true, "Don't delete anything; show what would be done")
	flag.BoolVar(&opts.Yes, "yes", false, "Confirm the destructive action (required to actually delete)")
	flag.BoolVar(&opts.ResetIDs, "reset-ids", false, "After deleting, restart the id sequence at 1")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, log := jobenv.MustSetup(ctx)
	defer db.Close()

	n, err := sanitize.Run(ctx, db, opts, os.Stdout)
	if errors.Is(err, sanitize.ErrNotConfirmed) {
		fmt.Println("Destructive operation. Pass --yes to confirm execution. Aborting.")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("sanitize failed")
	}
	if !opts.DryRun {
		log.Warn().Int64("deleted", n).Msg("earnings table emptied")
	}
}
