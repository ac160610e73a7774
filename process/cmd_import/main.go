package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"earnings/process/importer"
	"earnings/process/jobenv"
)

func main() {
	dir := flag.String("dir", "import", "directory holding csv files (amount,description,date)")
	watch := flag.Bool("watch", false, "keep running and import new files as they appear")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	db, log := jobenv.MustSetup(ctx)
	defer db.Close()

	im := importer.New(db, *dir, log)
	if *watch {
		if err := im.Watch(ctx); err != nil {
			log.Fatal().Err(err).Msg("watch failed")
		}
		return
	}
	sum, err := im.ImportDir(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("import failed")
	}
	log.Info().Int("files", sum.Files).Int("rows", sum.Rows).Int("failed", sum.Failed).Msg("import finished")
	if sum.Failed > 0 {
		os.Exit(1)
	}
}
