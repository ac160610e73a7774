package main

import (
	"context"
	"flag"
	"os"
	"time"

	"earnings/process/jobenv"
	"earnings/process/report"
)

func main() {
	month := flag.String("month", time.Now().Format("2006-01"), "month to report (YYYY-MM)")
	list := flag.Bool("list", false, "list matching rows")
	flag.Parse()

	ctx := context.Background()
	db, log := jobenv.MustSetup(ctx)
	defer db.Close()

	sess := db.Session(ctx)
	defer sess.Close()
	if err := report.Run(sess, *month, *list, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("report failed")
	}
}
