package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"earnings/models"
	"earnings/process/jobenv"

	"github.com/shopspring/decimal"
)

func sampleEarnings() []models.Earning {
	return []models.Earning{
		{Amount: decimal.RequireFromString("500.00"), Description: "Freelance development", Date: models.NewDate(2024, time.January, 15)},
		{Amount: decimal.RequireFromString("300.00"), Description: "Sold used items", Date: models.NewDate(2024, time.January, 20)},
		{Amount: decimal.RequireFromString("750.00"), Description: "Extra work", Date: models.NewDate(2024, time.February, 1)},
	}
}

func main() {
	force := flag.Bool("force", false, "insert the samples even when the table already has rows")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, log := jobenv.MustSetup(ctx)
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	sess := db.Session(ctx)
	defer sess.Close()

	stats, err := sess.Stats()
	if err != nil {
		log.Fatal().Err(err).Msg("count earnings")
	}
	if stats.Count > 0 && !*force {
		fmt.Printf("earnings already has %d rows; pass --force to add samples anyway\n", stats.Count)
		return
	}
	rows := sampleEarnings()
	if err := sess.CreateAll(rows); err != nil {
		log.Fatal().Err(err).Msg("insert samples")
	}
	for _, r := range rows {
		fmt.Printf("created id=%d amount=%s date=%s %q\n", r.ID, r.Amount.StringFixed(2), r.Date, r.Description)
	}
}
