// Package report prints a month-bounded summary of the earnings table.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"earnings/models"
	"earnings/store"

	"github.com/shopspring/decimal"
)

// MonthBounds returns the first and last calendar day of month (YYYY-MM).
func MonthBounds(month string) (models.Date, models.Date, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return models.Date{}, models.Date{}, fmt.Errorf("invalid month %q, expected YYYY-MM", month)
	}
	start := models.NewDate(t.Year(), t.Month(), 1)
	end := models.Date{Time: start.AddDate(0, 1, -1)}
	return start, end, nil
}

// Run writes the record count and total for month to w and, when list is set,
// one `id|date|amount|description` line per record in id order.
func Run(sess store.Session, month string, list bool, w io.Writer) error {
	start, end, err := MonthBounds(month)
	if err != nil {
		return err
	}
	rows, err := sess.ListRange(start, end)
	if err != nil {
		return fmt.Errorf("query month %s: %w", month, err)
	}

	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	fmt.Fprintf(w, "Report for month=%s (%s..%s):\n", month, start, end)
	fmt.Fprintf(w, "  records=%d total_amount=%s\n", len(rows), total.StringFixed(2))

	if list {
		sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
		for _, r := range rows {
			fmt.Fprintf(w, "%d|%s|%s|%s\n", r.ID, r.Date, r.Amount.StringFixed(2), r.Description)
		}
	}
	return nil
}
