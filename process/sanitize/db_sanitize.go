// Package sanitize empties the earnings table from the command line, with a
// dry run by default and an explicit confirmation for the real thing.
package sanitize

import (
	"context"
	"errors"
	"fmt"
	"io"

	"earnings/store"
)

type Options struct {
	DryRun   bool
	Yes      bool
	ResetIDs bool
}

// sequenceResetter is implemented by stores whose id counter can restart.
type sequenceResetter interface {
	ResetSequence(ctx context.Context) error
}

// ErrNotConfirmed is returned when a destructive run lacks Options.Yes.
var ErrNotConfirmed = errors.New("destructive operation not confirmed; pass --yes")

// Run reports how many rows would go and, unless this is a dry run, deletes
// them. It returns the number of rows deleted.
func Run(ctx context.Context, st store.Store, opts Options, w io.Writer) (int64, error) {
	sess := st.Session(ctx)
	defer sess.Close()

	stats, err := sess.Stats()
	if err != nil {
		return 0, fmt.Errorf("count earnings: %w", err)
	}
	fmt.Fprintf(w, "earnings rows present: %d\n", stats.Count)

	if opts.DryRun {
		fmt.Fprintln(w, "dry-run enabled; no changes will be made. Use --dry-run=false --yes to execute.")
		return 0, nil
	}
	if !opts.Yes {
		return 0, ErrNotConfirmed
	}

	n, err := sess.Clear()
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(w, "deleted %d rows\n", n)

	if opts.ResetIDs {
		r, ok := st.(sequenceResetter)
		if !ok {
			return n, fmt.Errorf("store %T cannot reset ids", st)
		}
		if err := r.ResetSequence(ctx); err != nil {
			return n, fmt.Errorf("reset id sequence: %w", err)
		}
		fmt.Fprintln(w, "id sequence restarted at 1")
	}
	return n, nil
}
