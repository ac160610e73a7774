// Package importer loads earnings from CSV files dropped into a directory.
// Each file is imported in a single transaction; a file with any bad row is
// rejected as a whole and moved aside.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"earnings/models"
	"earnings/store"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	ProcessedDir = "processed"
	FailedDir    = "failed"

	defaultSettle = 300 * time.Millisecond
)

var columns = []string{"amount", "description", "date"}

// Importer moves every *.csv in Dir into the store.
type Importer struct {
	Store store.Store
	Dir   string
	Log   zerolog.Logger
	// Settle is how long a new file must stay quiet before it is read.
	Settle time.Duration

	validate *validator.Validate
}

func New(st store.Store, dir string, log zerolog.Logger) *Importer {
	return &Importer{Store: st, Dir: dir, Log: log, Settle: defaultSettle, validate: models.NewValidator()}
}

// Summary counts the outcome of one pass over the directory.
type Summary struct {
	Files  int
	Rows   int
	Failed int
}

// ParseCSV reads rows with an amount,description,date header (any column
// order). Every row is validated like an API create request.
func ParseCSV(r io.Reader, v *validator.Validate) ([]models.Earning, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, c := range columns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("header is missing column %q", c)
		}
	}

	var out []models.Earning
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		e, err := parseRow(rec, idx, v)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func parseRow(rec []string, idx map[string]int, v *validator.Validate) (models.Earning, error) {
	var in models.EarningInput
	amount, err := decimal.NewFromString(strings.TrimSpace(rec[idx["amount"]]))
	if err != nil {
		return models.Earning{}, fmt.Errorf("amount %q is not a number", rec[idx["amount"]])
	}
	in.Amount = &amount
	date, err := models.ParseDate(rec[idx["date"]])
	if err != nil {
		return models.Earning{}, err
	}
	in.Date = &date
	in.Description = rec[idx["description"]]
	if err := v.Struct(in); err != nil {
		return models.Earning{}, err
	}
	return in.ToEarning(), nil
}

// ImportFile stores every row of path in one transaction and moves the file
// to processed/ on success or failed/ otherwise.
func (im *Importer) ImportFile(ctx context.Context, path string) (int, error) {
	n, err := im.load(ctx, path)
	dest := ProcessedDir
	if err != nil {
		dest = FailedDir
	}
	if mvErr := moveTo(filepath.Join(im.Dir, dest), path); mvErr != nil {
		im.Log.Warn().Err(mvErr).Str("file", path).Msg("could not move imported file")
	}
	return n, err
}

func (im *Importer) load(ctx context.Context, path string) (int, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if im.validate == nil {
		im.validate = models.NewValidator()
	}
	rows, err := ParseCSV(f, im.validate)
	if err != nil {
		return 0, err
	}
	sess := im.Store.Session(ctx)
	defer sess.Close()
	if err := sess.CreateAll(rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ImportDir imports every CSV currently in the directory, in name order.
func (im *Importer) ImportDir(ctx context.Context) (Summary, error) {
	var sum Summary
	for _, name := range listCSVFiles(im.Dir) {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		im.importOne(ctx, name, &sum)
	}
	return sum, nil
}

func (im *Importer) importOne(ctx context.Context, name string, sum *Summary) {
	sum.Files++
	n, err := im.ImportFile(ctx, filepath.Join(im.Dir, name))
	if err != nil {
		sum.Failed++
		im.Log.Error().Err(err).Str("file", name).Msg("import failed")
		return
	}
	sum.Rows += n
	im.Log.Info().Str("file", name).Int("rows", n).Msg("imported")
}

// Watch imports what is already present and then every CSV created in the
// directory until ctx is cancelled. A file is picked up once it has not
// changed for Settle.
func (im *Importer) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(im.Dir); err != nil {
		return err
	}
	if _, err := im.ImportDir(ctx); err != nil {
		return err
	}
	im.Log.Info().Str("dir", im.Dir).Msg("watching for csv files")

	settle := im.Settle
	if settle <= 0 {
		settle = defaultSettle
	}
	pending := map[string]time.Time{}
	ticker := time.NewTicker(settle / 2)
	defer ticker.Stop()
	var sum Summary
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !isCSV(name) {
				continue
			}
			pending[name] = time.Now()
		case <-ticker.C:
			now := time.Now()
			for name, t := range pending {
				if now.Sub(t) < settle {
					continue
				}
				delete(pending, name)
				if _, err := os.Stat(filepath.Join(im.Dir, name)); err != nil {
					continue
				}
				im.importOne(ctx, name, &sum)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.Log.Warn().Err(err).Msg("watch error")
		}
	}
}

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv") && !strings.HasPrefix(name, ".")
}

func listCSVFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isCSV(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

// moveTo moves src into dir, keeping its name. It renames when possible and
// falls back to copy and remove across filesystems.
func moveTo(dir, src string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(dir, filepath.Base(src))
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return copyRemove(src, dst)
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
