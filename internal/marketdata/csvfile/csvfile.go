// Package csvfile serves closing prices from local CSV files, one file per
// symbol, for offline runs and tests.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/core"
)

var dateLayouts = []string{time.DateOnly, time.RFC3339, "2006/01/02", "02-01-2006"}

// Provider reads <dir>/<SYMBOL>.csv.
type Provider struct {
	dir string
}

// New creates a provider rooted at dir.
func New(dir string) *Provider {
	return &Provider{dir: dir}
}

func (p *Provider) Name() string {
	return "csv"
}

// FetchHistory reads the symbol's file and returns bars in [start, end).
// A zero start or end leaves that side open. Files may omit the header, in
// which case the first two columns are date and close; with a header the
// adj_close column is preferred over close.
func (p *Provider) FetchHistory(ctx context.Context, symbol string, start, end time.Time, _ string) ([]core.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if symbol == "" || strings.ContainsAny(symbol, `/\`) || symbol == ".." {
		return nil, core.Errorf(core.ErrInvalidParameter, "invalid symbol %q", symbol)
	}

	path := filepath.Join(p.dir, symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, core.Errorf(core.ErrNoData, "no file for %s in %s", symbol, p.dir)
		}
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	defer f.Close()

	bars, err := parse(f, symbol)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("%s: %w", path, err))
	}

	out := bars[:0]
	for _, b := range bars {
		if !start.IsZero() && b.Time.Before(start) {
			continue
		}
		if !end.IsZero() && !b.Time.Before(end) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func parse(r io.Reader, symbol string) ([]core.Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	dateCol, closeCol := 0, 1
	if _, err := parseDate(records[0][0]); err != nil {
		dateCol, closeCol, err = columns(records[0])
		if err != nil {
			return nil, err
		}
		records = records[1:]
	}

	bars := make([]core.Bar, 0, len(records))
	for i, rec := range records {
		if len(rec) <= dateCol || len(rec) <= closeCol {
			return nil, fmt.Errorf("row %d: expected at least %d columns", i+1, max(dateCol, closeCol)+1)
		}
		raw := strings.TrimSpace(rec[closeCol])
		if raw == "" || strings.EqualFold(raw, "null") || strings.EqualFold(raw, "nan") {
			continue // missing observation
		}
		t, err := parseDate(rec[dateCol])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: close %q: %w", i+1, raw, err)
		}
		bars = append(bars, core.Bar{Symbol: symbol, Close: v, Time: t})
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func columns(header []string) (int, int, error) {
	dateCol, closeCol, adjCol := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date", "time", "timestamp":
			dateCol = i
		case "close":
			closeCol = i
		case "adj_close", "adj close", "adjclose":
			adjCol = i
		}
	}
	if adjCol >= 0 {
		closeCol = adjCol
	}
	if dateCol < 0 || closeCol < 0 {
		return 0, 0, fmt.Errorf("header %v needs a date and a close column", header)
	}
	return dateCol, closeCol, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
