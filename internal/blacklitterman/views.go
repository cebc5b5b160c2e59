package blacklitterman

import (
	"math"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/core"
	"gonum.org/v1/gonum/mat"
)

// ViewKind distinguishes absolute from relative views.
type ViewKind string

const (
	ViewAbsolute ViewKind = "absolute"
	ViewRelative ViewKind = "relative"
)

// View is an investor belief about one asset's return (absolute) or the
// spread by which Asset outperforms Over (relative).
type View struct {
	Kind   ViewKind
	Asset  string
	Over   string
	Return float64
}

// Views is the matrix form of a set of views: P has one row per view and one
// column per asset, Q holds the asserted return of each row.
type Views struct {
	P *mat.Dense
	Q []float64
}

// Len returns the number of views.
func (v Views) Len() int {
	return len(v.Q)
}

// Validate checks that the views fit a universe of n assets.
func (v Views) Validate(n int) error {
	if v.P == nil {
		return core.Errorf(core.ErrInvalidViews, "view matrix is nil")
	}
	rows, cols := v.P.Dims()
	if cols != n {
		return core.Errorf(core.ErrInvalidViews, "view matrix has %d columns for %d assets", cols, n)
	}
	if rows != len(v.Q) {
		return core.Errorf(core.ErrInvalidViews, "view matrix has %d rows but %d view returns", rows, len(v.Q))
	}
	for i := 0; i < rows; i++ {
		if math.IsNaN(v.Q[i]) || math.IsInf(v.Q[i], 0) {
			return core.Errorf(core.ErrInvalidViews, "view %d has non-finite return", i)
		}
		zero := true
		for _, x := range v.P.RawRowView(i) {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return core.Errorf(core.ErrInvalidViews, "view %d has non-finite coefficient", i)
			}
			if x != 0 {
				zero = false
			}
		}
		if zero {
			return core.Errorf(core.ErrInvalidViews, "view %d references no asset", i)
		}
	}
	return nil
}

// NewViews builds Views from raw coefficient rows and view returns.
func NewViews(rows [][]float64, q []float64) (Views, error) {
	if len(rows) == 0 {
		return Views{}, core.Errorf(core.ErrInvalidViews, "no views given")
	}
	n := len(rows[0])
	data := make([]float64, 0, len(rows)*n)
	for i, row := range rows {
		if len(row) != n {
			return Views{}, core.Errorf(core.ErrInvalidViews, "view %d has %d coefficients, want %d", i, len(row), n)
		}
		data = append(data, row...)
	}
	if n == 0 {
		return Views{}, core.Errorf(core.ErrInvalidViews, "views reference no assets")
	}
	v := Views{
		P: mat.NewDense(len(rows), n, data),
		Q: append([]float64(nil), q...),
	}
	if err := v.Validate(n); err != nil {
		return Views{}, err
	}
	return v, nil
}

// BuildViews converts named views into P and Q ordered by assets.
func BuildViews(assets []string, views []View) (Views, error) {
	if len(views) == 0 {
		return Views{}, core.Errorf(core.ErrInvalidViews, "no views given")
	}
	index := make(map[string]int, len(assets))
	for i, a := range assets {
		index[a] = i
	}

	rows := make([][]float64, len(views))
	q := make([]float64, len(views))
	for i, v := range views {
		row := make([]float64, len(assets))
		col, ok := index[v.Asset]
		if !ok {
			return Views{}, core.Errorf(core.ErrInvalidViews, "view %d: unknown asset %q", i, v.Asset)
		}
		row[col] = 1

		switch v.Kind {
		case ViewAbsolute:
			if v.Over != "" {
				return Views{}, core.Errorf(core.ErrInvalidViews, "view %d: absolute view cannot name a second asset", i)
			}
		case ViewRelative:
			other, ok := index[v.Over]
			if !ok {
				return Views{}, core.Errorf(core.ErrInvalidViews, "view %d: unknown asset %q", i, v.Over)
			}
			if other == col {
				return Views{}, core.Errorf(core.ErrInvalidViews, "view %d: asset compared with itself", i)
			}
			row[other] = -1
		default:
			return Views{}, core.Errorf(core.ErrInvalidViews, "view %d: unknown kind %q", i, v.Kind)
		}

		rows[i] = row
		q[i] = v.Return
	}
	return NewViews(rows, q)
}
