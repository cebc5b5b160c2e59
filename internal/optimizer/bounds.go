package optimizer

import (
	"fmt"
	"math"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/core"
)

// Bounds is the per-asset weight box shared by every asset.
type Bounds struct {
	Min float64
	Max float64
}

// DefaultBounds returns the 5%..25% box.
func DefaultBounds() Bounds {
	return Bounds{Min: 0.05, Max: 0.25}
}

// Feasible reports whether a fully invested portfolio of n assets fits the box.
func (b Bounds) Feasible(n int) bool {
	if n <= 0 || math.IsNaN(b.Min) || math.IsNaN(b.Max) {
		return false
	}
	if b.Min < 0 || b.Min > b.Max {
		return false
	}
	return b.Min*float64(n) <= 1+budgetTol && b.Max*float64(n) >= 1-budgetTol
}

func (b Bounds) check(n int) error {
	if !b.Feasible(n) {
		return core.Errorf(core.ErrInfeasibleConstraints,
			"bounds [%g, %g] cannot hold a fully invested portfolio of %d assets", b.Min, b.Max, n)
	}
	return nil
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%g, %g]", b.Min, b.Max)
}
