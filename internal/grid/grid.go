// Package grid computes grid geometry for slicing a source image into
// equally sized square tiles. Planning is a pure function of the source
// dimensions and the sizing constraints; repeated calls with equal inputs
// always return the same geometry.
package grid

import (
	"fmt"
	"math"

	"emojigrid/internal/fragment"
)

// Defaults observed from the target platform: 100px square tiles, sources
// must offer at least one tile-sized fragment per axis, and a pack holds at
// most 48 tiles.
const (
	DefaultTileSize    = 100
	DefaultMinFragment = 100
	DefaultMaxTotal    = 48
)

// coverageWeight biases candidate scoring toward finer grids when the
// part aspect quality is otherwise comparable.
const coverageWeight = 0.1

// Geometry is a grid of Cols x Rows tiles, both at least 1.
type Geometry struct {
	Cols int `yaml:"cols" json:"cols"`
	Rows int `yaml:"rows" json:"rows"`
}

// Total returns the number of tiles in the grid.
func (g Geometry) Total() int { return g.Cols * g.Rows }

func (g Geometry) String() string { return fmt.Sprintf("%dx%d", g.Cols, g.Rows) }

// Options bound the planning search.
type Options struct {
	// TileSize is the square tile edge in pixels.
	TileSize int

	// MinFragment is the smallest per-part source size (before scaling)
	// allowed on either axis.
	MinFragment int

	// MaxTotal caps Cols*Rows for any planned or caller-supplied geometry.
	MaxTotal int
}

// DefaultOptions returns the platform defaults.
func DefaultOptions() Options {
	return Options{
		TileSize:    DefaultTileSize,
		MinFragment: DefaultMinFragment,
		MaxTotal:    DefaultMaxTotal,
	}
}

// Plan chooses the grid whose parts are closest to square, preferring finer
// grids on near-ties via the coverage bias. Candidates with a per-part size
// below MinFragment or a total above MaxTotal are discarded. The enumeration
// order (cols ascending, rows ascending inside each col) combined with
// strict-improvement selection makes the choice deterministic: on a score
// tie the first-found candidate wins.
//
// Sources smaller than MinFragment on either axis are rejected with
// fragment.ErrInvalidInput. If no candidate survives the filters, Plan
// falls back to a single 1x1 grid.
func Plan(width, height int, opts Options) (Geometry, error) {
	if width < opts.MinFragment || height < opts.MinFragment {
		return Geometry{}, fmt.Errorf("%w: source %dx%d is below the minimum %dx%d",
			fragment.ErrInvalidInput, width, height, opts.MinFragment, opts.MinFragment)
	}

	maxCols := max(1, width/opts.MinFragment)
	maxRows := max(1, height/opts.MinFragment)

	best := Geometry{Cols: 1, Rows: 1}
	bestScore := math.Inf(1)

	for cols := 1; cols <= maxCols; cols++ {
		for rows := 1; rows <= maxRows; rows++ {
			partWidth := float64(width) / float64(cols)
			partHeight := float64(height) / float64(rows)
			if partWidth < float64(opts.MinFragment) || partHeight < float64(opts.MinFragment) {
				continue
			}
			if cols*rows > opts.MaxTotal {
				continue
			}

			// Squareness of one part, minus a small reward for using more
			// of the available grid space.
			ratioDiff := math.Abs(partWidth/partHeight - 1.0)
			coverage := float64(cols*rows) / float64(maxCols*maxRows)
			score := ratioDiff - coverage*coverageWeight

			if score < bestScore {
				bestScore = score
				best = Geometry{Cols: cols, Rows: rows}
			}
		}
	}

	return best, nil
}

// Validate checks a caller-supplied geometry against the tile-count bounds.
func Validate(g Geometry, opts Options) error {
	if g.Cols < 1 || g.Rows < 1 {
		return fmt.Errorf("%w: grid %s has an empty axis", fragment.ErrInvalidInput, g)
	}
	if g.Total() > opts.MaxTotal {
		return fmt.Errorf("%w: grid %s yields %d tiles, limit is %d",
			fragment.ErrInvalidInput, g, g.Total(), opts.MaxTotal)
	}
	return nil
}
