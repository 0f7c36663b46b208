package raster

import (
	"fmt"

	"github.com/ironsheep/minesite-mcp/internal/geom"
)

// Mask is a self-masked boolean raster: a pixel is either a candidate (true)
// or excluded (false). There is no separate "false but valid" state.
type Mask struct {
	Grid Grid
	Bits []bool
}

// NewMask allocates an empty mask.
func NewMask(grid Grid) *Mask {
	return &Mask{Grid: grid, Bits: make([]bool, grid.Len())}
}

// Get reports whether (col, row) is set. Out-of-range pixels are unset.
func (m *Mask) Get(col, row int) bool {
	if !m.Grid.InBounds(col, row) {
		return false
	}
	return m.Bits[m.Grid.Index(col, row)]
}

// Set marks (col, row) as a candidate.
func (m *Mask) Set(col, row int) {
	m.Bits[m.Grid.Index(col, row)] = true
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	return &Mask{Grid: m.Grid, Bits: append([]bool(nil), m.Bits...)}
}

// Covers reports whether every pixel set in other is also set in m.
func (m *Mask) Covers(other *Mask) bool {
	if !m.Grid.Equal(other.Grid) {
		return false
	}
	for i, b := range other.Bits {
		if b && !m.Bits[i] {
			return false
		}
	}
	return true
}

// Clip returns a copy with every pixel whose centre lies outside roi unset.
func (m *Mask) Clip(roi geom.ROI) *Mask {
	out := m.Clone()
	for row := 0; row < m.Grid.Height; row++ {
		for col := 0; col < m.Grid.Width; col++ {
			i := m.Grid.Index(col, row)
			if out.Bits[i] && !roi.Contains(m.Grid.Center(col, row)) {
				out.Bits[i] = false
			}
		}
	}
	return out
}

// Resample maps the mask onto grid by nearest-neighbour lookup of each
// target pixel centre.
func (m *Mask) Resample(grid Grid) *Mask {
	if grid.Equal(m.Grid) {
		return m.Clone()
	}
	out := NewMask(grid)
	for row := 0; row < grid.Height; row++ {
		for col := 0; col < grid.Width; col++ {
			c, r, ok := m.Grid.PixelOf(grid.Center(col, row))
			if ok && m.Bits[m.Grid.Index(c, r)] {
				out.Bits[grid.Index(col, row)] = true
			}
		}
	}
	return out
}

// Where builds a mask that is set wherever pred holds for the pixel values of
// bands. Pixels invalid in any band are excluded.
func Where(pred func(v []float64) bool, bands ...*Band) (*Mask, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("where: no input bands")
	}
	grid := bands[0].Grid
	for _, b := range bands[1:] {
		if !b.Grid.Equal(grid) {
			return nil, fmt.Errorf("where on %q: %w", b.Name, ErrGridMismatch)
		}
	}

	out := NewMask(grid)
	vals := make([]float64, len(bands))
	for i := range out.Bits {
		valid := true
		for k, b := range bands {
			v, ok := b.Value(i)
			if !ok {
				valid = false
				break
			}
			vals[k] = v
		}
		if valid && pred(vals) {
			out.Bits[i] = true
		}
	}
	return out, nil
}
