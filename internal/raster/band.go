package raster

import (
	"fmt"

	"github.com/ironsheep/minesite-mcp/internal/geom"
)

// Band is a single-channel raster of float64 values with optional per-pixel
// validity. A nil Valid slice means every pixel is valid.
//
// Bands are treated as immutable once handed to another stage; operations
// return new bands rather than writing into their inputs.
type Band struct {
	Name  string
	Grid  Grid
	Data  []float64
	Valid []bool
}

// NewBand allocates a zero-filled, fully valid band.
func NewBand(name string, grid Grid) *Band {
	return &Band{
		Name: name,
		Grid: grid,
		Data: make([]float64, grid.Len()),
	}
}

// NewBandFrom wraps existing row-major data. The slice is not copied.
func NewBandFrom(name string, grid Grid, data []float64) (*Band, error) {
	if len(data) != grid.Len() {
		return nil, fmt.Errorf("band %q has %d values, grid needs %d", name, len(data), grid.Len())
	}
	return &Band{Name: name, Grid: grid, Data: data}, nil
}

// IsValid reports whether pixel i carries data.
func (b *Band) IsValid(i int) bool {
	return b.Valid == nil || b.Valid[i]
}

// Value returns pixel i and its validity.
func (b *Band) Value(i int) (float64, bool) {
	return b.Data[i], b.IsValid(i)
}

// At returns the pixel at (col, row) and its validity. Out-of-range
// coordinates are reported as invalid.
func (b *Band) At(col, row int) (float64, bool) {
	if !b.Grid.InBounds(col, row) {
		return 0, false
	}
	return b.Value(b.Grid.Index(col, row))
}

// Set stores a valid value at (col, row).
func (b *Band) Set(col, row int, v float64) {
	i := b.Grid.Index(col, row)
	b.Data[i] = v
	if b.Valid != nil {
		b.Valid[i] = true
	}
}

// Invalidate marks pixel i as having no data.
func (b *Band) Invalidate(i int) {
	if b.Valid == nil {
		b.Valid = make([]bool, len(b.Data))
		for j := range b.Valid {
			b.Valid[j] = true
		}
	}
	b.Valid[i] = false
}

// ValidCount returns the number of pixels carrying data.
func (b *Band) ValidCount() int {
	if b.Valid == nil {
		return len(b.Data)
	}
	n := 0
	for _, ok := range b.Valid {
		if ok {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the band under a new name. An empty name keeps
// the original one.
func (b *Band) Clone(name string) *Band {
	if name == "" {
		name = b.Name
	}
	out := &Band{Name: name, Grid: b.Grid, Data: append([]float64(nil), b.Data...)}
	if b.Valid != nil {
		out.Valid = append([]bool(nil), b.Valid...)
	}
	return out
}

// Clip returns a copy of the band in which every pixel whose centre lies
// outside roi is invalid.
func (b *Band) Clip(roi geom.ROI) *Band {
	out := b.Clone("")
	for row := 0; row < b.Grid.Height; row++ {
		for col := 0; col < b.Grid.Width; col++ {
			if !roi.Contains(b.Grid.Center(col, row)) {
				out.Invalidate(b.Grid.Index(col, row))
			}
		}
	}
	return out
}

// Combine evaluates fn for every pixel across bands that share one grid.
//
// fn receives the input values in argument order and returns the output value
// with its validity. A pixel that is invalid in any input is invalid in the
// output and fn is not called for it.
func Combine(name string, fn func(v []float64) (float64, bool), bands ...*Band) (*Band, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("combine %q: no input bands", name)
	}
	grid := bands[0].Grid
	for _, b := range bands[1:] {
		if !b.Grid.Equal(grid) {
			return nil, fmt.Errorf("combine %q with %q: %w", name, b.Name, ErrGridMismatch)
		}
	}

	out := &Band{
		Name:  name,
		Grid:  grid,
		Data:  make([]float64, grid.Len()),
		Valid: make([]bool, grid.Len()),
	}
	vals := make([]float64, len(bands))

	for i := range out.Data {
		valid := true
		for k, b := range bands {
			v, ok := b.Value(i)
			if !ok {
				valid = false
				break
			}
			vals[k] = v
		}
		if !valid {
			continue
		}
		out.Data[i], out.Valid[i] = fn(vals)
	}
	return out, nil
}

// Resample maps the band onto grid by nearest-neighbour lookup of each target
// pixel centre. Target pixels falling outside the source are invalid.
func (b *Band) Resample(grid Grid) *Band {
	if grid.Equal(b.Grid) {
		return b.Clone("")
	}
	out := &Band{
		Name:  b.Name,
		Grid:  grid,
		Data:  make([]float64, grid.Len()),
		Valid: make([]bool, grid.Len()),
	}
	for row := 0; row < grid.Height; row++ {
		for col := 0; col < grid.Width; col++ {
			c, r, ok := b.Grid.PixelOf(grid.Center(col, row))
			if !ok {
				continue
			}
			i := grid.Index(col, row)
			out.Data[i], out.Valid[i] = b.At(c, r)
		}
	}
	return out
}
