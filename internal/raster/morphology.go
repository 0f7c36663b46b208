package raster

import (
	"fmt"
	"math"
)

// KernelShape selects the footprint of a structuring kernel.
type KernelShape string

const (
	KernelSquare KernelShape = "square"
	KernelCircle KernelShape = "circle"
)

// Kernel units.
const (
	UnitsMeters = "meters"
	UnitsPixels = "pixels"
)

// Kernel is a structuring element for focal operations.
type Kernel struct {
	Shape  KernelShape `json:"shape"`
	Radius float64     `json:"radius"`
	Units  string      `json:"units"`
}

// Validate checks the radius, shape and units. Empty shape and units mean
// square and metres.
func (k Kernel) Validate() error {
	if k.Radius < 0 || math.IsNaN(k.Radius) || math.IsInf(k.Radius, 0) {
		return fmt.Errorf("kernel radius %v must be finite and non-negative", k.Radius)
	}
	switch k.Units {
	case UnitsMeters, UnitsPixels, "":
	default:
		return fmt.Errorf("unknown kernel units %q", k.Units)
	}
	switch k.Shape {
	case KernelSquare, KernelCircle, "":
	default:
		return fmt.Errorf("unknown kernel shape %q", k.Shape)
	}
	return nil
}

// Offsets returns the pixel offsets covered by the kernel on grid.
//
// A metric radius is converted to whole pixels per axis by flooring
// radius/pixelSize, so a 60 m square kernel on 30 m pixels reaches two
// pixels in every direction (a 5x5 footprint). Circle kernels keep offsets
// whose metric distance from the centre is at most the radius.
func (k Kernel) Offsets(grid Grid) ([][2]int, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}

	sx, sy := 1.0, 1.0
	if k.Units != UnitsPixels {
		sx, sy = grid.PixelSize()
	}

	rx := int(math.Floor(k.Radius/sx + 1e-9))
	ry := int(math.Floor(k.Radius/sy + 1e-9))

	var offsets [][2]int
	for dy := -ry; dy <= ry; dy++ {
		for dx := -rx; dx <= rx; dx++ {
			if k.Shape == KernelCircle {
				ex, ey := float64(dx)*sx, float64(dy)*sy
				if ex*ex+ey*ey > k.Radius*k.Radius+1e-9 {
					continue
				}
			}
			offsets = append(offsets, [2]int{dx, dy})
		}
	}
	return offsets, nil
}

// Dilate applies a focal maximum to m with kernel k.
//
// Each iteration reads only the previous iteration's output, so a pixel is
// set iff some pixel within the kernel footprint was set before that pass.
// The result always covers the input. Iterations below one are treated as
// one.
func Dilate(m *Mask, k Kernel, iterations int) (*Mask, error) {
	offsets, err := k.Offsets(m.Grid)
	if err != nil {
		return nil, err
	}
	if iterations < 1 {
		iterations = 1
	}

	grid := m.Grid
	cur := m
	for it := 0; it < iterations; it++ {
		next := cur.Clone()
		for row := 0; row < grid.Height; row++ {
			for col := 0; col < grid.Width; col++ {
				if !cur.Bits[grid.Index(col, row)] {
					continue
				}
				for _, o := range offsets {
					c, r := col+o[0], row+o[1]
					if grid.InBounds(c, r) {
						next.Bits[grid.Index(c, r)] = true
					}
				}
			}
		}
		cur = next
	}
	return cur, nil
}
