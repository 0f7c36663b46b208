package raster

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/ironsheep/minesite-mcp/internal/geom"
)

// VectorizeOptions controls raster-to-polygon conversion.
type VectorizeOptions struct {
	// Region drops pixels whose centre lies outside it. The zero region keeps
	// the whole grid.
	Region geom.ROI

	// Scale is the pixel size in metres of the grid the mask is resampled to
	// before tracing. Zero keeps the mask's own grid.
	Scale float64

	// EightConnected joins pixels that touch only at a corner.
	EightConnected bool

	// MaxPixels caps the size of the tracing grid, which covers only the
	// region's pixel window. Zero means no cap.
	MaxPixels int

	// BestEffort coarsens the scale until MaxPixels holds instead of failing.
	BestEffort bool
}

// Polygon is one connected group of set pixels.
type Polygon struct {
	// Label is the 1-based component number in scan order.
	Label int

	// Geometry is an orb.Polygon, or an orb.MultiPolygon when the component
	// is joined only through pixel corners.
	Geometry orb.Geometry

	// PixelCount is the number of pixels in the component.
	PixelCount int
}

// VectorizeResult holds the traced polygons and the grid they were traced on.
type VectorizeResult struct {
	Grid      Grid
	Polygons  []Polygon
	Scale     float64
	Truncated bool
}

// Vectorize converts the set pixels of m into polygons.
//
// # Algorithm
//
//  1. Resample to the requested scale (nearest neighbour) over the pixel
//     window of the region's bounding box and clip to the region. MaxPixels
//     applies to that window, not to the whole mask.
//  2. Label connected components with an iterative flood fill.
//  3. For each component, emit a directed edge for every pixel side that
//     borders a pixel outside the component, oriented with the component on
//     the right in pixel space.
//  4. Chain edges into closed rings. Where two pixels of the component meet
//     only at a corner the walk turns right, so rings never cross.
//  5. Rings with positive pixel-space area are shells; the rest are holes and
//     are attached to the smallest shell containing them.
//  6. Drop collinear vertices and map corners to world coordinates.
//
// Pixel-aligned polygons mean a pixel centre is inside a polygon iff the
// pixel belongs to its component, which keeps the vector and raster views in
// exact agreement.
func Vectorize(m *Mask, opts VectorizeOptions) (*VectorizeResult, error) {
	traceGrid := func(scale float64) Grid {
		return m.Grid.WithScale(scale).Crop(opts.Region, 0)
	}

	scale := opts.Scale
	grid := traceGrid(scale)

	truncated := false
	if opts.MaxPixels > 0 && grid.Len() > opts.MaxPixels {
		if !opts.BestEffort {
			return nil, fmt.Errorf("vectorizing %d pixels exceeds limit of %d: %w", grid.Len(), opts.MaxPixels, ErrTooManyPixels)
		}
		if scale <= 0 {
			scale, _ = m.Grid.PixelSize()
		}
		for grid.Len() > opts.MaxPixels {
			scale *= 2
			grid = traceGrid(scale)
		}
		truncated = true
	}

	work := m.Resample(grid)
	if !opts.Region.IsZero() {
		work = work.Clip(opts.Region)
	}

	labels, counts := labelComponents(work, opts.EightConnected)

	polygons := make([]Polygon, 0, len(counts))
	for label := 1; label <= len(counts); label++ {
		g, err := traceComponent(grid, labels, int32(label))
		if err != nil {
			return nil, fmt.Errorf("failed to trace component %d: %w", label, err)
		}
		polygons = append(polygons, Polygon{
			Label:      label,
			Geometry:   g,
			PixelCount: counts[label-1],
		})
	}

	return &VectorizeResult{
		Grid:      grid,
		Polygons:  polygons,
		Scale:     scale,
		Truncated: truncated,
	}, nil
}

// labelComponents assigns a 1-based label to every set pixel. The returned
// counts slice holds the pixel count of label i at index i-1.
func labelComponents(m *Mask, eight bool) ([]int32, []int) {
	grid := m.Grid
	labels := make([]int32, grid.Len())
	var counts []int

	for row := 0; row < grid.Height; row++ {
		for col := 0; col < grid.Width; col++ {
			i := grid.Index(col, row)
			if !m.Bits[i] || labels[i] != 0 {
				continue
			}
			label := int32(len(counts) + 1)
			counts = append(counts, floodFill(m, labels, col, row, label, eight))
		}
	}
	return labels, counts
}

// floodFill labels the component containing (startX, startY).
//
// Uses a stack rather than recursion so large components cannot overflow
// the goroutine stack.
func floodFill(m *Mask, labels []int32, startX, startY int, label int32, eight bool) int {
	grid := m.Grid
	stack := [][2]int{{startX, startY}}
	n := 0

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !grid.InBounds(p[0], p[1]) {
			continue
		}
		i := grid.Index(p[0], p[1])
		if !m.Bits[i] || labels[i] != 0 {
			continue
		}
		labels[i] = label
		n++

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				if !eight && dx != 0 && dy != 0 {
					continue
				}
				stack = append(stack, [2]int{p[0] + dx, p[1] + dy})
			}
		}
	}
	return n
}

// Edge directions in pixel space (y grows downward). Turning right is +1.
const (
	dirEast = iota
	dirSouth
	dirWest
	dirNorth
)

var dirStep = [4][2]int{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}

type edgeKey struct {
	x, y int
	dir  int
}

// traceComponent builds the polygon geometry of one labelled component.
func traceComponent(grid Grid, labels []int32, label int32) (orb.Geometry, error) {
	in := func(col, row int) bool {
		return grid.InBounds(col, row) && labels[grid.Index(col, row)] == label
	}

	// Boundary edges, in scan order so tracing is deterministic.
	var order []edgeKey
	used := make(map[edgeKey]bool)
	for row := 0; row < grid.Height; row++ {
		for col := 0; col < grid.Width; col++ {
			if !in(col, row) {
				continue
			}
			if !in(col, row-1) {
				order = append(order, edgeKey{col, row, dirEast})
			}
			if !in(col+1, row) {
				order = append(order, edgeKey{col + 1, row, dirSouth})
			}
			if !in(col, row+1) {
				order = append(order, edgeKey{col + 1, row + 1, dirWest})
			}
			if !in(col-1, row) {
				order = append(order, edgeKey{col, row + 1, dirNorth})
			}
		}
	}
	for _, e := range order {
		used[e] = false
	}

	var shells, holes []orb.Ring
	for _, start := range order {
		if used[start] {
			continue
		}
		ring, err := walkRing(start, used)
		if err != nil {
			return nil, err
		}
		if ringArea(ring) > 0 {
			shells = append(shells, ring)
		} else {
			holes = append(holes, ring)
		}
	}
	if len(shells) == 0 {
		return nil, fmt.Errorf("component %d has no outer boundary", label)
	}

	polys := make([]orb.Polygon, len(shells))
	for i, s := range shells {
		polys[i] = orb.Polygon{s}
	}
	for _, h := range holes {
		probe := insidePoint(h)
		best, bestArea := -1, math.Inf(1)
		for i, s := range shells {
			a := ringArea(s)
			if a < bestArea && planar.RingContains(s, probe) {
				best, bestArea = i, a
			}
		}
		if best < 0 {
			return nil, fmt.Errorf("hole of component %d has no enclosing shell", label)
		}
		polys[best] = append(polys[best], h)
	}

	for i := range polys {
		for j := range polys[i] {
			// Shells counter-clockwise, holes clockwise (RFC 7946).
			polys[i][j] = toWorld(grid, simplifyRing(polys[i][j]), j == 0)
		}
	}

	if len(polys) == 1 {
		return polys[0], nil
	}
	return orb.MultiPolygon(polys), nil
}

// walkRing follows the boundary from start until the walk would reuse start,
// marking each edge used. The ring is returned closed, in pixel-space corner
// coordinates.
func walkRing(start edgeKey, used map[edgeKey]bool) (orb.Ring, error) {
	ring := orb.Ring{{float64(start.x), float64(start.y)}}
	e := start
	for {
		used[e] = true
		x, y := e.x+dirStep[e.dir][0], e.y+dirStep[e.dir][1]
		ring = append(ring, orb.Point{float64(x), float64(y)})

		next, ok := nextEdge(x, y, e.dir, used)
		if !ok {
			return nil, fmt.Errorf("open boundary at corner (%d,%d)", x, y)
		}
		if next == start {
			return ring, nil
		}
		if used[next] {
			return nil, fmt.Errorf("boundary revisits corner (%d,%d)", x, y)
		}
		e = next
	}
}

// nextEdge picks the boundary edge leaving (x, y), preferring a right turn,
// then straight on, then a left turn. At a corner shared by two diagonal
// pixels the right turn keeps each pixel's sides together, so the pairing of
// incoming and outgoing edges is one-to-one.
func nextEdge(x, y, dir int, edges map[edgeKey]bool) (edgeKey, bool) {
	for _, turn := range [3]int{1, 0, 3} {
		k := edgeKey{x, y, (dir + turn) % 4}
		if _, exists := edges[k]; exists {
			return k, true
		}
	}
	return edgeKey{}, false
}

// ringArea is the signed shoelace area. In pixel space, shells traced with
// the component on the right are positive because y grows downward.
func ringArea(r orb.Ring) float64 {
	var sum float64
	for i := 0; i+1 < len(r); i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return sum / 2
}

// insidePoint returns the centre of the component pixel to the right of the
// ring's first edge.
func insidePoint(r orb.Ring) orb.Point {
	a, b := r[0], r[1]
	dx, dy := b[0]-a[0], b[1]-a[1]
	// Right-hand normal in a y-down frame.
	nx, ny := -dy, dx
	return orb.Point{(a[0]+b[0])/2 + nx*0.5, (a[1]+b[1])/2 + ny*0.5}
}

// simplifyRing removes vertices that lie on a straight run.
func simplifyRing(r orb.Ring) orb.Ring {
	pts := r[:len(r)-1]
	n := len(pts)
	out := make(orb.Ring, 0, n+1)
	for i := 0; i < n; i++ {
		prev := pts[(i+n-1)%n]
		cur := pts[i]
		next := pts[(i+1)%n]
		cross := (cur[0]-prev[0])*(next[1]-cur[1]) - (cur[1]-prev[1])*(next[0]-cur[0])
		if cross != 0 {
			out = append(out, cur)
		}
	}
	return append(out, out[0])
}

// toWorld maps a pixel-space ring to grid coordinates with the requested
// winding.
func toWorld(grid Grid, r orb.Ring, ccw bool) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[i] = grid.Corner(p[0], p[1])
	}
	if (ringArea(out) > 0) != ccw {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}
