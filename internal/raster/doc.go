// Package raster is the small in-process raster algebra engine behind the
// detector.
//
// It works on georeferenced grids of float64 bands and boolean masks and
// provides the operations the pipeline needs: per-pixel combination,
// thresholding into masks, percentile reduction over a region, focal
// dilation, vectorization of masks into polygons and burning polygons back
// onto a grid.
//
// # Conventions
//
//   - Pixels are addressed as (col, row) with row 0 at the top.
//   - A pixel belongs to a region when its centre lies inside it.
//   - Invalid pixels never take part in any computation; they propagate as
//     invalid through Combine and are excluded from Where and Percentiles.
//
// Operations that can be expensive take explicit pixel budgets with an
// optional best-effort mode that coarsens the sampling instead of failing.
package raster
