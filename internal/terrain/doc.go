// Package terrain derives the terrain layers of the detector from an
// elevation raster: slope in degrees and a depth proxy measuring how far each
// pixel sits below the region's rim elevation.
//
// The rim is the 95th percentile of elevation inside the region and the floor
// the 5th, taken with a bounded, optionally best-effort reduction so that a
// few noisy pixels do not move the reference.
package terrain
