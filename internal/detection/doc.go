// Package detection finds candidate surface-mining disturbance inside a
// region of interest.
//
// The Detector chains the pipeline stages: a cloud-masked median composite,
// terrain slope and depth below the rim, spectral indices, a strict
// multi-criteria threshold mask, one dilation pass, vectorization with an
// area filter, and a final rasterization of the surviving polygons that must
// agree pixel for pixel with the polygons themselves.
//
// # Criteria
//
// A pixel is a candidate when all of the following hold (defaults):
//
//   - NDVI < 0.4 (suppressed vegetation)
//   - BSI > 0 (exposed soil)
//   - NDBI > -0.1 (built-up or bare signal)
//   - slope > 10 degrees (excavated walls)
//   - depth > 20 m below the 95th percentile elevation
//
// Every constant is a field of Params so that other sensors and sites can be
// tuned without code changes.
//
// # Errors
//
// Input problems are reported before any data is read (ErrInvalidROI,
// ErrInvalidDateRange, ErrInvalidParams). Missing data surfaces as
// scene.ErrNoImagery or terrain.ErrNoCoverage, and best-effort pixel limits
// produce Warnings instead of failures.
package detection
