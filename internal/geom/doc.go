// Package geom holds the vector side of the detector: the immutable region of
// interest that bounds every raster query, and area measurement for the
// polygons produced by vectorization.
//
// Geometries are paulmach/orb values. Geographic input uses lon/lat degrees
// (EPSG:4326); projected input uses the raster grid's linear unit, normally
// metres.
package geom
