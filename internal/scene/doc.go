// Package scene turns an archive of multispectral acquisitions into a single
// cloud-free reflectance composite.
//
// An Archive answers catalogue queries (collection, region, date range,
// cloud-cover ceiling) and loads scenes on demand. The Preprocessor masks
// cloud and cloud-shadow pixels using the product's quality band, rescales
// digital numbers to surface reflectance and takes the per-pixel median of
// the valid observations.
//
// Two archives are provided: MemoryArchive for tests and embedding, and
// DirArchive, which reads a directory of single-band GeoTIFF-style rasters
// described by a manifest.json and keeps decoded scenes in a cache that is
// invalidated when files change on disk.
package scene
