// Package export writes detected disturbance polygons to persistent
// destinations.
//
// A Sink knows how to write one FeatureCollection to one kind of
// destination: a GeoJSON file, a SQLite feature table, or a PostGIS table.
// The Exporter runs sinks on a small worker pool so callers can submit an
// export and return immediately; job progress is tracked in memory and,
// when a Ledger is attached, in a SQLite table that survives restarts.
//
// Sink failures are reported through the job status. Jobs are never retried.
package export
