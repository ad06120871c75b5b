// Package densitymap models a tiled sky map where every tile carries a
// scalar density (stellar counts or background level) and a right
// ascension / declination bounding box.
//
// A Map can be binned into N linear density ranges. BinnedMap partitions
// the tiles by range so that artificial stars can be spread evenly over
// regions of similar density:
//
//	bm, err := m.Binned(8)
//	for bin, tiles := range bm.TilesForEachBin() {
//		...
//	}
//
// Maps are built from text tables, from a catalog of source positions
// (NewStellarDensityMap) or loaded from the SQLite store in internal/db.
package densitymap
