// Package report renders diagnostic views of artificial star lists and
// density maps: a PNG scatter of the assigned positions and an HTML page
// with the density bin histogram.
package report
