// Package wcs converts between celestial coordinates and image pixels for
// reference images that use the gnomonic (TAN) projection. Pixel
// coordinates are zero-based: the centre of the first pixel is (0, 0).
package wcs

import (
	"errors"
	"fmt"
	"math"
)

const deg = math.Pi / 180

// ErrSingularMatrix is returned when the linear part of a WCS cannot be inverted.
var ErrSingularMatrix = errors.New("wcs: singular CD matrix")

// Transform converts arrays of right ascension / declination in degrees
// to zero-based pixel coordinates.
type Transform interface {
	WorldToPixel(ra, dec []float64) (x, y []float64, err error)
}

// TransformFunc adapts a function to the Transform interface.
type TransformFunc func(ra, dec []float64) (x, y []float64, err error)

// WorldToPixel calls f.
func (f TransformFunc) WorldToPixel(ra, dec []float64) ([]float64, []float64, error) {
	return f(ra, dec)
}

// TAN is a gnomonic projection with a linear CD matrix. CRPix follows the
// FITS convention and is one-based.
type TAN struct {
	CRVal [2]float64    // reference point (RA, Dec) in degrees
	CRPix [2]float64    // reference pixel, one-based
	CD    [2][2]float64 // degrees per pixel
	inv   [2][2]float64
}

// NewTAN builds a TAN projection and precomputes the inverse CD matrix.
func NewTAN(crval, crpix [2]float64, cd [2][2]float64) (*TAN, error) {
	det := cd[0][0]*cd[1][1] - cd[0][1]*cd[1][0]
	if det == 0 || math.IsNaN(det) {
		return nil, ErrSingularMatrix
	}
	t := &TAN{CRVal: crval, CRPix: crpix, CD: cd}
	t.inv = [2][2]float64{
		{cd[1][1] / det, -cd[0][1] / det},
		{-cd[1][0] / det, cd[0][0] / det},
	}
	return t, nil
}

// WorldToPixel projects each (ra, dec) onto the image plane. Points more
// than 90 degrees from the reference point have no projection and come
// back as NaN.
func (t *TAN) WorldToPixel(ra, dec []float64) ([]float64, []float64, error) {
	if t == nil {
		return nil, nil, ErrNoWCS
	}
	if len(ra) != len(dec) {
		return nil, nil, fmt.Errorf("wcs: %d ra values but %d dec values", len(ra), len(dec))
	}
	a0, d0 := t.CRVal[0]*deg, t.CRVal[1]*deg
	sinD0, cosD0 := math.Sincos(d0)

	x := make([]float64, len(ra))
	y := make([]float64, len(ra))
	for i := range ra {
		sinD, cosD := math.Sincos(dec[i] * deg)
		sinDA, cosDA := math.Sincos(ra[i]*deg - a0)

		cosc := sinD*sinD0 + cosD*cosD0*cosDA
		if cosc <= 0 {
			x[i], y[i] = math.NaN(), math.NaN()
			continue
		}
		xi := cosD * sinDA / cosc / deg
		eta := (sinD*cosD0 - cosD*sinD0*cosDA) / cosc / deg

		x[i] = t.CRPix[0] - 1 + t.inv[0][0]*xi + t.inv[0][1]*eta
		y[i] = t.CRPix[1] - 1 + t.inv[1][0]*xi + t.inv[1][1]*eta
	}
	return x, y, nil
}

// PixelToWorld is the inverse of WorldToPixel.
func (t *TAN) PixelToWorld(x, y []float64) ([]float64, []float64, error) {
	if t == nil {
		return nil, nil, ErrNoWCS
	}
	if len(x) != len(y) {
		return nil, nil, fmt.Errorf("wcs: %d x values but %d y values", len(x), len(y))
	}
	a0, d0 := t.CRVal[0]*deg, t.CRVal[1]*deg
	sinD0, cosD0 := math.Sincos(d0)

	ra := make([]float64, len(x))
	dec := make([]float64, len(x))
	for i := range x {
		dx := x[i] + 1 - t.CRPix[0]
		dy := y[i] + 1 - t.CRPix[1]
		xi := (t.CD[0][0]*dx + t.CD[0][1]*dy) * deg
		eta := (t.CD[1][0]*dx + t.CD[1][1]*dy) * deg

		den := cosD0 - eta*sinD0
		alpha := a0 + math.Atan2(xi, den)
		delta := math.Atan2(sinD0+eta*cosD0, math.Hypot(xi, den))

		ra[i] = math.Mod(alpha/deg+360, 360)
		dec[i] = delta / deg
	}
	return ra, dec, nil
}
