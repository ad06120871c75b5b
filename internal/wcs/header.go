package wcs

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/astrogo/fitsio"
)

// ErrNoWCS is returned when a header lacks the reference point keywords.
var ErrNoWCS = errors.New("wcs: header has no celestial WCS")

// FromHeader builds a TAN projection from FITS header keywords. The linear
// part comes from CDi_j when any is present, else from PCi_j scaled by
// CDELTi, else from CDELTi with an optional CROTA2 rotation.
func FromHeader(h map[string]float64) (*TAN, error) {
	for _, k := range []string{"CRVAL1", "CRVAL2", "CRPIX1", "CRPIX2"} {
		if _, ok := h[k]; !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrNoWCS, k)
		}
	}
	crval := [2]float64{h["CRVAL1"], h["CRVAL2"]}
	crpix := [2]float64{h["CRPIX1"], h["CRPIX2"]}

	var cd [2][2]float64
	switch {
	case hasAny(h, "CD1_1", "CD1_2", "CD2_1", "CD2_2"):
		cd = [2][2]float64{{h["CD1_1"], h["CD1_2"]}, {h["CD2_1"], h["CD2_2"]}}
	case hasAny(h, "PC1_1", "PC1_2", "PC2_1", "PC2_2"):
		cdelt1, cdelt2 := valueOr(h, "CDELT1", 1), valueOr(h, "CDELT2", 1)
		cd = [2][2]float64{
			{cdelt1 * valueOr(h, "PC1_1", 1), cdelt1 * h["PC1_2"]},
			{cdelt2 * h["PC2_1"], cdelt2 * valueOr(h, "PC2_2", 1)},
		}
	default:
		cdelt1, cdelt2 := h["CDELT1"], h["CDELT2"]
		sinR, cosR := math.Sincos(h["CROTA2"] * deg)
		cd = [2][2]float64{
			{cdelt1 * cosR, -cdelt2 * sinR},
			{cdelt1 * sinR, cdelt2 * cosR},
		}
	}
	return NewTAN(crval, crpix, cd)
}

func hasAny(h map[string]float64, keys ...string) bool {
	for _, k := range keys {
		if _, ok := h[k]; ok {
			return true
		}
	}
	return false
}

func valueOr(h map[string]float64, key string, def float64) float64 {
	if v, ok := h[key]; ok {
		return v
	}
	return def
}

// FromFITS reads the WCS of a reference image. The first extension is
// preferred when it carries WCS keywords (drizzled HST products keep the
// science array there); otherwise the first HDU with a WCS is used.
func FromFITS(path string) (*TAN, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference image: %w", err)
	}
	defer f.Close()

	ff, err := fitsio.Open(f)
	if err != nil {
		return nil, fmt.Errorf("read reference image %s: %w", path, err)
	}
	defer ff.Close()

	hdus := ff.HDUs()
	order := make([]int, 0, len(hdus))
	if len(hdus) > 1 {
		order = append(order, 1)
	}
	for i := range hdus {
		if i != 1 {
			order = append(order, i)
		}
	}

	for _, i := range order {
		hdr := hdus[i].Header()
		if hdr.Get("CRVAL1") == nil {
			continue
		}
		if c := hdr.Get("CTYPE1"); c != nil {
			if s, ok := c.Value.(string); ok && s != "" && !strings.Contains(s, "TAN") {
				return nil, fmt.Errorf("wcs: unsupported projection %q in HDU %d", s, i)
			}
		}
		keys := make(map[string]float64)
		for _, k := range hdr.Keys() {
			if v, ok := numeric(hdr.Get(k).Value); ok {
				keys[k] = v
			}
		}
		return FromHeader(keys)
	}
	return nil, fmt.Errorf("%w in %s", ErrNoWCS, path)
}

func numeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
