// Package testutil provides shared test utilities and fixtures.
//
// This package centralises file fixtures used by the CLI and WCS tests:
// small text tables written to a temp dir and header-only FITS files.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fitsBlock is the FITS record size; headers are padded to a multiple of it.
const fitsBlock = 2880

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	AssertNoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ReadLines returns the non-empty trimmed content of path split by line.
func ReadLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	AssertNoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// FITSHeader renders header cards as a single primary HDU with no data.
func FITSHeader(cards []string) []byte {
	var b strings.Builder
	for _, c := range cards {
		fmt.Fprintf(&b, "%-80s", c)
	}
	fmt.Fprintf(&b, "%-80s", "END")
	block := b.String()
	if pad := len(block) % fitsBlock; pad != 0 {
		block += strings.Repeat(" ", fitsBlock-pad)
	}
	return []byte(block)
}

// WriteFITS writes a header-only FITS file to dir/ref.fits.
func WriteFITS(t *testing.T, dir string, cards []string) string {
	t.Helper()
	return WriteFile(t, dir, "ref.fits", string(FITSHeader(cards)))
}

// TANCards returns the primary header cards of a TAN projection with a
// diagonal CD matrix.
func TANCards(crval1, crval2, crpix1, crpix2, cdelt1, cdelt2 float64) []string {
	return []string{
		"SIMPLE  =                    T",
		"BITPIX  =                    8",
		"NAXIS   =                    0",
		"CTYPE1  = 'RA---TAN'",
		"CTYPE2  = 'DEC--TAN'",
		fmt.Sprintf("CRVAL1  = %20g", crval1),
		fmt.Sprintf("CRVAL2  = %20g", crval2),
		fmt.Sprintf("CRPIX1  = %20g", crpix1),
		fmt.Sprintf("CRPIX2  = %20g", crpix2),
		fmt.Sprintf("CD1_1   = %20g", cdelt1),
		fmt.Sprintf("CD2_2   = %20g", cdelt2),
	}
}
