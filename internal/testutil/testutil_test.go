package testutil

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestFITSHeader_Padding(t *testing.T) {
	data := FITSHeader([]string{"SIMPLE  =                    T"})
	if len(data)%fitsBlock != 0 {
		t.Fatalf("header length %d is not a multiple of %d", len(data), fitsBlock)
	}
	if !strings.HasPrefix(string(data[80:]), "END ") {
		t.Errorf("END card missing after first card")
	}
}

func TestTANCards(t *testing.T) {
	cards := TANCards(10, -30, 101, 201, -0.0001, 0.0001)
	if len(cards) != 11 {
		t.Fatalf("expected 11 cards, got %d", len(cards))
	}
	for _, c := range cards {
		if len(c) > 80 {
			t.Errorf("card longer than 80 chars: %q", c)
		}
	}
	if cards[5] != "CRVAL1  =                   10" {
		t.Errorf("unexpected CRVAL1 card %q", cards[5])
	}
}

func TestWriteAndReadLines(t *testing.T) {
	dir := t.TempDir()
	path := WriteFile(t, dir, "a.txt", "x y\n1 2\n\n")
	if path != filepath.Join(dir, "a.txt") {
		t.Errorf("unexpected path %s", path)
	}
	lines := ReadLines(t, path)
	if len(lines) != 2 || lines[0] != "x y" {
		t.Errorf("unexpected lines %q", lines)
	}
}
