package monitoring

import (
	"fmt"
	"testing"
)

// captureLogs swaps Logf for a recorder for the duration of the test.
func captureLogs(t *testing.T) *[]string {
	t.Helper()
	original := Logf
	t.Cleanup(func() { Logf = original })
	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	return &lines
}

func TestSetLogger(t *testing.T) {
	lines := captureLogs(t)

	Logf("hello %d", 1)
	if len(*lines) != 1 || (*lines)[0] != "hello 1" {
		t.Fatalf("custom logger not used, got %v", *lines)
	}

	SetLogger(nil)
	Logf("dropped")
	if len(*lines) != 1 {
		t.Errorf("no-op logger should not reach the recorder, got %v", *lines)
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
}

func TestProgress_ReportsAtBoundaries(t *testing.T) {
	lines := captureLogs(t)

	p := NewProgress("bins", 4)
	p.Step = 50
	for i := 0; i < 4; i++ {
		p.Add(1)
	}

	// 25% (first report), 50%, 100%
	if len(*lines) != 3 {
		t.Fatalf("expected 3 progress lines, got %d: %v", len(*lines), *lines)
	}
	if (*lines)[2] != "bins: 4/4 (100%)" {
		t.Errorf("last line = %q", (*lines)[2])
	}
	if p.Done() != 4 {
		t.Errorf("Done() = %d, want 4", p.Done())
	}
}

func TestProgress_NilAndEmpty(t *testing.T) {
	lines := captureLogs(t)

	var p *Progress
	p.Add(3)
	if p.Done() != 0 {
		t.Errorf("nil progress Done() = %d", p.Done())
	}

	empty := NewProgress("nothing", 0)
	empty.Add(1)
	if len(*lines) != 0 {
		t.Errorf("empty progress should not log, got %v", *lines)
	}
}

func TestProgress_ClampsOverrun(t *testing.T) {
	captureLogs(t)
	p := NewProgress("x", 2)
	p.Add(5)
	if p.Done() != 2 {
		t.Errorf("Done() = %d, want 2", p.Done())
	}
}
