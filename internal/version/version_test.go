package version

import "testing"

func TestString(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "v1.2.3"
	if got := String("astlist"); got != "astlist v1.2.3 (unknown, built unknown)" {
		t.Errorf("unexpected version string %q", got)
	}
}
