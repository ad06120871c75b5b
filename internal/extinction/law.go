// Package extinction provides dust extinction curves applied to model grids.
package extinction

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrOutOfRange reports wavelengths outside the range a law is defined on.
var ErrOutOfRange = errors.New("wavelength outside extinction law range")

// Law evaluates an extinction curve on a wavelength grid in Angstrom.
type Law interface {
	Name() string
	Function(lamb []float64, params map[string]float64) ([]float64, error)
}

// ErrUnknownLaw is returned by Lookup for names it does not know.
var ErrUnknownLaw = errors.New("unknown extinction law")

var laws = map[string]Law{
	"ccm89": CCM89{},
}

// Lookup returns the law registered under name, ignoring case.
func Lookup(name string) (Law, error) {
	if l, ok := laws[strings.ToLower(name)]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownLaw, name, strings.Join(Names(), ", "))
}

// Names lists the registered law names.
func Names() []string {
	names := make([]string, 0, len(laws))
	for n := range laws {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func param(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}
