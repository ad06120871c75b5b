package extinction

import (
	"fmt"
	"math"
)

// CCM89 is the Milky Way extinction law of Cardelli, Clayton & Mathis (1989),
// valid between 1000 Angstrom and 3.3 micron.
//
// Parameters: Av (default 1), Rv (default 3.1) and Alambda. With Alambda
// set to 1 the result is A(λ) in magnitudes; otherwise it is the optical
// depth τ(λ) = A(λ)·ln(10)/2.5, so exp(-τ) is the transmitted fraction.
type CCM89 struct{}

// Name returns the law name recorded in grid headers.
func (CCM89) Name() string { return "CCM89" }

// Function evaluates the curve at every wavelength of lamb.
func (CCM89) Function(lamb []float64, params map[string]float64) ([]float64, error) {
	av := param(params, "Av", 1)
	rv := param(params, "Rv", 3.1)
	if rv <= 0 {
		return nil, fmt.Errorf("CCM89: Rv must be positive, got %g", rv)
	}
	scale := math.Ln10 / 2.5
	if param(params, "Alambda", 0) != 0 {
		scale = 1
	}

	out := make([]float64, len(lamb))
	for i, l := range lamb {
		if l <= 0 {
			return nil, fmt.Errorf("%w: %g", ErrOutOfRange, l)
		}
		x := 1e4 / l
		a, b, err := ccmCoefficients(x)
		if err != nil {
			return nil, fmt.Errorf("%w: %g Angstrom", err, l)
		}
		out[i] = (a + b/rv) * av * scale
	}
	return out, nil
}

// ccmCoefficients returns a(x) and b(x) for x in inverse microns.
func ccmCoefficients(x float64) (a, b float64, err error) {
	switch {
	case x < 0.3 || x > 10:
		return 0, 0, ErrOutOfRange
	case x < 1.1:
		p := math.Pow(x, 1.61)
		return 0.574 * p, -0.527 * p, nil
	case x < 3.3:
		y := x - 1.82
		a = poly(y, 1, 0.17699, -0.50447, -0.02427, 0.72085, 0.01979, -0.77530, 0.32999)
		b = poly(y, 0, 1.41338, 2.28305, 1.07233, -5.38434, -0.62251, 5.30260, -2.09002)
		return a, b, nil
	case x < 8:
		var fa, fb float64
		if x >= 5.9 {
			d := x - 5.9
			fa = -0.04473*d*d - 0.009779*d*d*d
			fb = 0.2130*d*d + 0.1207*d*d*d
		}
		a = 1.752 - 0.316*x - 0.104/((x-4.67)*(x-4.67)+0.341) + fa
		b = -3.090 + 1.825*x + 1.206/((x-4.62)*(x-4.62)+0.263) + fb
		return a, b, nil
	default:
		y := x - 8
		a = poly(y, -1.073, -0.628, 0.137, -0.070)
		b = poly(y, 13.670, 4.257, -0.420, 0.374)
		return a, b, nil
	}
}

// poly evaluates c[0] + c[1]·y + c[2]·y² + ...
func poly(y float64, c ...float64) float64 {
	v := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		v = v*y + c[i]
	}
	return v
}
