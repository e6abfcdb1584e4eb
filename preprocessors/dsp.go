package preprocessors

import (
	"math"
	"sort"

	"github.com/affectsai/ardt/ardterr"
)

// medianWindow converts a window length in milliseconds to an odd sample
// count at the given rate.
func medianWindow(ms, fs int) int {
	w := int(math.Round(float64(ms) / 1000.0 * float64(fs)))
	if w%2 == 0 {
		w++
	}
	if w < 1 {
		w = 1
	}
	return w
}

// medianFilter1D runs a sliding-window median over x with reflected edges.
// The window must be odd and no longer than x.
func medianFilter1D(x []float64, window int) ([]float64, error) {
	if window > len(x) {
		return nil, ardterr.PreconditionViolatedf(
			"median window of %d samples exceeds signal length %d", window, len(x))
	}
	half := window / 2
	padded := make([]float64, 0, len(x)+2*half)
	for i := half - 1; i >= 0; i-- {
		padded = append(padded, x[i])
	}
	padded = append(padded, x...)
	for i := 0; i < half; i++ {
		padded = append(padded, x[len(x)-1-i])
	}

	out := make([]float64, len(x))
	buf := make([]float64, window)
	for i := range out {
		copy(buf, padded[i:i+window])
		sort.Float64s(buf)
		out[i] = buf[half]
	}
	return out, nil
}

// biquad is one normalized second-order filter section.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// butterLowPassSOS designs an even-order Butterworth low-pass as cascaded
// second-order sections via the bilinear transform.
func butterLowPassSOS(order int, cutoffHz, fs float64) []biquad {
	k := math.Tan(math.Pi * cutoffHz / fs)
	k2 := k * k
	sections := make([]biquad, 0, order/2)
	for i := 0; i < order/2; i++ {
		// q = 2 sin(theta) places the conjugate pole pair on the
		// Butterworth circle.
		q := 2.0 * math.Sin(math.Pi*float64(2*i+1)/float64(2*order))
		a0 := 1.0 + q*k + k2
		sections = append(sections, biquad{
			b0: k2 / a0,
			b1: 2.0 * k2 / a0,
			b2: k2 / a0,
			a1: 2.0 * (k2 - 1.0) / a0,
			a2: (1.0 - q*k + k2) / a0,
		})
	}
	return sections
}

// sosFilter applies the section cascade in direct form II transposed.
func sosFilter(sections []biquad, x []float64) []float64 {
	y := make([]float64, len(x))
	copy(y, x)
	for _, s := range sections {
		var z1, z2 float64
		for i, v := range y {
			out := s.b0*v + z1
			z1 = s.b1*v - s.a1*out + z2
			z2 = s.b2*v - s.a2*out
			y[i] = out
		}
	}
	return y
}

// filtFilt applies the cascade forward and backward for zero phase, padding
// both ends with an odd reflection to suppress edge transients.
func filtFilt(sections []biquad, x []float64) []float64 {
	if len(x) == 0 {
		return nil
	}
	padLen := 3 * (2*len(sections) + 1)
	if padLen >= len(x) {
		padLen = len(x) - 1
	}
	ext := oddExt(x, padLen)
	y := sosFilter(sections, ext)
	reverse(y)
	y = sosFilter(sections, y)
	reverse(y)
	return y[padLen : len(y)-padLen]
}

// oddExt extends x by n samples on each side, reflected through the end
// points.
func oddExt(x []float64, n int) []float64 {
	out := make([]float64, 0, len(x)+2*n)
	for i := n; i >= 1; i-- {
		out = append(out, 2*x[0]-x[i])
	}
	out = append(out, x...)
	last := len(x) - 1
	for i := 1; i <= n; i++ {
		out = append(out, 2*x[last]-x[last-i])
	}
	return out
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// resampleRational changes the sample rate of x from fs to targetFs by
// zero-stuffing with the gcd-reduced up factor, low-pass filtering with a
// Kaiser-windowed sinc, and decimating by the down factor. The output holds
// ceil(len(x)*up/down) samples.
func resampleRational(x []float64, fs, targetFs int) []float64 {
	if fs == targetFs || len(x) == 0 {
		out := make([]float64, len(x))
		copy(out, x)
		return out
	}
	g := gcd(fs, targetFs)
	up := targetFs / g
	down := fs / g

	h := resampleTaps(up, down)
	half := (len(h) - 1) / 2

	nOut := (len(x)*up + down - 1) / down
	out := make([]float64, nOut)
	for i := range out {
		// Position in the upsampled stream, shifted by the filter's
		// group delay so the output stays aligned with the input.
		t := i*down + half
		acc := 0.0
		for j := t % up; j < len(h) && j <= t; j += up {
			if k := (t - j) / up; k < len(x) {
				acc += h[j] * x[k]
			}
		}
		out[i] = acc
	}
	return out
}

// resampleTaps designs the anti-aliasing FIR for a rational rate change:
// a Kaiser-windowed sinc cut at the tighter of the two Nyquist bounds,
// scaled for unity DC gain after zero-stuffing.
func resampleTaps(up, down int) []float64 {
	maxRate := up
	if down > maxRate {
		maxRate = down
	}
	halfLen := 10 * maxRate
	n := 2*halfLen + 1
	fc := 1.0 / float64(maxRate)
	const beta = 5.0

	h := make([]float64, n)
	sum := 0.0
	for i := range h {
		m := float64(i - halfLen)
		h[i] = fc * sinc(fc*m) * kaiserWindow(beta, i, n)
		sum += h[i]
	}
	for i := range h {
		h[i] *= float64(up) / sum
	}
	return h
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// kaiserWindow evaluates the Kaiser window of length n at index i.
func kaiserWindow(beta float64, i, n int) float64 {
	r := 2.0*float64(i)/float64(n-1) - 1.0
	return besselI0(beta*math.Sqrt(1.0-r*r)) / besselI0(beta)
}

// besselI0 is the zeroth-order modified Bessel function of the first kind,
// by power series.
func besselI0(x float64) float64 {
	sum := 1.0
	term := 1.0
	half := x / 2.0
	for k := 1; k < 64; k++ {
		f := half / float64(k)
		term *= f * f
		sum += term
		if term < 1e-12*sum {
			break
		}
	}
	return sum
}
