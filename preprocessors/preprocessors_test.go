package preprocessors

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/affectsai/ardt/ardterr"
)

// recorder builds a Func node that appends tag to *log and passes the
// signal through untouched.
func recorder(log *[]string, tag string) *Func {
	return NewFunc(func(signal [][]float64) ([][]float64, error) {
		*log = append(*log, tag)
		return signal, nil
	})
}

func sineChannel(freq, fs float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / fs)
	}
	return out
}

func rms(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func TestChainRunsParentSelfChild(t *testing.T) {
	var log []string
	self := recorder(&log, "self")
	self.Parent = recorder(&log, "parent")
	self.Child = recorder(&log, "child")

	_, err := self.Process([][]float64{{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, []string{"parent", "self", "child"}, log)
}

func TestChainAssembledFromEitherEnd(t *testing.T) {
	var log []string
	root := recorder(&log, "root")
	mid := recorder(&log, "mid")
	leaf := recorder(&log, "leaf")

	// Root-first: each node names its child.
	root.Child = mid
	mid.Child = leaf
	_, err := root.Process([][]float64{{1}})
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "mid", "leaf"}, log)

	// Leaf-first: the leaf names its parent and is invoked directly.
	log = nil
	root.Child = nil
	mid.Child = nil
	mid.Parent = root
	leaf.Parent = mid
	_, err = leaf.Process([][]float64{{1}})
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "mid", "leaf"}, log)
}

func TestChainDivergingChildren(t *testing.T) {
	var log []string
	shared := recorder(&log, "shared")

	a := recorder(&log, "a")
	a.Parent = shared
	b := recorder(&log, "b")
	b.Parent = shared

	_, err := a.Process([][]float64{{1}})
	require.NoError(t, err)
	_, err = b.Process([][]float64{{1}})
	require.NoError(t, err)
	assert.Equal(t, []string{"shared", "a", "shared", "b"}, log)
}

func TestChannelSelectorDefaultDropsFirstRow(t *testing.T) {
	signal := make([][]float64, 5)
	for c := range signal {
		signal[c] = []float64{float64(c), float64(c) * 10}
	}

	out, err := NewChannelSelector().Process(signal)
	require.NoError(t, err)
	require.Len(t, out, 4)
	for c := 0; c < 4; c++ {
		assert.Equal(t, signal[c+1], out[c])
	}
}

func TestChannelSelectorRetainsListed(t *testing.T) {
	signal := [][]float64{{0, 0}, {1, 1}, {2, 2}, {3, 3}}

	out, err := NewChannelSelector(2, 0).Process(signal)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []float64{2, 2}, out[0])
	assert.Equal(t, []float64{0, 0}, out[1])
}

func TestChannelSelectorOutOfRange(t *testing.T) {
	_, err := NewChannelSelector(3).Process([][]float64{{1}, {2}})
	require.Error(t, err)
	assert.True(t, ardterr.IsKind(err, ardterr.KindInvalidArgument))
}

func TestChannelSelectorDoesNotMutateInput(t *testing.T) {
	signal := [][]float64{{0}, {7}}
	out, err := NewChannelSelector(1).Process(signal)
	require.NoError(t, err)

	out[0][0] = 99
	assert.Equal(t, 7.0, signal[1][0])
}

func TestFixedDurationTrimsToTrailingWindow(t *testing.T) {
	channel := make([]float64, 100)
	for i := range channel {
		channel[i] = float64(i)
	}

	out, err := NewFixedDuration(2, 10, 0).Process([][]float64{channel})
	require.NoError(t, err)
	require.Len(t, out[0], 20)
	assert.Equal(t, 80.0, out[0][0])
	assert.Equal(t, 99.0, out[0][19])
}

func TestFixedDurationFrontPadsShortSignals(t *testing.T) {
	out, err := NewFixedDuration(1, 10, -1).Process([][]float64{{5, 6, 7}})
	require.NoError(t, err)
	require.Len(t, out[0], 10)
	for i := 0; i < 7; i++ {
		assert.Equal(t, -1.0, out[0][i])
	}
	assert.Equal(t, []float64{5, 6, 7}, out[0][7:])
}

func TestFixedDurationTargetShape(t *testing.T) {
	signal := [][]float64{sineChannel(1, 256, 4000), sineChannel(2, 256, 4000)}

	out, err := NewFixedDuration(45, 256, 0).Process(signal)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, row := range out {
		assert.Len(t, row, 45*256)
	}
}

func TestFixedDurationRejectsBadParams(t *testing.T) {
	_, err := NewFixedDuration(0, 256, 0).Process([][]float64{{1}})
	require.Error(t, err)
	assert.True(t, ardterr.IsKind(err, ardterr.KindInvalidArgument))
}

func TestMedianWindowIsOdd(t *testing.T) {
	// 600 ms at 256 Hz is 153.6 samples, rounded to 154, forced odd.
	assert.Equal(t, 155, medianWindow(600, 256))
	// 200 ms at 256 Hz is 51.2 samples, rounded to 51, already odd.
	assert.Equal(t, 51, medianWindow(200, 256))
	assert.Equal(t, 1, medianWindow(1, 100))
}

func TestMedianFilterConstantPassthrough(t *testing.T) {
	x := []float64{4, 4, 4, 4, 4, 4, 4}
	out, err := medianFilter1D(x, 3)
	require.NoError(t, err)
	assert.Equal(t, x, out)
}

func TestMedianFilterWindowTooLong(t *testing.T) {
	_, err := medianFilter1D([]float64{1, 2, 3}, 5)
	require.Error(t, err)
	assert.True(t, ardterr.IsKind(err, ardterr.KindPreconditionViolated))
}

func TestMedianFilterLowPassShortSignalFails(t *testing.T) {
	// The 600 ms window at 256 Hz spans 155 samples; a 100-sample signal
	// cannot satisfy it.
	node := NewMedianFilterLowPass(256, 256)
	_, err := node.Process([][]float64{make([]float64, 100)})
	require.Error(t, err)
	assert.True(t, ardterr.IsKind(err, ardterr.KindPreconditionViolated))
}

func TestMedianFilterLowPassRemovesOffsetAndNoise(t *testing.T) {
	const fs = 256
	n := 4 * fs
	clean := sineChannel(5, fs, n)
	dirty := make([]float64, n)
	for i := range dirty {
		dirty[i] = clean[i] + 2.0 + 0.5*math.Sin(2*math.Pi*100*float64(i)/fs)
	}

	out, err := NewMedianFilterLowPass(fs, fs).Process([][]float64{dirty})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out[0], n)

	diff := make([]float64, 0, n/2)
	for i := n / 4; i < 3*n/4; i++ {
		diff = append(diff, out[0][i]-clean[i])
	}
	assert.Less(t, rms(diff), 0.15, "cleaned signal should track the underlying sine")
}

func TestMedianFilterLowPassAttenuatesOutOfBand(t *testing.T) {
	const fs = 256
	n := 4 * fs
	highFreq := sineChannel(100, fs, n)

	out, err := NewMedianFilterLowPass(fs, fs).Process([][]float64{highFreq})
	require.NoError(t, err)

	middle := out[0][n/4 : 3*n/4]
	assert.Less(t, rms(middle), 0.05*rms(highFreq), "100 Hz content should not survive a 35 Hz low-pass")
}

func TestMedianFilterLowPassZeroPhase(t *testing.T) {
	const fs = 256
	n := 4 * fs
	in := sineChannel(5, fs, n)

	out, err := NewMedianFilterLowPass(fs, fs).Process([][]float64{in})
	require.NoError(t, err)

	peakIn, peakOut := argmaxRange(in, n/4, 3*n/4), argmaxRange(out[0], n/4, 3*n/4)
	assert.InDelta(t, peakIn, peakOut, 2, "forward-backward filtering must not shift peaks")
}

func argmaxRange(x []float64, lo, hi int) int {
	best := lo
	for i := lo; i < hi; i++ {
		if x[i] > x[best] {
			best = i
		}
	}
	return best
}

func TestMedianFilterLowPassResamples(t *testing.T) {
	const fs, target = 256, 128
	n := 4 * fs
	in := sineChannel(5, fs, n)

	out, err := NewMedianFilterLowPass(fs, target).Process([][]float64{in})
	require.NoError(t, err)
	require.Len(t, out[0], n/2)

	want := sineChannel(5, target, n/2)
	diff := make([]float64, 0, n/4)
	for i := n / 8; i < 3*n/8; i++ {
		diff = append(diff, out[0][i]-want[i])
	}
	assert.Less(t, rms(diff), 0.15)
}

func TestMedianFilterLowPassRejectsLowRates(t *testing.T) {
	node := NewMedianFilterLowPass(60, 60)
	_, err := node.Process([][]float64{make([]float64, 600)})
	require.Error(t, err)
	assert.True(t, ardterr.IsKind(err, ardterr.KindInvalidArgument))
}

func TestMedianFilterLowPassEmptySignal(t *testing.T) {
	out, err := NewMedianFilterLowPass(256, 256).Process([][]float64{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestResampleLengthArithmetic(t *testing.T) {
	// 256 -> 300 reduces to up=75, down=64.
	out := resampleRational(make([]float64, 1024), 256, 300)
	assert.Len(t, out, 1200)

	// Downsampling halves, rounding up.
	out = resampleRational(make([]float64, 1025), 256, 128)
	assert.Len(t, out, 513)

	// Round trip restores the original count.
	down := resampleRational(make([]float64, 1024), 256, 128)
	back := resampleRational(down, 128, 256)
	assert.Len(t, back, 1024)
}

func TestResamplePreservesDC(t *testing.T) {
	x := make([]float64, 1024)
	for i := range x {
		x[i] = 1.0
	}
	out := resampleRational(x, 256, 128)
	for i := len(out) / 4; i < 3*len(out)/4; i++ {
		assert.InDelta(t, 1.0, out[i], 0.01)
	}
}

func TestFuncNodeError(t *testing.T) {
	boom := NewFunc(func([][]float64) ([][]float64, error) {
		return nil, ardterr.PreconditionViolatedf("boom")
	})
	next := recorderNoop()
	boom.Child = next

	_, err := boom.Process([][]float64{{1}})
	require.Error(t, err)
	assert.True(t, ardterr.IsKind(err, ardterr.KindPreconditionViolated))
}

func recorderNoop() *Func {
	return NewFunc(func(signal [][]float64) ([][]float64, error) {
		return signal, nil
	})
}
