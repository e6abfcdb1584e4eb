// Command ardtplot renders one trial's raw and preprocessed signal as a PNG,
// to eyeball what a preprocessing chain does to a recording before training
// on it.
//
// Usage:
//
//	ardtplot -dataset dreamer -signal ECG -participant 1 -media 4 -out trial.png
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/affectsai/ardt/config"
	"github.com/affectsai/ardt/datasets"
	"github.com/affectsai/ardt/datasets/dreamer"
	"github.com/affectsai/ardt/datasets/edfset"
	"github.com/affectsai/ardt/logging"
	"github.com/affectsai/ardt/preprocessors"
)

type options struct {
	configPath  string
	dataset     string
	signal      string
	participant int
	media       int
	channel     int
	targetRate  int
	maxSamples  int
	out         string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to the ardt config file (defaults to $ARDT_CONFIG_PATH, then ./ardt_config.yaml)")
	flag.StringVar(&opts.dataset, "dataset", "dreamer", "dataset to plot from: dreamer or edf")
	flag.StringVar(&opts.signal, "signal", "ECG", "signal type to plot")
	flag.IntVar(&opts.participant, "participant", 0, "participant id to plot (0 = first with the signal)")
	flag.IntVar(&opts.media, "media", 0, "media id to plot (0 = first with the signal)")
	flag.IntVar(&opts.channel, "channel", 0, "channel index to plot")
	flag.IntVar(&opts.targetRate, "target-rate", 128, "median low-pass target sample rate in Hz (0 = plot the raw signal only)")
	flag.IntVar(&opts.maxSamples, "max-samples", 0, "plot at most this many samples per series (0 = all)")
	flag.StringVar(&opts.out, "out", "trial.png", "output PNG path")
	flag.Parse()

	if err := run(opts); err != nil {
		slog.Error("ardtplot failed", "error", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	log := logging.Setup(cfg.Logging)

	ds, err := openDataset(cfg, opts)
	if err != nil {
		return err
	}

	rate := 0
	if md, err := ds.GetSignalMetadata(opts.signal); err == nil {
		rate = md.SampleRate
	}
	processedRate := rate
	if opts.targetRate > 0 && rate > 0 {
		ds.SetSignalPreprocessor(opts.signal, preprocessors.NewMedianFilterLowPass(rate, opts.targetRate))
		processedRate = opts.targetRate
	}

	if err := ds.LoadTrials(); err != nil {
		return err
	}
	trial, err := pickTrial(ds, opts)
	if err != nil {
		return err
	}
	log.Info("plotting trial",
		"dataset", ds.Name(),
		"participant", trial.ParticipantID(),
		"media", trial.MediaID(),
		"signal", opts.signal)

	raw, err := trial.LoadSignalData(opts.signal)
	if err != nil {
		return err
	}
	processed, err := trial.LoadPreprocessedSignalData(opts.signal)
	if err != nil {
		return err
	}
	if opts.channel < 0 || opts.channel >= len(raw) || opts.channel >= len(processed) {
		return fmt.Errorf("channel %d out of range: raw has %d channels, preprocessed has %d",
			opts.channel, len(raw), len(processed))
	}

	title := fmt.Sprintf("%s %s ch%d: participant %d media %d",
		ds.Name(), opts.signal, opts.channel, trial.ParticipantID(), trial.MediaID())
	if err := renderPlot(opts.out, title,
		series(raw[opts.channel], rate, opts.maxSamples),
		series(processed[opts.channel], processedRate, opts.maxSamples),
		rate > 0); err != nil {
		return err
	}

	log.Info("wrote plot", "path", opts.out)
	return nil
}

func openDataset(cfg *config.Config, opts options) (datasets.Dataset, error) {
	switch opts.dataset {
	case "dreamer":
		return dreamer.New(cfg, opts.signal)
	case "edf":
		return edfset.New(cfg, opts.signal)
	default:
		return nil, fmt.Errorf("unknown dataset %q: want dreamer or edf", opts.dataset)
	}
}

// pickTrial returns the first trial matching the participant/media flags
// that carries the requested signal.
func pickTrial(ds datasets.Dataset, opts options) (*datasets.Trial, error) {
	for _, trial := range ds.Trials() {
		if opts.participant != 0 && trial.ParticipantID() != opts.participant {
			continue
		}
		if opts.media != 0 && trial.MediaID() != opts.media {
			continue
		}
		if !trial.HasSignal(opts.signal) {
			continue
		}
		return trial, nil
	}
	return nil, fmt.Errorf("no trial with %s for participant %d media %d in %s",
		opts.signal, opts.participant, opts.media, ds.Name())
}

// series converts one channel to plot points, with X in seconds when the
// sample rate is known and in samples otherwise.
func series(samples []float64, rate, maxSamples int) plotter.XYs {
	if maxSamples > 0 && len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	xys := make(plotter.XYs, len(samples))
	for i, v := range samples {
		x := float64(i)
		if rate > 0 {
			x /= float64(rate)
		}
		xys[i] = plotter.XY{X: x, Y: v}
	}
	return xys
}

func renderPlot(out, title string, raw, processed plotter.XYs, inSeconds bool) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "sample"
	if inSeconds {
		p.X.Label.Text = "seconds"
	}
	p.Y.Label.Text = "amplitude"
	p.Add(plotter.NewGrid())

	rawLine, err := plotter.NewLine(raw)
	if err != nil {
		return err
	}
	rawLine.Color = color.RGBA{R: 130, G: 130, B: 130, A: 200}
	rawLine.Width = vg.Points(0.8)
	p.Add(rawLine)
	p.Legend.Add("raw", rawLine)

	procLine, err := plotter.NewLine(processed)
	if err != nil {
		return err
	}
	procLine.Color = color.RGBA{R: 20, G: 80, B: 200, A: 255}
	procLine.Width = vg.Points(1.2)
	p.Add(procLine)
	p.Legend.Add("preprocessed", procLine)

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	return p.Save(10*vg.Inch, 4*vg.Inch, out)
}
