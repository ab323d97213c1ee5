/*
NAME
  octv-probe - inspect Octv sparse streams.

DESCRIPTION
  octv-probe parses an Octv file and reports per-detector feature activity,
  level statistics and a spectral peek of the tick audio samples. It can
  also render a level plot, or watch a spool directory and probe each new
  stream as it lands.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"flag"
	"io"
	"math/cmplx"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/coreos/go-systemd/daemon"
	"github.com/fsnotify/fsnotify"
	"github.com/mjibson/go-dsp/fft"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/octv/container/octv"
)

// Logging configuration.
const (
	logPath      = "/var/log/octv/octv-probe.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

// detStats accumulates flat feature activity for one detector.
type detStats struct {
	count  int
	frames []float64 // Frame index of each feature.
	levels []float64 // Primary level of each feature, normalised.
}

func main() {
	var (
		inPath   = flag.String("in", "", "Octv file to probe")
		watchDir = flag.String("watch", "", "spool directory to watch for new Octv files")
		plotPath = flag.String("plot", "", "write a detector level plot to this file")
	)
	flag.Parse()

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity, io.MultiWriter(fileLog, os.Stdout), logSuppress)

	switch {
	case *watchDir != "":
		watch(*watchDir, *plotPath, log)
	case *inPath != "":
		if err := probe(*inPath, *plotPath, log); err != nil {
			log.Fatal("probe failed", "path", *inPath, "error", err)
		}
	default:
		log.Fatal("no input; need -in or -watch, check usage")
	}
}

// probe parses the Octv file at path and logs a summary of its contents.
func probe(path, plotPath string, log logging.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "could not open input")
	}
	defer f.Close()

	// First pass: record census and tick samples.
	var (
		kinds   [8]int // sentinel, end, config, configFeature, moment, tick, feature, bad
		samples []float64
		rate    int32
	)
	code := octv.ParseClass(f, &octv.ClassHandler{
		Sentinel: func(octv.Delimiter) octv.Code { kinds[0]++; return 0 },
		End:      func(octv.Delimiter) octv.Code { kinds[1]++; return 0 },
		Config: func(c octv.Config) octv.Code {
			kinds[2]++
			rate = c.AudioSampleRate
			return 0
		},
		ConfigFeature: func(octv.ConfigFeature) octv.Code { kinds[3]++; return 0 },
		Moment:        func(octv.Moment) octv.Code { kinds[4]++; return 0 },
		Tick: func(t octv.Tick) octv.Code {
			kinds[5]++
			samples = append(samples, float64(t.AudioSample))
			return 0
		},
		Feature: func(octv.Feature) octv.Code { kinds[6]++; return 0 },
		Error: func(c octv.Code, b [octv.RecordSize]byte) octv.Code {
			kinds[7]++
			log.Warning("bad record skipped", "code", int(c), "type", b[0])
			return 0
		},
	})
	if code != 0 && code != octv.ErrEOF {
		return errors.Errorf("stream unreadable: code %d", int(code))
	}
	if code == octv.ErrEOF {
		log.Warning("stream has no End record", "path", path)
	}
	log.Info("record census", "path", path,
		"sentinel", kinds[0], "end", kinds[1], "config", kinds[2], "configFeature", kinds[3],
		"moment", kinds[4], "tick", kinds[5], "feature", kinds[6], "bad", kinds[7])

	// Second pass: fold to flat features and accumulate per-detector stats.
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "could not rewind input")
	}
	stats := make(map[uint16]*detStats)
	code = octv.ParseFlat(f, &octv.FlatHandler{
		FlatFeature: func(ff octv.FlatFeature) octv.Code {
			s, ok := stats[ff.DetectorIndex]
			if !ok {
				s = &detStats{}
				stats[ff.DetectorIndex] = s
			}
			s.count++
			s.frames = append(s.frames, float64(ff.AudioFrameIndex))
			s.levels = append(s.levels, float64(ff.Level0Int8[1])/127)
			return 0
		},
		Error: func(c octv.Code, b [octv.RecordSize]byte) octv.Code {
			// Census pass already reported decode problems; here we only
			// care about grammar violations, whose records decode cleanly.
			if _, dc := octv.Decode(b[:]); c == octv.ErrValue && dc == 0 {
				log.Warning("record before prerequisites skipped")
			}
			return 0
		},
	})
	if code != 0 && code != octv.ErrEOF {
		return errors.Errorf("flat parse failed: code %d", int(code))
	}

	detectors := make([]int, 0, len(stats))
	for d := range stats {
		detectors = append(detectors, int(d))
	}
	sort.Ints(detectors)
	for _, d := range detectors {
		s := stats[uint16(d)]
		log.Info("detector summary", "detector", d, "features", s.count,
			"levelMean", stat.Mean(s.levels, nil), "levelStdDev", stat.StdDev(s.levels, nil))
	}

	if len(samples) > 1 && rate > 0 {
		peak, freq := dominant(samples, int(rate))
		log.Info("tick sample spectrum", "samples", len(samples), "dominantHz", freq, "magnitude", peak)
	}

	if plotPath != "" {
		if err := plotLevels(stats, plotPath); err != nil {
			return errors.Wrap(err, "could not plot levels")
		}
		log.Info("wrote level plot", "path", plotPath)
	}
	return nil
}

// dominant returns the magnitude and frequency of the strongest non-DC
// component of the sample sequence.
func dominant(samples []float64, rate int) (float64, float64) {
	spectrum := fft.FFTReal(samples)
	var peak float64
	var at int
	for i := 1; i < len(spectrum)/2; i++ {
		if m := cmplx.Abs(spectrum[i]); m > peak {
			peak = m
			at = i
		}
	}
	return peak, float64(at) * float64(rate) / float64(len(samples))
}

// plotLevels renders each detector's primary level against the frame index.
func plotLevels(stats map[uint16]*detStats, path string) error {
	p := plot.New()
	p.Title.Text = "Detector levels"
	p.X.Label.Text = "audio frame index"
	p.Y.Label.Text = "level"

	for d, s := range stats {
		xys := make(plotter.XYs, len(s.frames))
		for i := range s.frames {
			xys[i].X = s.frames[i]
			xys[i].Y = s.levels[i]
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		p.Add(sc)
		p.Legend.Add("detector "+strconv.Itoa(int(d)), sc)
	}
	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}

// watch probes each Octv file created under dir until interrupted.
func watch(dir, plotPath string, log logging.Logger) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Fatal("could not create watcher", "error", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		log.Fatal("could not watch directory", "dir", dir, "error", err)
	}

	// Let systemd know we are up, when run as a unit.
	daemon.SdNotify(false, daemon.SdNotifyReady)
	log.Info("watching for streams", "dir", dir)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) || filepath.Ext(ev.Name) != ".octv" {
				continue
			}
			if err := probe(ev.Name, plotPath, log); err != nil {
				log.Error("probe failed", "path", ev.Name, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Error("watcher error", "error", err)
		}
	}
}
