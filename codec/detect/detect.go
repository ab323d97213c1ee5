/*
NAME
  detect.go - energy threshold detector emitting an Octv sparse stream from
  PCM audio.

AUTHORS
  Trek Hopton <trek@ausocean.org>
  David Sutton <davidsutton@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package detect provides an energy threshold detector that consumes PCM
// audio and produces an Octv sparse stream: a sentinel and configuration
// up front, coarse and fine time cursors as needed, a tier-0 feature
// record for each audio window whose energy stands out, and a terminator.
package detect

import (
	"io"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/ausocean/octv/codec/pcm"
	"github.com/ausocean/octv/container/octv"
)

// Config holds the detector parameters.
type Config struct {
	SampleRate    int     // Audio rate in Hz.
	Channels      int     // Channels of the source audio.
	WindowFrames  int     // Frames per detection window.
	Threshold     float64 // Multiples of stddev above mean window RMS.
	LowPassCutoff float64 // Band-limit before detection, in Hz. Zero disables.
	DetectorIndex uint16
	DetectorType  uint8 // Tier-0 feature type code.
}

// Validation errors.
var (
	errBadRate    = errors.New("sample rate must be positive")
	errBadWindow  = errors.New("window must be a positive number of frames")
	errBadType    = errors.New("detector type must be in the tier-0 feature range")
	errNotStarted = errors.New("detector has not been started")
)

// Detector turns PCM audio written to it into Octv records on its
// destination. Windows are scored by RMS energy against an adaptive
// threshold of mean + Threshold*stddev over the windows of each Write.
type Detector struct {
	cfg Config
	enc *octv.Encoder
	lp  pcm.AudioFilter

	started    bool
	frameIndex uint64 // Frames consumed so far.
	momentHi   uint32
	momentSent bool
	pending    []float64 // Partial window carried between writes.
}

// New returns a Detector writing an Octv stream to dst.
func New(dst io.Writer, cfg Config) (*Detector, error) {
	if cfg.SampleRate <= 0 {
		return nil, errBadRate
	}
	if cfg.WindowFrames <= 0 {
		return nil, errBadWindow
	}
	if cfg.DetectorType < octv.Feature0Lower || cfg.DetectorType >= octv.Feature0Upper {
		return nil, errBadType
	}
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = 2
	}

	d := &Detector{cfg: cfg}
	if cfg.LowPassCutoff > 0 {
		info := pcm.BufferFormat{SFormat: pcm.S16_LE, Rate: uint(cfg.SampleRate), Channels: 1}
		lp, err := pcm.NewLowPass(cfg.LowPassCutoff, info, 256)
		if err != nil {
			return nil, errors.Wrap(err, "could not create lowpass filter")
		}
		d.lp = lp
	}
	d.enc = octv.NewEncoder(dst)
	return d, nil
}

// Start writes the stream preamble: sentinel, audio config and detector
// config.
func (d *Detector) Start() error {
	err := d.enc.Encode(
		octv.Sentinel(),
		octv.Config{
			Type:             octv.TypeConfig,
			Version:          octv.Version,
			NumAudioChannels: uint8(d.cfg.Channels),
			AudioSampleRate:  int32(d.cfg.SampleRate),
		},
		octv.ConfigFeature{
			Type:             octv.TypeConfigFeature,
			MaxAbsLevelInt8:  math.MaxInt8,
			MaxAbsLevelInt16: math.MaxInt16,
			MaxNumDetectors:  1,
		},
	)
	if err != nil {
		return errors.Wrap(err, "could not write stream preamble")
	}
	d.started = true
	return nil
}

// Write scores the audio in buf window by window and emits a feature
// record for each window whose RMS exceeds the adaptive threshold. Stereo
// audio is folded to its left channel first. A trailing partial window is
// carried over to the next write.
func (d *Detector) Write(buf pcm.Buffer) error {
	if !d.started {
		return errNotStarted
	}
	if int(buf.Format.Rate) != d.cfg.SampleRate {
		return errors.Errorf("buffer rate %d does not match configured rate %d", buf.Format.Rate, d.cfg.SampleRate)
	}

	mono, err := pcm.StereoToMono(buf)
	if err != nil {
		return errors.Wrap(err, "could not fold to mono")
	}
	if d.lp != nil {
		filtered, err := d.lp.Apply(mono)
		if err != nil {
			return errors.Wrap(err, "could not filter audio")
		}
		// Fast convolution lengthens the signal by the filter tail; trim
		// back to the window grid.
		mono.Data = filtered[:len(mono.Data)]
	}

	f, err := pcm.Float64s(mono)
	if err != nil {
		return errors.Wrap(err, "could not convert samples")
	}
	d.pending = append(d.pending, f...)

	w := d.cfg.WindowFrames
	n := len(d.pending) / w
	if n == 0 {
		return nil
	}
	windows := d.pending[:n*w]

	// First pass: score every complete window.
	rms := make([]float64, n)
	for i := range rms {
		rms[i] = windowRMS(windows[i*w : (i+1)*w])
	}
	threshold := stat.Mean(rms, nil) + d.cfg.Threshold*stat.StdDev(rms, nil)

	// Second pass: emit a feature for each window above threshold.
	for i := range rms {
		if !(rms[i] > threshold) {
			d.frameIndex += uint64(w)
			continue
		}
		if err := d.emit(windows[i*w:(i+1)*w], rms[i]); err != nil {
			return err
		}
		d.frameIndex += uint64(w)
	}

	d.pending = d.pending[n*w:]
	return nil
}

// Close terminates the stream. Any trailing partial window is discarded.
func (d *Detector) Close() error {
	if !d.started {
		return errNotStarted
	}
	return errors.Wrap(d.enc.Encode(octv.End()), "could not write stream terminator")
}

// emit writes the time cursors and feature record for a detected window
// starting at the current frame index.
func (d *Detector) emit(window []float64, rms float64) error {
	hi := uint32(d.frameIndex >> 16)
	if !d.momentSent || hi != d.momentHi {
		err := d.enc.Encode(octv.Moment{Type: octv.TypeMoment, AudioFrameIndexHiBytes: hi})
		if err != nil {
			return errors.Wrap(err, "could not write moment")
		}
		d.momentHi = hi
		d.momentSent = true
	}

	err := d.enc.Encode(octv.Tick{
		Type:                   octv.TypeTick,
		AudioChannel:           0,
		AudioFrameIndexLoBytes: uint16(d.frameIndex),
		AudioSample:            float32(window[0]),
	})
	if err != nil {
		return errors.Wrap(err, "could not write tick")
	}

	peak, peakOff := windowPeak(window)
	if peakOff > math.MaxInt8 {
		peakOff = math.MaxInt8
	}
	err = d.enc.Encode(octv.Feature{
		Type:          d.cfg.DetectorType,
		FrameOffset:   int8(peakOff),
		DetectorIndex: d.cfg.DetectorIndex,
		Level0Int8: [4]int8{
			quantize(peak),
			quantize(rms),
			quantize(crossingRate(window)),
			0,
		},
	})
	return errors.Wrap(err, "could not write feature")
}

// windowRMS returns the root mean square of the window's samples.
func windowRMS(w []float64) float64 {
	var sum float64
	for _, v := range w {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(w)))
}

// windowPeak returns the absolute peak value of the window and its offset
// in frames.
func windowPeak(w []float64) (float64, int) {
	var peak float64
	var off int
	for i, v := range w {
		if a := math.Abs(v); a > peak {
			peak = a
			off = i
		}
	}
	return peak, off
}

// crossingRate returns the number of sign changes between successive
// samples divided by the number of samples in the window.
func crossingRate(w []float64) float64 {
	var n int
	for i := 1; i < len(w); i++ {
		if (w[i] >= 0) != (w[i-1] >= 0) {
			n++
		}
	}
	return float64(n) / float64(len(w))
}

// quantize maps v in [0, 1] to an int8 level.
func quantize(v float64) int8 {
	if v > 1 {
		v = 1
	} else if v < 0 {
		v = 0
	}
	return int8(v * math.MaxInt8)
}
