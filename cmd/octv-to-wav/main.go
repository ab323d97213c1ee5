/*
NAME
  octv-to-wav - extract tick audio from an Octv stream into a WAV file.

DESCRIPTION
  octv-to-wav reads an Octv sparse stream and writes the audio samples
  carried by its Tick records to a 16-bit WAV file, using the sample rate
  of the stream's audio configuration. The result is a sparse click-track
  view of the underlying audio, useful for a quick listen to what the
  detectors were reacting to.

AUTHORS
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
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/octv/container/octv"
)

// Logging configuration.
const (
	logPath      = "/var/log/octv/octv-to-wav.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

const (
	wavFormat   = 1
	outBitDepth = 16
)

func main() {
	var (
		inPath  = flag.String("in", "", "Octv file to read")
		outPath = flag.String("out", "ticks.wav", "WAV file to write")
	)
	flag.Parse()

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity, io.MultiWriter(fileLog, os.Stdout), logSuppress)

	if *inPath == "" {
		log.Fatal("no input file provided, check usage")
	}

	n, err := extract(*inPath, *outPath)
	if err != nil {
		log.Fatal("extraction failed", "error", err)
	}
	log.Info("wrote tick audio", "samples", n, "path", *outPath)
}

// extract parses the Octv file at inPath and writes its tick samples to a
// WAV file at outPath, returning the number of samples written.
func extract(inPath, outPath string) (int, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return 0, errors.Wrap(err, "could not open input")
	}
	defer in.Close()

	var (
		rate    int32
		samples []int
	)
	code := octv.ParseClass(in, &octv.ClassHandler{
		Config: func(c octv.Config) octv.Code {
			rate = c.AudioSampleRate
			return 0
		},
		Tick: func(t octv.Tick) octv.Code {
			v := float64(t.AudioSample)
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			samples = append(samples, int(v*math.MaxInt16))
			return 0
		},
		// Tolerate bad records; ticks are all we are after.
		Error: func(octv.Code, [octv.RecordSize]byte) octv.Code { return 0 },
	})
	if code != 0 && code != octv.ErrEOF {
		return 0, errors.Errorf("stream unreadable: code %d", int(code))
	}
	if rate == 0 {
		return 0, errors.New("stream carries no audio config")
	}
	if len(samples) == 0 {
		return 0, errors.New("stream carries no ticks")
	}

	out, err := os.Create(outPath)
	if err != nil {
		return 0, errors.Wrap(err, "could not create output")
	}
	defer out.Close()

	enc := wav.NewEncoder(out, int(rate), outBitDepth, 1, wavFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: int(rate)},
		SourceBitDepth: outBitDepth,
		Data:           samples,
	}
	if err := enc.Write(buf); err != nil {
		return 0, errors.Wrap(err, "could not encode WAV")
	}
	if err := enc.Close(); err != nil {
		return 0, errors.Wrap(err, "could not finalise WAV")
	}
	return len(samples), nil
}
