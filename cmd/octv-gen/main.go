/*
NAME
  octv-gen - generate an Octv sparse stream from recorded audio.

DESCRIPTION
  octv-gen decodes a WAV or FLAC recording, runs the energy threshold
  detector over it and writes the resulting Octv sparse stream. It is the
  file-based counterpart of a live detector on a hydrophone rig.

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

package main

import (
	"encoding/binary"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/pkg/errors"

	"github.com/ausocean/client/pi/smartlogger"
	"github.com/ausocean/utils/logging"

	"github.com/ausocean/octv/codec/detect"
	"github.com/ausocean/octv/codec/pcm"
)

// Logging configuration.
const (
	logPath      = "/var/log/octv"
	logVerbosity = logging.Info
)

const inBitDepth = 16

var log logging.Logger

func main() {
	var (
		inPath    = flag.String("in", "", "WAV or FLAC file to read")
		outPath   = flag.String("out", "out.octv", "Octv file to write")
		window    = flag.Int("window", 256, "detection window in frames")
		threshold = flag.Float64("threshold", 2, "detection threshold in stddevs above mean window RMS")
		cutoff    = flag.Float64("cutoff", 0, "lowpass cutoff in Hz applied before detection, 0 to disable")
		detType   = flag.Int("type", 0x05, "tier-0 detector type code")
		detIndex  = flag.Int("index", 0, "detector index")
	)
	flag.Parse()

	logSender := smartlogger.New(logPath)
	log = logging.New(logVerbosity, &logSender.LogRoller, true)
	log.Info("octv-gen: logger initialised")

	if *inPath == "" {
		log.Fatal("no input file provided, check usage")
	}

	buf, err := readAudio(*inPath)
	if err != nil {
		log.Fatal("could not read audio", "path", *inPath, "error", err)
	}
	log.Info("decoded audio", "rate", buf.Format.Rate, "channels", buf.Format.Channels,
		"bytes", len(buf.Data))

	out, err := os.Create(*outPath)
	if err != nil {
		log.Fatal("could not create output", "path", *outPath, "error", err)
	}
	defer out.Close()

	d, err := detect.New(out, detect.Config{
		SampleRate:    int(buf.Format.Rate),
		Channels:      int(buf.Format.Channels),
		WindowFrames:  *window,
		Threshold:     *threshold,
		LowPassCutoff: *cutoff,
		DetectorIndex: uint16(*detIndex),
		DetectorType:  uint8(*detType),
	})
	if err != nil {
		log.Fatal("could not create detector", "error", err)
	}

	if err := d.Start(); err != nil {
		log.Fatal("could not start stream", "error", err)
	}
	if err := d.Write(buf); err != nil {
		log.Fatal("detection failed", "error", err)
	}
	if err := d.Close(); err != nil {
		log.Fatal("could not terminate stream", "error", err)
	}
	log.Info("wrote Octv stream", "path", *outPath)
}

// readAudio decodes the WAV or FLAC file at path into an S16_LE PCM buffer.
func readAudio(path string) (pcm.Buffer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return readWAV(path)
	case ".flac":
		return readFLAC(path)
	default:
		return pcm.Buffer{}, errors.Errorf("unhandled audio container %q", filepath.Ext(path))
	}
}

func readWAV(path string) (pcm.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return pcm.Buffer{}, errors.Wrap(err, "could not open input")
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return pcm.Buffer{}, errors.Wrap(err, "could not decode WAV")
	}
	if int(dec.BitDepth) != inBitDepth {
		return pcm.Buffer{}, errors.Errorf("unhandled bit depth %d, want %d", dec.BitDepth, inBitDepth)
	}
	return fromInts(buf.Data, buf.Format.SampleRate, buf.Format.NumChannels), nil
}

func readFLAC(path string) (pcm.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return pcm.Buffer{}, errors.Wrap(err, "could not open input")
	}
	defer f.Close()

	stream, err := flac.Parse(f)
	if err != nil {
		return pcm.Buffer{}, errors.Wrap(err, "could not parse FLAC")
	}
	if stream.Info.BitsPerSample != inBitDepth {
		return pcm.Buffer{}, errors.Errorf("unhandled bit depth %d, want %d", stream.Info.BitsPerSample, inBitDepth)
	}

	// Interleave the channel subframes frame by frame.
	var data []int
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		} else if err != nil {
			return pcm.Buffer{}, errors.Wrap(err, "could not parse FLAC frame")
		}
		for i := 0; i < frame.Subframes[0].NSamples; i++ {
			for _, sub := range frame.Subframes {
				data = append(data, int(sub.Samples[i]))
			}
		}
	}
	return fromInts(data, int(stream.Info.SampleRate), int(stream.Info.NChannels)), nil
}

// fromInts packs 16-bit samples into an S16_LE PCM buffer.
func fromInts(samples []int, rate, channels int) pcm.Buffer {
	data := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[2*i:], uint16(int16(s)))
	}
	return pcm.Buffer{
		Format: pcm.BufferFormat{
			SFormat:  pcm.S16_LE,
			Rate:     uint(rate),
			Channels: uint(channels),
		},
		Data: data,
	}
}
