/*
NAME
  pcm.go

DESCRIPTION
  pcm.go contains functions for processing pcm audio ahead of sparse-stream
  detection.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pcm provides functions for processing and converting pcm audio.
package pcm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// SampleFormat is the format that a PCM Buffer's samples can be in.
type SampleFormat int

// Used to represent an unknown format.
const (
	Unknown SampleFormat = -1
)

// Sample formats that we use.
const (
	S16_LE SampleFormat = iota
	S32_LE
)

// BufferFormat contains the format for a PCM Buffer.
type BufferFormat struct {
	SFormat  SampleFormat
	Rate     uint
	Channels uint
}

// Buffer contains a buffer of PCM data and the format that it is in.
type Buffer struct {
	Format BufferFormat
	Data   []byte
}

// sampleLen returns the length in bytes of one frame of c, i.e. one sample
// for each channel.
func (c Buffer) sampleLen() (int, error) {
	switch c.Format.SFormat {
	case S32_LE:
		return int(4 * c.Format.Channels), nil
	case S16_LE:
		return int(2 * c.Format.Channels), nil
	default:
		return 0, fmt.Errorf("unhandled sample format %v", c.Format.SFormat)
	}
}

// Resample resamples the audio in c to rate Hz by decimation and averaging,
// returning a new Buffer. Only downsampling is implemented, and c's rate
// must be divisible by rate.
func Resample(c Buffer, rate uint) (Buffer, error) {
	if c.Format.Rate == rate {
		return c, nil
	}
	if c.Format.Rate < rate {
		return Buffer{}, fmt.Errorf("cannot upsample from %v Hz to %v Hz", c.Format.Rate, rate)
	}

	sampleLen, err := c.sampleLen()
	if err != nil {
		return Buffer{}, err
	}

	rateGcd := gcd(rate, c.Format.Rate)
	ratioFrom := int(c.Format.Rate / rateGcd)
	ratioTo := int(rate / rateGcd)

	// ratioTo = 1 is the only ratio that results in an even sampling.
	if ratioTo != 1 {
		return Buffer{}, fmt.Errorf("unhandled from:to rate ratio %v:%v: 'to' must be 1", ratioFrom, ratioTo)
	}

	newLen := len(c.Data) / ratioFrom
	resampled := make([]byte, 0, newLen)

	// Average each run of ratioFrom samples into one output sample.
	bAvg := make([]byte, sampleLen)
	for i := 0; i < newLen/sampleLen; i++ {
		var sum int
		for j := 0; j < ratioFrom; j++ {
			off := (i*ratioFrom + j) * sampleLen
			switch c.Format.SFormat {
			case S32_LE:
				sum += int(int32(binary.LittleEndian.Uint32(c.Data[off : off+sampleLen])))
			case S16_LE:
				sum += int(int16(binary.LittleEndian.Uint16(c.Data[off : off+sampleLen])))
			}
		}
		avg := sum / ratioFrom
		switch c.Format.SFormat {
		case S32_LE:
			binary.LittleEndian.PutUint32(bAvg, uint32(avg))
		case S16_LE:
			binary.LittleEndian.PutUint16(bAvg, uint16(avg))
		}
		resampled = append(resampled, bAvg...)
	}

	return Buffer{
		Format: BufferFormat{
			Channels: c.Format.Channels,
			SFormat:  c.Format.SFormat,
			Rate:     rate,
		},
		Data: resampled,
	}, nil
}

// StereoToMono returns raw mono audio data generated from only the left
// channel of the given stereo Buffer.
func StereoToMono(c Buffer) (Buffer, error) {
	if c.Format.Channels == 1 {
		return c, nil
	}
	if c.Format.Channels != 2 {
		return Buffer{}, fmt.Errorf("audio is not stereo or mono, it has %v channels", c.Format.Channels)
	}

	var stereoSampleBytes int
	switch c.Format.SFormat {
	case S32_LE:
		stereoSampleBytes = 8
	case S16_LE:
		stereoSampleBytes = 4
	default:
		return Buffer{}, fmt.Errorf("unhandled sample format %v", c.Format.SFormat)
	}

	mono := make([]byte, 0, len(c.Data)/2)
	half := stereoSampleBytes / 2
	for i := 0; i+stereoSampleBytes <= len(c.Data); i += stereoSampleBytes {
		mono = append(mono, c.Data[i:i+half]...)
	}

	return Buffer{
		Format: BufferFormat{
			Channels: 1,
			SFormat:  c.Format.SFormat,
			Rate:     c.Format.Rate,
		},
		Data: mono,
	}, nil
}

// Float64s converts the samples of c to float64 values in [-1, 1).
// Only S16_LE audio is handled.
func Float64s(c Buffer) ([]float64, error) {
	if c.Format.SFormat != S16_LE {
		return nil, fmt.Errorf("unhandled sample format %v", c.Format.SFormat)
	}
	if len(c.Data)%2 != 0 {
		return nil, errors.New("uneven number of bytes (not whole number of samples)")
	}
	f := make([]float64, len(c.Data)/2)
	for i := range f {
		s := int16(binary.LittleEndian.Uint16(c.Data[2*i:]))
		f[i] = float64(s) / (math.MaxInt16 + 1)
	}
	return f, nil
}

// gcd is used for calculating the greatest common divisor of two positive integers, a and b.
// assumes given a and b are positive.
func gcd(a, b uint) uint {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// String returns the string representation of a SampleFormat.
func (f SampleFormat) String() string {
	switch f {
	case S16_LE:
		return "S16_LE"
	case S32_LE:
		return "S32_LE"
	default:
		return "Unknown"
	}
}

// SFFromString takes a string representing a sample format and returns the
// corresponding SampleFormat.
func SFFromString(s string) (SampleFormat, error) {
	switch s {
	case "S16_LE":
		return S16_LE, nil
	case "S32_LE":
		return S32_LE, nil
	default:
		return Unknown, errors.Errorf("unknown sample format (%s)", s)
	}
}
