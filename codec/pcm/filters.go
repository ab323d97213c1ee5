/*
NAME
  filters.go

DESCRIPTION
  filters.go contains FIR filters for band-limiting PCM audio before
  detection.

AUTHOR
  David Sutton <davidsutton@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// AudioFilter is an interface which contains an Apply function.
// Apply is used to apply the filter to the given buffer of PCM data (b.Data).
type AudioFilter interface {
	Apply(b Buffer) ([]byte, error)
}

// SelectiveFrequencyFilter holds the specification and coefficients of a
// windowed-sinc lowpass or highpass filter.
type SelectiveFrequencyFilter struct {
	coeffs     []float64
	cutoff     [2]float64
	sampleRate uint
	taps       int
	buffInfo   BufferFormat
}

// NewLowPass generates a lowpass filter with cutoff frequency fc and the
// given tap count, and returns a pointer to it.
func NewLowPass(fc float64, info BufferFormat, length int) (*SelectiveFrequencyFilter, error) {
	return newLoHiFilter(fc, info, length, [2]float64{0, fc})
}

// NewHighPass generates a highpass filter with cutoff frequency fc and the
// given tap count, and returns a pointer to it.
func NewHighPass(fc float64, info BufferFormat, length int) (*SelectiveFrequencyFilter, error) {
	return newLoHiFilter(fc, info, length, [2]float64{fc, 0})
}

// Apply convolves the filter with the buffer data (b.Data) and returns the
// filtered audio as bytes.
func (filter *SelectiveFrequencyFilter) Apply(b Buffer) ([]byte, error) {
	bufAsFloats, err := Float64s(b)
	if err != nil {
		return nil, fmt.Errorf("could not convert to floats: %w", err)
	}
	convolution, err := fastConvolve(bufAsFloats, filter.coeffs)
	if err != nil {
		return nil, fmt.Errorf("could not compute fast convolution: %w", err)
	}
	return floatsToBytes(convolution)
}

// newLoHiFilter validates the filter parameters and generates windowed-sinc
// coefficients for either a lowpass or a highpass filter.
func newLoHiFilter(fc float64, info BufferFormat, length int, cutoff [2]float64) (*SelectiveFrequencyFilter, error) {
	if fc <= 0 || fc >= float64(info.Rate)/2 {
		return nil, errors.New("cutoff frequency out of bounds")
	} else if length <= 0 {
		return nil, errors.New("cannot create filter with length <= 0")
	}

	var fd, factor1, factor2 float64
	if cutoff[0] == 0 { // Lowpass: cutoff[0] = 0, cutoff[1] = fc.
		fd = cutoff[1] / float64(info.Rate)
		factor1 = 1
		factor2 = 2 * fd
	} else { // Highpass: cutoff[0] = fc, cutoff[1] = 0.
		fd = cutoff[0] / float64(info.Rate)
		factor1 = -1
		factor2 = 1 - 2*fd
	}

	filter := SelectiveFrequencyFilter{cutoff: cutoff, sampleRate: info.Rate, taps: length, buffInfo: info}

	size := filter.taps + 1
	filter.coeffs = make([]float64, size)
	b := 2 * math.Pi * fd
	winData := window.FlatTop(size)
	for n := 0; n < (filter.taps / 2); n++ {
		c := float64(n) - float64(filter.taps)/2
		y := math.Sin(c*b) / (math.Pi * c)
		filter.coeffs[n] = factor1 * y * winData[n]
		filter.coeffs[size-1-n] = filter.coeffs[n]
	}
	filter.coeffs[filter.taps/2] = factor2 * winData[filter.taps/2]

	return &filter, nil
}

// floatsToBytes converts a slice of float64 PCM data in [-1, 1] into S16_LE
// bytes, double the length of the input.
func floatsToBytes(f []float64) ([]byte, error) {
	b := make([]byte, len(f)*2)
	for i, v := range f {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(b[2*i:], uint16(int16(v*math.MaxInt16)))
	}
	return b, nil
}

// fastConvolve takes in a signal and an FIR filter and computes the convolution (runs in O(nlog(n)) time).
func fastConvolve(x, h []float64) ([]float64, error) {
	if len(x) == 0 || len(h) == 0 {
		return nil, errors.New("convolution requires slice of length > 0")
	}

	// Length of the linear convolution.
	convLen := len(x) + len(h) - 1

	// Pad both signals to the next power of 2 above convLen.
	padLen := int(math.Pow(2, math.Ceil(math.Log2(float64(convLen)))))
	x = append(x, make([]float64, padLen-len(x))...)
	h = append(h, make([]float64, padLen-len(h))...)

	// Multiply in the frequency domain.
	xFFT, hFFT := fft.FFTReal(x), fft.FFTReal(h)
	yFFT := make([]complex128, padLen)
	for i := range xFFT {
		yFFT[i] = xFFT[i] * hFFT[i]
	}

	// Back to the time domain, trimmed to the linear convolution.
	iy := fft.IFFT(yFFT)
	y := make([]float64, convLen)
	for i := range y {
		y[i] = real(iy[i])
	}
	return y, nil
}
