/*
NAME
  detect_test.go - tests for the energy threshold detector.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package detect

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/ausocean/octv/codec/pcm"
	"github.com/ausocean/octv/container/octv"
)

const (
	testRate   = 8000
	testWindow = 256
)

// burstBuffer returns mono S16_LE audio of n windows of silence with a
// 1 kHz burst in the window at burst.
func burstBuffer(n, burst int) pcm.Buffer {
	data := make([]byte, 2*n*testWindow)
	for i := 0; i < testWindow; i++ {
		s := int16(16000 * math.Sin(2*math.Pi*1000*float64(i)/testRate))
		binary.LittleEndian.PutUint16(data[2*(burst*testWindow+i):], uint16(s))
	}
	return pcm.Buffer{
		Format: pcm.BufferFormat{SFormat: pcm.S16_LE, Rate: testRate, Channels: 1},
		Data:   data,
	}
}

func runDetector(t *testing.T, buf pcm.Buffer) []octv.FlatFeature {
	t.Helper()

	var out bytes.Buffer
	d, err := New(&out, Config{
		SampleRate:    testRate,
		Channels:      1,
		WindowFrames:  testWindow,
		Threshold:     2,
		DetectorIndex: 3,
		DetectorType:  0x05,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := d.Write(buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	var got []octv.FlatFeature
	h := &octv.FlatHandler{
		FlatFeature: func(f octv.FlatFeature) octv.Code { got = append(got, f); return 0 },
	}
	if code := octv.ParseFlat(&out, h); code != 0 {
		t.Fatalf("generated stream did not parse cleanly: code %v", code)
	}
	return got
}

// TestDetectBurst checks that a lone burst among silent windows yields
// exactly one well-formed feature.
func TestDetectBurst(t *testing.T) {
	got := runDetector(t, burstBuffer(16, 5))
	if len(got) != 1 {
		t.Fatalf("got %d features, want 1", len(got))
	}

	f := got[0]
	if f.AudioSampleRate != testRate || f.NumAudioChannels != 1 {
		t.Errorf("config fields = %d Hz, %d channels; want %d Hz, 1 channel",
			f.AudioSampleRate, f.NumAudioChannels, testRate)
	}
	if want := int32(5 * testWindow); f.AudioFrameIndex != want {
		t.Errorf("AudioFrameIndex = %d, want %d", f.AudioFrameIndex, want)
	}
	if f.DetectorType != 0x05 || f.DetectorIndex != 3 {
		t.Errorf("detector identity = %#02x/%d, want 0x05/3", f.DetectorType, f.DetectorIndex)
	}
	if f.Level0Int8[0] <= 0 || f.Level0Int8[1] <= 0 {
		t.Errorf("peak and RMS levels = %v, want positive", f.Level0Int8)
	}
	if off := f.AudioFrameIndexOffset; off < 0 || off >= testWindow {
		t.Errorf("AudioFrameIndexOffset = %v, want within window", off)
	}
}

// TestDetectSilence checks that uniform audio yields a valid stream with
// no features.
func TestDetectSilence(t *testing.T) {
	buf := pcm.Buffer{
		Format: pcm.BufferFormat{SFormat: pcm.S16_LE, Rate: testRate, Channels: 1},
		Data:   make([]byte, 2*16*testWindow),
	}
	if got := runDetector(t, buf); len(got) != 0 {
		t.Errorf("got %d features from silence, want 0", len(got))
	}
}

func TestNewValidation(t *testing.T) {
	var out bytes.Buffer
	if _, err := New(&out, Config{SampleRate: testRate, WindowFrames: testWindow, DetectorType: 0x35}); err == nil {
		t.Error("New accepted a non tier-0 detector type")
	}
	if _, err := New(&out, Config{SampleRate: 0, WindowFrames: testWindow, DetectorType: 0x05}); err == nil {
		t.Error("New accepted a zero sample rate")
	}
	if _, err := New(&out, Config{SampleRate: testRate, WindowFrames: 0, DetectorType: 0x05}); err == nil {
		t.Error("New accepted a zero window")
	}
}

// TestWriteBeforeStart checks the preamble ordering is enforced.
func TestWriteBeforeStart(t *testing.T) {
	var out bytes.Buffer
	d, err := New(&out, Config{SampleRate: testRate, WindowFrames: testWindow, DetectorType: 0x05})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := d.Write(burstBuffer(2, 0)); err == nil {
		t.Error("Write before Start did not fail")
	}
}
