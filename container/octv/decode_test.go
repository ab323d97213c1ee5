/*
NAME
  decode_test.go - tests for Octv record decoding.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package octv

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  Record
		code  Code
	}{
		{
			name:  "sentinel",
			input: []byte{0x4f, 0x63, 0x74, 0x76, 0xa4, 0x6d, 0xae, 0xb6},
			want:  Sentinel(),
		},
		{
			name:  "end",
			input: []byte{0x45, 0x6e, 0x64, 0x5f, 0xa4, 0x6d, 0xae, 0xb6},
			want:  End(),
		},
		{
			name:  "sentinel bad signature",
			input: []byte{0x4f, 0x63, 0x74, 0x76, 0x00, 0x00, 0x00, 0x00},
			code:  ErrValue,
		},
		{
			name:  "end bad chars",
			input: []byte{0x45, 0x6e, 0x65, 0x5f, 0xa4, 0x6d, 0xae, 0xb6},
			code:  ErrValue,
		},
		{
			name:  "config 8kHz mono",
			input: []byte{0x50, 0x01, 0x01, 0x00, 0x40, 0x1f, 0x00, 0x00},
			want:  Config{Type: TypeConfig, Version: 1, NumAudioChannels: 1, AudioSampleRate: 8000},
		},
		{
			name:  "config version mismatch",
			input: []byte{0x50, 0x02, 0x02, 0x00, 0x80, 0x3e, 0x00, 0x00},
			code:  ErrValue,
		},
		{
			name:  "config feature",
			input: []byte{0x51, 0x7f, 0x00, 0x00, 0xff, 0x7f, 0x10, 0x00},
			want:  ConfigFeature{Type: TypeConfigFeature, MaxAbsLevelInt8: 127, MaxAbsLevelInt16: 32767, MaxNumDetectors: 16},
		},
		{
			name:  "moment",
			input: []byte{0x60, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00},
			want:  Moment{Type: TypeMoment, AudioFrameIndexHiBytes: 1},
		},
		{
			name:  "tick",
			input: []byte{0x70, 0x00, 0x10, 0x00, 0x00, 0x00, 0x80, 0x3f},
			want:  Tick{Type: TypeTick, AudioChannel: 0, AudioFrameIndexLoBytes: 0x10, AudioSample: 1.0},
		},
		{
			name:  "feature tier 0",
			input: []byte{0x05, 0x02, 0x07, 0x00, 0x11, 0x22, 0x33, 0x44},
			want: Feature{
				Type:          0x05,
				FrameOffset:   2,
				DetectorIndex: 7,
				Level0Int8:    [4]int8{17, 34, 51, 68},
			},
		},
		{
			name:  "feature tier 2",
			input: []byte{0x25, 0xfe, 0x03, 0x00, 0x0a, 0xf6, 0x34, 0x12},
			want: Feature{
				Type:          0x25,
				FrameOffset:   -2,
				DetectorIndex: 3,
				Level2Int8:    [2]int8{10, -10},
				Level2Int16:   0x1234,
			},
		},
		{
			name:  "feature tier 3",
			input: []byte{0x35, 0xff, 0x09, 0x00, 0x34, 0x12, 0x78, 0x56},
			want: Feature{
				Type:          0x35,
				FrameOffset:   -1,
				DetectorIndex: 9,
				Level3Int16:   [2]int16{0x1234, 0x5678},
			},
		},
		{
			name:  "reserved zero type",
			input: []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
			code:  ErrType,
		},
		{
			name:  "unknown type",
			input: []byte{0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
			code:  ErrType,
		},
		{
			name:  "short buffer",
			input: []byte{0x4f, 0x63, 0x74},
			code:  ErrOctv,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, code := Decode(test.input)
			if code != test.code {
				t.Fatalf("Decode() code = %v, want %v", code, test.code)
			}
			if test.code != 0 {
				return
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIsFeatureType(t *testing.T) {
	for c := 0; c < 256; c++ {
		want := c >= Feature0Lower && c < Feature3Upper
		if got := IsFeatureType(uint8(c)); got != want {
			t.Errorf("IsFeatureType(%#02x) = %v, want %v", c, got, want)
		}
	}
}
