/*
NAME
  encode_test.go - round-trip tests for Octv record encoding.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package octv

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestRoundTrip decodes a stream of one record of each kind and checks
// that re-encoding reproduces the original bytes exactly.
func TestRoundTrip(t *testing.T) {
	in := stream(
		sentinelBytes,
		configBytes,
		[]byte{0x51, 0x64, 0x00, 0x00, 0x30, 0x75, 0x08, 0x00},
		momentBytes,
		tickBytes,
		feature0Bytes,
		[]byte{0x25, 0xfe, 0x03, 0x00, 0x0a, 0xf6, 0x34, 0x12},
		feature3Bytes,
		endBytes,
	)

	for off := 0; off < len(in); off += RecordSize {
		cell := in[off : off+RecordSize]
		rec, code := Decode(cell)
		if code != 0 {
			t.Fatalf("Decode() at offset %d failed with code %v", off, code)
		}
		b := rec.Bytes()
		if !bytes.Equal(b[:], cell) {
			t.Errorf("record at offset %d did not round trip: got %x, want %x", off, b, cell)
		}
	}
}

// TestEncoderParse writes a stream with the Encoder and parses it back,
// comparing the records seen against the records written.
func TestEncoderParse(t *testing.T) {
	recs := []Record{
		Sentinel(),
		Config{Type: TypeConfig, Version: Version, NumAudioChannels: 2, AudioSampleRate: 44100},
		ConfigFeature{Type: TypeConfigFeature, MaxAbsLevelInt8: 127, MaxAbsLevelInt16: 32767, MaxNumDetectors: 4},
		Moment{Type: TypeMoment, AudioFrameIndexHiBytes: 2},
		Tick{Type: TypeTick, AudioChannel: 1, AudioFrameIndexLoBytes: 0x1234, AudioSample: 0.25},
		Feature{Type: 0x10, FrameOffset: -3, DetectorIndex: 2, Level0Int8: [4]int8{1, -2, 3, -4}},
		End(),
	}

	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(recs...); err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	if buf.Len() != len(recs)*RecordSize {
		t.Fatalf("encoded length = %d, want %d", buf.Len(), len(recs)*RecordSize)
	}

	var got []Record
	h := &ClassHandler{
		Sentinel:      func(d Delimiter) Code { got = append(got, d); return 0 },
		End:           func(d Delimiter) Code { got = append(got, d); return 0 },
		Config:        func(c Config) Code { got = append(got, c); return 0 },
		ConfigFeature: func(c ConfigFeature) Code { got = append(got, c); return 0 },
		Moment:        func(m Moment) Code { got = append(got, m); return 0 },
		Tick:          func(tk Tick) Code { got = append(got, tk); return 0 },
		Feature:       func(f Feature) Code { got = append(got, f); return 0 },
	}
	if code := ParseClass(&buf, h); code != 0 {
		t.Fatalf("ParseClass() = %v, want 0", code)
	}
	if diff := cmp.Diff(recs, got); diff != "" {
		t.Errorf("parsed records mismatch (-want +got):\n%s", diff)
	}
}
