/*
NAME
  decode.go - decoding of single 8-byte Octv records into typed terminals.

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
	"encoding/binary"
	"math"
)

// Decode decodes a single 8-byte Octv record from b and returns the typed
// terminal. A type code outside the known set gives ErrType; a value
// inconsistent with a known type, such as a bad delimiter signature or a
// config version other than Version, gives ErrValue. Structural checks
// precede semantic checks, and a record yields at most one error code.
func Decode(b []byte) (Record, Code) {
	if len(b) != RecordSize {
		return nil, ErrOctv
	}

	switch t := b[0]; t {
	case TypeSentinel, TypeEnd:
		d := Delimiter{Type: t}
		copy(d.Chars[:], b[1:4])
		copy(d.Signature[:], b[4:8])
		want := sentinelChars
		if t == TypeEnd {
			want = endChars
		}
		if d.Chars != want || d.Signature != signature {
			return nil, ErrValue
		}
		return d, 0

	case TypeConfig:
		if b[1] != Version {
			return nil, ErrValue
		}
		return Config{
			Type:             t,
			Version:          b[1],
			NumAudioChannels: b[2],
			AudioSampleRate:  int32(binary.LittleEndian.Uint32(b[4:8])),
		}, 0

	case TypeConfigFeature:
		return ConfigFeature{
			Type:             t,
			MaxAbsLevelInt8:  int8(b[1]),
			MaxAbsLevelInt16: int16(binary.LittleEndian.Uint16(b[4:6])),
			MaxNumDetectors:  binary.LittleEndian.Uint16(b[6:8]),
		}, 0

	case TypeMoment:
		return Moment{
			Type:                   t,
			AudioFrameIndexHiBytes: binary.LittleEndian.Uint32(b[4:8]),
		}, 0

	case TypeTick:
		return Tick{
			Type:                   t,
			AudioChannel:           b[1],
			AudioFrameIndexLoBytes: binary.LittleEndian.Uint16(b[2:4]),
			AudioSample:            math.Float32frombits(binary.LittleEndian.Uint32(b[4:8])),
		}, 0

	default:
		if !IsFeatureType(t) {
			return nil, ErrType
		}
		return decodeFeature(b), 0
	}
}

// decodeFeature decodes a feature record, interpreting the level payload
// according to the tier sub-range of the type code.
func decodeFeature(b []byte) Feature {
	f := Feature{
		Type:          b[0],
		FrameOffset:   int8(b[1]),
		DetectorIndex: binary.LittleEndian.Uint16(b[2:4]),
	}
	switch t := b[0]; {
	case t < Feature0Upper:
		f.Level0Int8 = [4]int8{int8(b[4]), int8(b[5]), int8(b[6]), int8(b[7])}
	case t < Feature2Upper:
		f.Level2Int8 = [2]int8{int8(b[4]), int8(b[5])}
		f.Level2Int16 = int16(binary.LittleEndian.Uint16(b[6:8]))
	default:
		f.Level3Int16 = [2]int16{
			int16(binary.LittleEndian.Uint16(b[4:6])),
			int16(binary.LittleEndian.Uint16(b[6:8])),
		}
	}
	return f
}
