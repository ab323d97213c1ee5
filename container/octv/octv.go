/*
NAME
  octv.go - defines the terminals of the Octv Sparse Stream container: the
  8-byte record variants, their type codes and the parser return codes.

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

// Package octv implements the Octv Sparse Stream container, a sequence of
// fixed 8-byte records carrying sparsely-sampled acoustic detector events
// against a cumulative audio frame timeline. The package provides record
// decoding and encoding, a low-level parser dispatching each record kind to
// a client callback, and a high-level parser that folds configuration and
// time-cursor records into denormalised per-feature records.
package octv

// Version is the Octv protocol version handled by this package.
const Version = 1

// RecordSize is the fixed size of every Octv record in bytes, the type code
// included.
const RecordSize = 8

// Record type codes, found in byte 0 of each record. Except for features,
// each terminal has one hard-wired type.
const (
	TypeSentinel      = 0x4f // 'O', stream start marker.
	TypeEnd           = 0x45 // 'E', stream terminator.
	TypeConfig        = 0x50 // Audio configuration.
	TypeConfigFeature = 0x51 // Detector configuration.
	TypeMoment        = 0x60 // Coarse time cursor.
	TypeTick          = 0x70 // Fine time cursor.
)

// Feature type codes are non-zero values with the top two bits clear,
// giving clients 63 distinct detector types without touching dispatch code.
// The sub-ranges select the interpretation of the 4-byte level payload.
// Ranges are half-open; the upper bound is not in the range.
const (
	FeatureMask    = 0x3f
	NonFeatureMask = 0xc0

	Feature0Lower = 0x01 // Four 1-byte levels.
	Feature0Upper = 0x20
	Feature2Lower = 0x20 // Two 1-byte levels and one 2-byte level.
	Feature2Upper = 0x30
	Feature3Lower = 0x30 // Two 2-byte levels.
	Feature3Upper = 0x40
)

// Code is a parser return code. Zero from a callback continues parsing, and
// zero from a parse function reports normal termination. Client callbacks
// may return any other non-zero value and it is passed through verbatim;
// values clear of the codes below avoid ambiguity with parser errors.
type Code int

// Parser error codes.
const (
	ErrNull   Code = 0x01 // A source or handler argument is nil.
	ErrType   Code = 0x02 // Record type code is not handled.
	ErrValue  Code = 0x03 // Value inconsistent with the record type.
	ErrEOF    Code = 0x04 // Clean end of stream between records, no End seen.
	ErrFerror Code = 0x05 // Read fault or short read mid-record.
	ErrClient Code = 0x06 // Reserved for client callbacks.
	ErrOctv   Code = 0x07 // Internal invariant failure.
)

// Delimiter signature; random values, but none in -2..2 so that delimiters
// are unlikely to collide with level data.
var signature = [4]byte{0xa4, 0x6d, 0xae, 0xb6}

// Delimiter character sequences following the type byte. With the type
// bytes these spell "Octv" and "End_".
var (
	sentinelChars = [3]byte{'c', 't', 'v'}
	endChars      = [3]byte{'n', 'd', '_'}
)

// Record is a decoded Octv terminal. Bytes returns the record's exact
// 8-byte wire representation.
type Record interface {
	Bytes() [RecordSize]byte
}

// Delimiter is a stream delimiter, either a Sentinel (start) or an End
// (terminator). The three chars and the fixed signature are validated on
// decode.
type Delimiter struct {
	Type      uint8
	Chars     [3]byte
	Signature [4]byte
}

// Config carries the audio configuration in effect for subsequent records.
type Config struct {
	Type             uint8
	Version          uint8
	NumAudioChannels uint8
	AudioSampleRate  int32
}

// ConfigFeature carries the detector configuration in effect for
// subsequent feature records.
type ConfigFeature struct {
	Type             uint8
	MaxAbsLevelInt8  int8
	MaxAbsLevelInt16 int16
	MaxNumDetectors  uint16
}

// Moment is the coarse time cursor, carrying the high bytes of the audio
// frame index. A Moment resets the meaning of the low bytes carried by
// subsequent Ticks.
type Moment struct {
	Type                   uint8
	AudioFrameIndexHiBytes uint32
}

// Tick is the fine time cursor, carrying the low bytes of the audio frame
// index along with the channel and value of the most recent audio sample.
// A Tick resets the meaning of subsequent features' frame offsets.
type Tick struct {
	Type                   uint8
	AudioChannel           uint8
	AudioFrameIndexLoBytes uint16
	AudioSample            float32
}

// Feature is a detector feature event. The interpretation of the four
// payload bytes depends on the sub-range of Type; only the level fields of
// the matching tier are populated on decode.
type Feature struct {
	Type          uint8
	FrameOffset   int8
	DetectorIndex uint16

	// Type in [Feature0Lower, Feature0Upper).
	Level0Int8 [4]int8

	// Type in [Feature2Lower, Feature2Upper).
	Level2Int8  [2]int8
	Level2Int16 int16

	// Type in [Feature3Lower, Feature3Upper).
	Level3Int16 [2]int16
}

// Sentinel returns the fully populated stream start delimiter.
func Sentinel() Delimiter {
	return Delimiter{Type: TypeSentinel, Chars: sentinelChars, Signature: signature}
}

// End returns the fully populated stream terminator.
func End() Delimiter {
	return Delimiter{Type: TypeEnd, Chars: endChars, Signature: signature}
}

// IsFeatureType reports whether t is in the feature range of the type-code
// space, i.e. non-zero with the top two bits clear.
func IsFeatureType(t uint8) bool {
	return t&NonFeatureMask == 0 && t != 0
}
