/*
NAME
  encode.go - encoding of Octv terminals back to their 8-byte wire form.

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
	"encoding/binary"
	"io"
	"math"
)

// Bytes returns the delimiter's wire form.
func (d Delimiter) Bytes() [RecordSize]byte {
	var b [RecordSize]byte
	b[0] = d.Type
	copy(b[1:4], d.Chars[:])
	copy(b[4:8], d.Signature[:])
	return b
}

// Bytes returns the config's wire form.
func (c Config) Bytes() [RecordSize]byte {
	var b [RecordSize]byte
	b[0] = c.Type
	b[1] = c.Version
	b[2] = c.NumAudioChannels
	binary.LittleEndian.PutUint32(b[4:8], uint32(c.AudioSampleRate))
	return b
}

// Bytes returns the detector config's wire form.
func (c ConfigFeature) Bytes() [RecordSize]byte {
	var b [RecordSize]byte
	b[0] = c.Type
	b[1] = uint8(c.MaxAbsLevelInt8)
	binary.LittleEndian.PutUint16(b[4:6], uint16(c.MaxAbsLevelInt16))
	binary.LittleEndian.PutUint16(b[6:8], c.MaxNumDetectors)
	return b
}

// Bytes returns the moment's wire form.
func (m Moment) Bytes() [RecordSize]byte {
	var b [RecordSize]byte
	b[0] = m.Type
	binary.LittleEndian.PutUint32(b[4:8], m.AudioFrameIndexHiBytes)
	return b
}

// Bytes returns the tick's wire form.
func (t Tick) Bytes() [RecordSize]byte {
	var b [RecordSize]byte
	b[0] = t.Type
	b[1] = t.AudioChannel
	binary.LittleEndian.PutUint16(b[2:4], t.AudioFrameIndexLoBytes)
	binary.LittleEndian.PutUint32(b[4:8], math.Float32bits(t.AudioSample))
	return b
}

// Bytes returns the feature's wire form. The level payload is taken from
// the tier selected by the type code.
func (f Feature) Bytes() [RecordSize]byte {
	var b [RecordSize]byte
	b[0] = f.Type
	b[1] = uint8(f.FrameOffset)
	binary.LittleEndian.PutUint16(b[2:4], f.DetectorIndex)
	switch {
	case f.Type < Feature0Upper:
		b[4] = uint8(f.Level0Int8[0])
		b[5] = uint8(f.Level0Int8[1])
		b[6] = uint8(f.Level0Int8[2])
		b[7] = uint8(f.Level0Int8[3])
	case f.Type < Feature2Upper:
		b[4] = uint8(f.Level2Int8[0])
		b[5] = uint8(f.Level2Int8[1])
		binary.LittleEndian.PutUint16(b[6:8], uint16(f.Level2Int16))
	default:
		binary.LittleEndian.PutUint16(b[4:6], uint16(f.Level3Int16[0]))
		binary.LittleEndian.PutUint16(b[6:8], uint16(f.Level3Int16[1]))
	}
	return b
}

// Encoder writes Octv records to dst in wire order.
type Encoder struct {
	dst io.Writer
}

// NewEncoder returns a new Encoder writing to dst.
func NewEncoder(dst io.Writer) *Encoder {
	return &Encoder{dst: dst}
}

// Encode writes the given records to the encoder's destination.
func (e *Encoder) Encode(recs ...Record) error {
	for _, r := range recs {
		b := r.Bytes()
		if _, err := e.dst.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}
