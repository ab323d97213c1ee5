/*
NAME
  parse.go - low-level Octv stream parser, dispatching each terminal to a
  per-kind client callback.

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

package octv

import "io"

// ClassHandler holds one callback per record kind. Any callback may be nil,
// in which case records of that kind are accepted silently; a nil End still
// terminates parsing with code 0 because End is terminal. State is carried
// by closure rather than an opaque client pointer.
type ClassHandler struct {
	Sentinel      func(Delimiter) Code
	End           func(Delimiter) Code
	Config        func(Config) Code
	ConfigFeature func(ConfigFeature) Code
	Moment        func(Moment) Code
	Tick          func(Tick) Code
	Feature       func(Feature) Code

	// Error is consulted on decode failure with the offending record
	// bytes. Returning zero discards the record and resumes parsing;
	// any other value halts the parser and propagates. On read failure
	// Error is notified but its return is ignored. A nil Error halts
	// with the failure code.
	Error func(Code, [RecordSize]byte) Code
}

// ParseClass reads 8-byte records from src until termination, dispatching
// each to the matching ClassHandler callback. A callback returning non-zero
// halts parsing and that value is returned. Parsing also halts on a valid
// End record, returning the End callback's code or 0, and on read failure,
// returning ErrEOF for a clean end between records or ErrFerror otherwise.
// A nil src or h returns ErrNull without reading.
func ParseClass(src io.Reader, h *ClassHandler) Code {
	if src == nil || h == nil {
		return ErrNull
	}

	var buf [RecordSize]byte
	for {
		_, err := io.ReadFull(src, buf[:])
		if err != nil {
			code := ErrFerror
			if err == io.EOF {
				code = ErrEOF
			}
			// Notification only; read failure always halts.
			if h.Error != nil {
				h.Error(code, buf)
			}
			return code
		}

		rec, code := Decode(buf[:])
		if code != 0 {
			// TODO(saxon): scan forward for the next valid terminal so
			// clients can resynchronise rather than skip one record.
			if h.Error != nil {
				code = h.Error(code, buf)
			}
			if code != 0 {
				return code
			}
			continue
		}

		code = 0
		switch r := rec.(type) {
		case Delimiter:
			if r.Type == TypeEnd {
				if h.End != nil {
					return h.End(r)
				}
				return 0
			}
			if h.Sentinel != nil {
				code = h.Sentinel(r)
			}
		case Config:
			if h.Config != nil {
				code = h.Config(r)
			}
		case ConfigFeature:
			if h.ConfigFeature != nil {
				code = h.ConfigFeature(r)
			}
		case Moment:
			if h.Moment != nil {
				code = h.Moment(r)
			}
		case Tick:
			if h.Tick != nil {
				code = h.Tick(r)
			}
		case Feature:
			if h.Feature != nil {
				code = h.Feature(r)
			}
		default:
			return ErrOctv
		}
		if code != 0 {
			return code
		}
	}
}
