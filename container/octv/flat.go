/*
NAME
  flat.go - high-level Octv stream parser, folding configuration and time
  cursors into denormalised per-feature records.

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

import "io"

// FlatConfig combines the audio and detector configuration records most
// recently seen on a stream.
type FlatConfig struct {
	Version          uint8
	NumAudioChannels uint8
	MaxAbsLevelInt8  int8
	MaxNumDetectors  uint16
	MaxAbsLevelInt16 int16
	AudioSampleRate  int32
}

// FlatFeature is a feature event combined with the configuration and
// timeline context in effect when it occurred, suitable for downstream
// analysis without parser-side state. Only the level fields of the tier
// selected by DetectorType are meaningful.
type FlatFeature struct {
	// Config.
	Version          uint8
	NumAudioChannels uint8
	AudioSampleRate  int32

	// Moment + Tick. The logical frame index is 48 bits; it is narrowed
	// here and wraps beyond 2^31-1 frames.
	AudioFrameIndex int32

	// Tick + Feature. The frame index offset is in whole frames of the
	// stream's timeline.
	AudioChannel          uint8
	AudioFrameIndexOffset float32
	AudioSample           float32

	// Feature.
	DetectorIndex uint16
	DetectorType  uint8

	// DetectorType in [Feature0Lower, Feature0Upper).
	Level0Int8 [4]int8

	// DetectorType in [Feature2Lower, Feature2Upper).
	Level2Int8  [2]int8
	Level2Int16 int16

	// DetectorType in [Feature3Lower, Feature3Upper).
	Level3Int16 [2]int16
}

// FlatHandler holds the callbacks for flat parsing. FlatFeature is called
// once per feature record. FlatConfig, if non-nil, is called whenever both
// configuration records have been seen and either is refreshed. Error has
// the ClassHandler error contract, and additionally receives ErrValue for
// records arriving before their grammar prerequisites; returning zero
// skips the offending record.
type FlatHandler struct {
	FlatConfig  func(FlatConfig) Code
	FlatFeature func(FlatFeature) Code
	Error       func(Code, [RecordSize]byte) Code
}

// flatState holds the latest-seen record of each context kind. Config is
// sticky until replaced; a new Moment rebases subsequent Ticks and a new
// Tick rebases subsequent feature frame offsets.
type flatState struct {
	config        Config
	configFeature ConfigFeature
	moment        Moment
	tick          Tick
	feature       Feature

	haveConfig        bool
	haveConfigFeature bool
	haveMoment        bool
	haveTick          bool

	h *FlatHandler
}

// ParseFlat parses src, emitting a FlatFeature for each feature record.
// Termination and error semantics are those of ParseClass. Features
// require a preceding Config, Moment and Tick, and Ticks a preceding
// Moment; violations are reported as ErrValue through the error path.
func ParseFlat(src io.Reader, h *FlatHandler) Code {
	if src == nil || h == nil {
		return ErrNull
	}
	s := flatState{h: h}
	return ParseClass(src, &ClassHandler{
		Config:        s.onConfig,
		ConfigFeature: s.onConfigFeature,
		Moment:        s.onMoment,
		Tick:          s.onTick,
		Feature:       s.onFeature,
		Error:         s.onError,
	})
}

func (s *flatState) onConfig(c Config) Code {
	s.config = c
	s.haveConfig = true
	return s.emitConfig()
}

func (s *flatState) onConfigFeature(c ConfigFeature) Code {
	s.configFeature = c
	s.haveConfigFeature = true
	return s.emitConfig()
}

// emitConfig synthesizes a FlatConfig once both configuration records are
// in hand.
func (s *flatState) emitConfig() Code {
	if s.h.FlatConfig == nil || !s.haveConfig || !s.haveConfigFeature {
		return 0
	}
	return s.h.FlatConfig(FlatConfig{
		Version:          s.config.Version,
		NumAudioChannels: s.config.NumAudioChannels,
		MaxAbsLevelInt8:  s.configFeature.MaxAbsLevelInt8,
		MaxNumDetectors:  s.configFeature.MaxNumDetectors,
		MaxAbsLevelInt16: s.configFeature.MaxAbsLevelInt16,
		AudioSampleRate:  s.config.AudioSampleRate,
	})
}

func (s *flatState) onMoment(m Moment) Code {
	s.moment = m
	s.haveMoment = true
	return 0
}

func (s *flatState) onTick(t Tick) Code {
	if !s.haveMoment {
		return s.violation(t)
	}
	s.tick = t
	s.haveTick = true
	return 0
}

func (s *flatState) onFeature(f Feature) Code {
	if !s.haveConfig || !s.haveMoment || !s.haveTick {
		return s.violation(f)
	}
	s.feature = f

	if s.h.FlatFeature == nil {
		return 0
	}
	flat := FlatFeature{
		Version:          s.config.Version,
		NumAudioChannels: s.config.NumAudioChannels,
		AudioSampleRate:  s.config.AudioSampleRate,

		AudioFrameIndex: int32(s.moment.AudioFrameIndexHiBytes<<16 | uint32(s.tick.AudioFrameIndexLoBytes)),

		AudioChannel:          s.tick.AudioChannel,
		AudioFrameIndexOffset: float32(f.FrameOffset),
		AudioSample:           s.tick.AudioSample,

		DetectorIndex: f.DetectorIndex,
		DetectorType:  f.Type,

		Level0Int8:  f.Level0Int8,
		Level2Int8:  f.Level2Int8,
		Level2Int16: f.Level2Int16,
		Level3Int16: f.Level3Int16,
	}
	return s.h.FlatFeature(flat)
}

// violation reports a record arriving before its grammar prerequisites.
// The client decides whether to skip it or halt.
func (s *flatState) violation(r Record) Code {
	if s.h.Error != nil {
		return s.h.Error(ErrValue, r.Bytes())
	}
	return ErrValue
}

func (s *flatState) onError(code Code, b [RecordSize]byte) Code {
	if s.h.Error != nil {
		return s.h.Error(code, b)
	}
	return code
}
