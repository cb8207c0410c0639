// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines SampleFormat, Format and sample conversion functions
// Package audio provides fundamental audio types shared by outputs and sources.
//
// This package defines core types used throughout the library:
//   - SampleFormat: the internal sample representation (interleaved or planar)
//   - Format: sample format, rate and channel count of a PCM stream
//
// Samples travel between packages as int32 values in 24-bit range and are
// encoded into the negotiated SampleFormat at the last moment with PutSample.
//
// Example:
//
//	format := audio.Format{
//	    SampleFormat: audio.FormatS16,
//	    SampleRate:   48000,
//	    Channels:     2,
//	}
//
//	buf := make([]byte, format.SampleFormat.BytesPerSample())
//	audio.PutSample(buf, format.SampleFormat, sample)
package audio
