// ABOUTME: Audio sources producing interleaved int32 samples
// ABOUTME: Tone generator plus MP3, FLAC, WAV and raw PCM file readers
// Package source reads audio for playback.
//
// Every Reader yields interleaved samples in 24-bit range, the same
// representation the output package consumes.
//
// Example:
//
//	r, err := source.Open("song.flac", source.Options{})
//	defer r.Close()
//	n, err := r.Read(samples)
package source
