// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the driver registry, pull-driven devices and a push Player
// Package output is the audio output layer.
//
// Drivers register a Backend factory with Register. Open initializes the
// first driver of a fallback list that accepts the requested format; the
// driver then pulls audio from a Source on its own realtime thread.
// Player wraps that in the push-style Output interface.
//
// Example:
//
//	p := output.NewPlayer(output.PlayerConfig{Drivers: "pipewire/pulse,pipewire/null"})
//	err := p.Open(48000, 2)
//	err = p.Write(samples)
package output
