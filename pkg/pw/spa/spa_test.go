// ABOUTME: Tests for SPA raw audio types and format pods
// ABOUTME: Tests format properties and format object encoding
package spa

import (
	"errors"
	"testing"
)

func TestAudioFormatProperties(t *testing.T) {
	tests := []struct {
		format     AudioFormat
		planar     bool
		size       int
		interleave AudioFormat
	}{
		{AudioFormatU8, false, 1, AudioFormatU8},
		{AudioFormatS16, false, 2, AudioFormatS16},
		{AudioFormatS32, false, 4, AudioFormatS32},
		{AudioFormatF32, false, 4, AudioFormatF32},
		{AudioFormatF64, false, 8, AudioFormatF64},
		{AudioFormatU8P, true, 1, AudioFormatU8},
		{AudioFormatS16P, true, 2, AudioFormatS16},
		{AudioFormatS32P, true, 4, AudioFormatS32},
		{AudioFormatF32P, true, 4, AudioFormatF32},
		{AudioFormatF64P, true, 8, AudioFormatF64},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			if got := tt.format.IsPlanar(); got != tt.planar {
				t.Errorf("expected planar %v, got %v", tt.planar, got)
			}
			if got := tt.format.SampleSize(); got != tt.size {
				t.Errorf("expected size %d, got %d", tt.size, got)
			}
			if got := tt.format.Interleaved(); got != tt.interleave {
				t.Errorf("expected %v, got %v", tt.interleave, got)
			}
		})
	}
}

func TestAudioInfoRawStride(t *testing.T) {
	info := AudioInfoRaw{Format: AudioFormatS16, Channels: 6}
	if info.Stride() != 12 || info.Planes() != 1 {
		t.Errorf("expected stride 12 in 1 plane, got %d in %d", info.Stride(), info.Planes())
	}

	info.Format = AudioFormatF32P
	if info.Stride() != 4 || info.Planes() != 6 {
		t.Errorf("expected stride 4 in 6 planes, got %d in %d", info.Stride(), info.Planes())
	}
}

func TestBuildParseAudioRaw(t *testing.T) {
	info := AudioInfoRaw{Format: AudioFormatF32P, Rate: 48000, Channels: 3}
	info.Position[0] = ChannelFL
	info.Position[1] = ChannelFR
	info.Position[2] = ChannelLFE

	pod := BuildAudioRaw(ParamEnumFormat, &info)
	if len(pod)%8 != 0 {
		t.Errorf("expected 8 byte aligned pod, got %d bytes", len(pod))
	}

	id, got, err := ParseAudioRaw(pod)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if id != ParamEnumFormat {
		t.Errorf("expected id %d, got %d", ParamEnumFormat, id)
	}
	if got != info {
		t.Errorf("expected %+v, got %+v", info, got)
	}
}

func TestBuildAudioRawMono(t *testing.T) {
	info := AudioInfoRaw{Format: AudioFormatS16, Rate: 44100, Channels: 1}
	info.Position[0] = ChannelMono

	_, got, err := ParseAudioRaw(BuildAudioRaw(ParamEnumFormat, &info))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got.Positions()[0] != ChannelMono {
		t.Errorf("expected MONO, got %v", got.Positions()[0])
	}
}

func TestBuildAudioRawOmitsUnset(t *testing.T) {
	full := BuildAudioRaw(ParamEnumFormat, &AudioInfoRaw{Format: AudioFormatS16, Rate: 48000, Channels: 2})
	bare := BuildAudioRaw(ParamEnumFormat, &AudioInfoRaw{})
	if len(bare) >= len(full) {
		t.Errorf("expected bare pod to be shorter: %d >= %d", len(bare), len(full))
	}

	_, got, err := ParseAudioRaw(bare)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got.Format != AudioFormatUnknown || got.Rate != 0 || got.Channels != 0 {
		t.Errorf("expected empty info, got %+v", got)
	}
}

func TestParseAudioRawErrors(t *testing.T) {
	good := BuildAudioRaw(ParamEnumFormat, &AudioInfoRaw{Format: AudioFormatS16, Rate: 48000, Channels: 2})

	tests := []struct {
		name string
		pod  Pod
		want error
	}{
		{"empty", Pod{}, ErrInvalidPod},
		{"truncated", good[:len(good)-8], ErrInvalidPod},
		{"wrong type", append(Pod{8, 0, 0, 0, 14, 0, 0, 0}, make([]byte, 8)...), ErrInvalidPod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseAudioRaw(tt.pod)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
