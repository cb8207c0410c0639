// ABOUTME: Audio type definitions
// ABOUTME: Defines sample formats, stream formats and sample conversions
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// SampleFormat is the player's internal sample representation
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	FormatU8
	FormatS16
	FormatS24 // packed, 3 bytes
	FormatS32
	FormatFloat
	FormatDouble
	FormatU8P
	FormatS16P
	FormatS32P
	FormatFloatP
	FormatDoubleP
)

var formatNames = map[SampleFormat]string{
	FormatU8:      "u8",
	FormatS16:     "s16",
	FormatS24:     "s24",
	FormatS32:     "s32",
	FormatFloat:   "float",
	FormatDouble:  "double",
	FormatU8P:     "u8p",
	FormatS16P:    "s16p",
	FormatS32P:    "s32p",
	FormatFloatP:  "floatp",
	FormatDoubleP: "doublep",
}

// SampleFormats lists every known sample format
func SampleFormats() []SampleFormat {
	return []SampleFormat{
		FormatU8, FormatS16, FormatS24, FormatS32, FormatFloat, FormatDouble,
		FormatU8P, FormatS16P, FormatS32P, FormatFloatP, FormatDoubleP,
	}
}

// ParseSampleFormat parses a format name such as "s16" or "floatp"
func ParseSampleFormat(name string) (SampleFormat, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, n := range formatNames {
		if n == name {
			return f, nil
		}
	}
	return FormatUnknown, fmt.Errorf("unknown sample format: %q", name)
}

func (f SampleFormat) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Unknown(%d)", int(f))
}

// IsPlanar reports whether each channel lives in its own plane
func (f SampleFormat) IsPlanar() bool {
	switch f {
	case FormatU8P, FormatS16P, FormatS32P, FormatFloatP, FormatDoubleP:
		return true
	}
	return false
}

// IsFloat reports whether samples are IEEE floats
func (f SampleFormat) IsFloat() bool {
	switch f {
	case FormatFloat, FormatDouble, FormatFloatP, FormatDoubleP:
		return true
	}
	return false
}

// BytesPerSample returns the size of one sample of one channel
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatU8, FormatU8P:
		return 1
	case FormatS16, FormatS16P:
		return 2
	case FormatS24:
		return 3
	case FormatS32, FormatS32P, FormatFloat, FormatFloatP:
		return 4
	case FormatDouble, FormatDoubleP:
		return 8
	}
	return 0
}

// BitDepth returns the number of significant bits per sample
func (f SampleFormat) BitDepth() int {
	return f.BytesPerSample() * 8
}

// Format describes a PCM stream handed to an output
type Format struct {
	SampleFormat SampleFormat
	SampleRate   int
	Channels     int
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz %dch %s", f.SampleRate, f.Channels, f.SampleFormat)
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit (or 16-bit) to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	// Left-shift to position 16-bit value in upper bits
	return int32(sample) << 8
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// SampleToFloat converts a 24-bit range sample to [-1, 1)
func SampleToFloat(sample int32) float64 {
	return float64(sample) / (Max24Bit + 1)
}

// PutSample encodes one 24-bit range sample into dst using the given format.
// dst must hold at least f.BytesPerSample() bytes.
func PutSample(dst []byte, f SampleFormat, sample int32) {
	switch f {
	case FormatU8, FormatU8P:
		dst[0] = byte((sample >> 16) + 128)
	case FormatS16, FormatS16P:
		binary.LittleEndian.PutUint16(dst, uint16(SampleToInt16(sample)))
	case FormatS24:
		b := SampleTo24Bit(sample)
		copy(dst, b[:])
	case FormatS32, FormatS32P:
		binary.LittleEndian.PutUint32(dst, uint32(sample<<8))
	case FormatFloat, FormatFloatP:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(SampleToFloat(sample))))
	case FormatDouble, FormatDoubleP:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(SampleToFloat(sample)))
	}
}
