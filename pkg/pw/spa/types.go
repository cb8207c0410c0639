// ABOUTME: SPA raw audio type definitions
// ABOUTME: Sample formats, channel positions and raw audio info shared with engines
package spa

import "fmt"

// MaxChannels is the number of positions an AudioInfoRaw can carry
const MaxChannels = 64

// AudioFormat identifies a raw sample encoding.
// Values match the SPA enumeration so they can travel in format pods unchanged.
type AudioFormat uint32

const (
	AudioFormatUnknown AudioFormat = 0

	AudioFormatU8  AudioFormat = 0x102
	AudioFormatS16 AudioFormat = 0x103 // little-endian
	AudioFormatS32 AudioFormat = 0x10b
	AudioFormatS24 AudioFormat = 0x10f // packed, 3 bytes
	AudioFormatF32 AudioFormat = 0x11b
	AudioFormatF64 AudioFormat = 0x11d

	AudioFormatU8P  AudioFormat = 0x201
	AudioFormatS16P AudioFormat = 0x202
	AudioFormatS32P AudioFormat = 0x204
	AudioFormatF32P AudioFormat = 0x206
	AudioFormatF64P AudioFormat = 0x207
)

var audioFormatNames = map[AudioFormat]string{
	AudioFormatU8:   "U8",
	AudioFormatS16:  "S16LE",
	AudioFormatS32:  "S32LE",
	AudioFormatS24:  "S24LE",
	AudioFormatF32:  "F32LE",
	AudioFormatF64:  "F64LE",
	AudioFormatU8P:  "U8P",
	AudioFormatS16P: "S16P",
	AudioFormatS32P: "S32P",
	AudioFormatF32P: "F32P",
	AudioFormatF64P: "F64P",
}

func (f AudioFormat) String() string {
	if n, ok := audioFormatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("AudioFormat(%#x)", uint32(f))
}

// IsPlanar reports whether every channel is carried in its own data plane
func (f AudioFormat) IsPlanar() bool {
	return f >= 0x200 && f < 0x300
}

// SampleSize returns the byte size of one sample of one channel, 0 if unknown
func (f AudioFormat) SampleSize() int {
	switch f {
	case AudioFormatU8, AudioFormatU8P:
		return 1
	case AudioFormatS16, AudioFormatS16P:
		return 2
	case AudioFormatS24:
		return 3
	case AudioFormatS32, AudioFormatS32P, AudioFormatF32, AudioFormatF32P:
		return 4
	case AudioFormatF64, AudioFormatF64P:
		return 8
	}
	return 0
}

// Interleaved returns the interleaved counterpart of a planar format
func (f AudioFormat) Interleaved() AudioFormat {
	switch f {
	case AudioFormatU8P:
		return AudioFormatU8
	case AudioFormatS16P:
		return AudioFormatS16
	case AudioFormatS32P:
		return AudioFormatS32
	case AudioFormatF32P:
		return AudioFormatF32
	case AudioFormatF64P:
		return AudioFormatF64
	}
	return f
}

// AudioChannel is a speaker position as understood by the audio service
type AudioChannel uint32

const (
	ChannelUnknown AudioChannel = iota
	ChannelNA
	ChannelMono
	ChannelFL
	ChannelFR
	ChannelFC
	ChannelLFE
	ChannelSL
	ChannelSR
	ChannelFLC
	ChannelFRC
	ChannelRC
	ChannelRL
	ChannelRR
	ChannelTC
	ChannelTFL
	ChannelTFC
	ChannelTFR
	ChannelTRL
	ChannelTRC
	ChannelTRR
	ChannelRLC
	ChannelRRC
	ChannelFLW
	ChannelFRW
	ChannelLFE2
)

var channelNames = [...]string{
	"UNK", "NA", "MONO", "FL", "FR", "FC", "LFE", "SL", "SR", "FLC", "FRC",
	"RC", "RL", "RR", "TC", "TFL", "TFC", "TFR", "TRL", "TRC", "TRR",
	"RLC", "RRC", "FLW", "FRW", "LFE2",
}

func (c AudioChannel) String() string {
	if int(c) < len(channelNames) {
		return channelNames[c]
	}
	return fmt.Sprintf("AUX%d", uint32(c))
}

// AudioInfoRaw describes a raw audio stream
type AudioInfoRaw struct {
	Format   AudioFormat
	Rate     uint32
	Channels uint32
	Position [MaxChannels]AudioChannel
}

// Positions returns the used part of the position array
func (i *AudioInfoRaw) Positions() []AudioChannel {
	n := min(int(i.Channels), MaxChannels)
	return i.Position[:n]
}

// Stride returns the byte size of one frame in one data plane
func (i *AudioInfoRaw) Stride() int {
	if i.Format.IsPlanar() {
		return i.Format.SampleSize()
	}
	return i.Format.SampleSize() * int(i.Channels)
}

// Planes returns the number of data planes a buffer for this stream carries
func (i *AudioInfoRaw) Planes() int {
	if i.Format.IsPlanar() {
		return int(i.Channels)
	}
	return 1
}
