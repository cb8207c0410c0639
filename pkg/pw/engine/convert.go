// ABOUTME: Copies queued stream buffers into device memory
// ABOUTME: Interleaves planar data, converts sample formats and fills silence
package engine

import (
	"encoding/binary"
	"math"

	"github.com/Resonate-Protocol/resonate-ao/pkg/pw"
	"github.com/Resonate-Protocol/resonate-ao/pkg/pw/spa"
)

// DeviceFormat returns the interleaved format a device should open for a
// stream format, given the formats the device can play. The first supported
// format is the fallback.
func DeviceFormat(stream spa.AudioFormat, supported ...spa.AudioFormat) spa.AudioFormat {
	want := stream.Interleaved()
	for _, f := range supported {
		if f == want {
			return f
		}
	}
	if len(supported) == 0 {
		return want
	}
	return supported[0]
}

// Frames returns the number of complete frames in every plane of b
func Frames(b *pw.Buffer, info *spa.AudioInfoRaw) int {
	stride := info.Stride()
	if b == nil || stride == 0 || len(b.Datas) < info.Planes() {
		return 0
	}
	n := -1
	for _, d := range b.Datas[:info.Planes()] {
		if d.Data == nil || d.Chunk == nil {
			return 0
		}
		end := int(d.Chunk.Offset) + int(d.Chunk.Size)
		if end > len(d.Data) {
			return 0
		}
		if f := int(d.Chunk.Size) / stride; n < 0 || f < n {
			n = f
		}
	}
	return max(n, 0)
}

// Render writes b into dst as interleaved samples of the given format and
// fills the rest of dst with silence. It returns the frames copied from b.
func Render(dst []byte, format spa.AudioFormat, b *pw.Buffer, info *spa.AudioInfoRaw) int {
	channels := int(info.Channels)
	ss := format.SampleSize()
	if channels == 0 || ss == 0 {
		return 0
	}
	dstStride := ss * channels
	n := min(Frames(b, info), len(dst)/dstStride)

	if n > 0 {
		if format == info.Format && !format.IsPlanar() {
			d := b.Datas[0]
			off := int(d.Chunk.Offset)
			copy(dst, d.Data[off:off+n*dstStride])
		} else {
			i := 0
			for f := 0; f < n; f++ {
				for c := 0; c < channels; c++ {
					v := loadSample(sampleAt(b, info, f, c), info.Format)
					storeSample(dst[i:i+ss], format, v)
					i += ss
				}
			}
		}
	}

	Silence(dst[n*dstStride:], format)
	return n
}

// RenderFloat32 writes b into dst as interleaved float32 samples and zeroes
// the rest of dst. It returns the frames copied from b.
func RenderFloat32(dst []float32, b *pw.Buffer, info *spa.AudioInfoRaw) int {
	channels := int(info.Channels)
	if channels == 0 {
		return 0
	}
	n := min(Frames(b, info), len(dst)/channels)

	i := 0
	for f := 0; f < n; f++ {
		for c := 0; c < channels; c++ {
			dst[i] = float32(loadSample(sampleAt(b, info, f, c), info.Format))
			i++
		}
	}
	clear(dst[i:])
	return n
}

// Silence fills dst with the silent sample value of format
func Silence(dst []byte, format spa.AudioFormat) {
	if format == spa.AudioFormatU8 || format == spa.AudioFormatU8P {
		for i := range dst {
			dst[i] = 0x80
		}
		return
	}
	clear(dst)
}

// sampleAt returns the bytes of channel c in frame f
func sampleAt(b *pw.Buffer, info *spa.AudioInfoRaw, f, c int) []byte {
	ss := info.Format.SampleSize()
	if info.Format.IsPlanar() {
		d := b.Datas[c]
		off := int(d.Chunk.Offset) + f*ss
		return d.Data[off : off+ss]
	}
	d := b.Datas[0]
	off := int(d.Chunk.Offset) + (f*int(info.Channels)+c)*ss
	return d.Data[off : off+ss]
}

func loadSample(src []byte, format spa.AudioFormat) float64 {
	switch format {
	case spa.AudioFormatU8, spa.AudioFormatU8P:
		return (float64(src[0]) - 128) / 128
	case spa.AudioFormatS16, spa.AudioFormatS16P:
		return float64(int16(binary.LittleEndian.Uint16(src))) / 32768
	case spa.AudioFormatS24:
		v := int32(src[0]) | int32(src[1])<<8 | int32(int8(src[2]))<<16
		return float64(v) / 8388608
	case spa.AudioFormatS32, spa.AudioFormatS32P:
		return float64(int32(binary.LittleEndian.Uint32(src))) / 2147483648
	case spa.AudioFormatF32, spa.AudioFormatF32P:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(src)))
	case spa.AudioFormatF64, spa.AudioFormatF64P:
		return math.Float64frombits(binary.LittleEndian.Uint64(src))
	}
	return 0
}

func storeSample(dst []byte, format spa.AudioFormat, v float64) {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}

	switch format {
	case spa.AudioFormatU8, spa.AudioFormatU8P:
		dst[0] = byte(math.Round(v*127) + 128)
	case spa.AudioFormatS16, spa.AudioFormatS16P:
		binary.LittleEndian.PutUint16(dst, uint16(int16(math.Round(v*32767))))
	case spa.AudioFormatS24:
		s := int32(math.Round(v * 8388607))
		dst[0], dst[1], dst[2] = byte(s), byte(s>>8), byte(s>>16)
	case spa.AudioFormatS32, spa.AudioFormatS32P:
		binary.LittleEndian.PutUint32(dst, uint32(int32(math.Round(v*2147483647))))
	case spa.AudioFormatF32, spa.AudioFormatF32P:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v)))
	case spa.AudioFormatF64, spa.AudioFormatF64P:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(v))
	}
}
