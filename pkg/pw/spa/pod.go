// ABOUTME: Format negotiation parameter encoding
// ABOUTME: Builds and parses raw audio format objects in SPA pod layout
package spa

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ParamType is the id of a stream parameter object
type ParamType uint32

const (
	ParamEnumFormat ParamType = 3
	ParamFormat     ParamType = 4
)

// pod value types
const (
	typeID     = 3
	typeInt    = 4
	typeArray  = 13
	typeObject = 15

	objectTypeFormat = 0x40003
)

// format object property keys
const (
	keyMediaType    = 1
	keyMediaSubtype = 2
	keyAudioFormat  = 0x10001
	keyAudioRate    = 0x10003
	keyAudioChans   = 0x10004
	keyAudioPos     = 0x10005

	mediaTypeAudio   = 1
	mediaSubtypeRaw  = 1
	podHeaderSize    = 8
	propHeaderSize   = 8
	objectHeaderSize = 8
)

var (
	// ErrInvalidPod is returned when a parameter blob is truncated or malformed
	ErrInvalidPod = errors.New("invalid pod")
	// ErrNotAudioRaw is returned when a format object does not describe raw audio
	ErrNotAudioRaw = errors.New("format is not raw audio")
)

// Pod is an encoded parameter object
type Pod []byte

var le = binary.LittleEndian

func pad8(n int) int {
	return (n + 7) &^ 7
}

type podWriter struct {
	buf []byte
}

func (w *podWriter) u32(v uint32) {
	w.buf = le.AppendUint32(w.buf, v)
}

func (w *podWriter) align() {
	for len(w.buf)%8 != 0 {
		w.buf = append(w.buf, 0)
	}
}

func (w *podWriter) prop(key uint32, podType uint32, body []uint32) {
	w.u32(key)
	w.u32(0)
	w.u32(uint32(4 * len(body)))
	w.u32(podType)
	for _, v := range body {
		w.u32(v)
	}
	w.align()
}

func (w *podWriter) idArray(key uint32, ids []uint32) {
	w.u32(key)
	w.u32(0)
	w.u32(uint32(podHeaderSize + 4*len(ids)))
	w.u32(typeArray)
	w.u32(4)
	w.u32(typeID)
	for _, v := range ids {
		w.u32(v)
	}
	w.align()
}

// BuildAudioRaw encodes info as a raw audio format object with the given id.
// Zero fields are left out so the peer is free to pick them.
func BuildAudioRaw(id ParamType, info *AudioInfoRaw) Pod {
	w := &podWriter{buf: make([]byte, podHeaderSize, 256)}
	w.u32(objectTypeFormat)
	w.u32(uint32(id))
	w.prop(keyMediaType, typeID, []uint32{mediaTypeAudio})
	w.prop(keyMediaSubtype, typeID, []uint32{mediaSubtypeRaw})
	if info.Format != AudioFormatUnknown {
		w.prop(keyAudioFormat, typeID, []uint32{uint32(info.Format)})
	}
	if info.Rate != 0 {
		w.prop(keyAudioRate, typeInt, []uint32{info.Rate})
	}
	if info.Channels != 0 {
		w.prop(keyAudioChans, typeInt, []uint32{info.Channels})
		pos := info.Positions()
		if len(pos) > 0 && pos[0] != ChannelUnknown {
			ids := make([]uint32, len(pos))
			for i, p := range pos {
				ids[i] = uint32(p)
			}
			w.idArray(keyAudioPos, ids)
		}
	}

	le.PutUint32(w.buf[0:], uint32(len(w.buf)-podHeaderSize))
	le.PutUint32(w.buf[4:], typeObject)
	return w.buf
}

// ParseAudioRaw decodes a raw audio format object built by BuildAudioRaw
func ParseAudioRaw(p Pod) (ParamType, AudioInfoRaw, error) {
	var info AudioInfoRaw
	if len(p) < podHeaderSize+objectHeaderSize {
		return 0, info, fmt.Errorf("%w: %d bytes", ErrInvalidPod, len(p))
	}
	size := int(le.Uint32(p[0:]))
	if le.Uint32(p[4:]) != typeObject || podHeaderSize+size > len(p) {
		return 0, info, fmt.Errorf("%w: not an object", ErrInvalidPod)
	}
	if le.Uint32(p[8:]) != objectTypeFormat {
		return 0, info, fmt.Errorf("%w: object type %#x", ErrInvalidPod, le.Uint32(p[8:]))
	}
	id := ParamType(le.Uint32(p[12:]))

	body := p[podHeaderSize+objectHeaderSize : podHeaderSize+size]
	var mediaType, subtype uint32
	for len(body) > 0 {
		if len(body) < propHeaderSize+podHeaderSize {
			return 0, info, fmt.Errorf("%w: truncated property", ErrInvalidPod)
		}
		key := le.Uint32(body[0:])
		vsize := int(le.Uint32(body[8:]))
		vtype := le.Uint32(body[12:])
		start := propHeaderSize + podHeaderSize
		if start+vsize > len(body) || vsize < 4 {
			return 0, info, fmt.Errorf("%w: property %#x overruns object", ErrInvalidPod, key)
		}
		value := body[start : start+vsize]

		switch key {
		case keyMediaType:
			mediaType = le.Uint32(value)
		case keyMediaSubtype:
			subtype = le.Uint32(value)
		case keyAudioFormat:
			info.Format = AudioFormat(le.Uint32(value))
		case keyAudioRate:
			info.Rate = le.Uint32(value)
		case keyAudioChans:
			info.Channels = le.Uint32(value)
		case keyAudioPos:
			if vtype != typeArray || vsize < podHeaderSize {
				return 0, info, fmt.Errorf("%w: position is not an array", ErrInvalidPod)
			}
			ids := value[podHeaderSize:]
			for i := 0; i+4 <= len(ids) && i/4 < MaxChannels; i += 4 {
				info.Position[i/4] = AudioChannel(le.Uint32(ids[i:]))
			}
		}

		next := start + pad8(vsize)
		if next > len(body) {
			next = len(body)
		}
		body = body[next:]
	}

	if mediaType != mediaTypeAudio || subtype != mediaSubtypeRaw {
		return 0, info, ErrNotAudioRaw
	}
	if info.Channels > MaxChannels {
		return 0, info, fmt.Errorf("%w: %d channels", ErrInvalidPod, info.Channels)
	}
	return id, info, nil
}
