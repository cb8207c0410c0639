// ABOUTME: Sample format table for the pipewire driver
// ABOUTME: Maps player sample formats to SPA formats and sample sizes
package pipewire

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/resonate-ao/pkg/audio"
	"github.com/Resonate-Protocol/resonate-ao/pkg/pw/spa"
)

// ErrUnsupportedFormat is returned for sample formats the driver cannot play
var ErrUnsupportedFormat = errors.New("sample format not supported by pipewire output")

type formatDesc struct {
	format    audio.SampleFormat
	spaFormat spa.AudioFormat
	// stride is the size of one sample of one channel
	stride int
}

var formats = []formatDesc{
	{audio.FormatU8, spa.AudioFormatU8, 1},
	{audio.FormatS16, spa.AudioFormatS16, 2},
	{audio.FormatS32, spa.AudioFormatS32, 4},

	{audio.FormatFloat, spa.AudioFormatF32, 4},
	{audio.FormatDouble, spa.AudioFormatF64, 8},

	{audio.FormatU8P, spa.AudioFormatU8P, 1},
	{audio.FormatS16P, spa.AudioFormatS16P, 2},
	{audio.FormatS32P, spa.AudioFormatS32P, 4},

	{audio.FormatFloatP, spa.AudioFormatF32P, 4},
	{audio.FormatDoubleP, spa.AudioFormatF64P, 8},
}

func lookupFormat(f audio.SampleFormat) (formatDesc, error) {
	for _, d := range formats {
		if d.format == f {
			return d, nil
		}
	}
	return formatDesc{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
}

// frameStride is the size of one frame in one plane
func (d formatDesc) frameStride(channels int) int {
	if d.format.IsPlanar() {
		return d.stride
	}
	return d.stride * channels
}
