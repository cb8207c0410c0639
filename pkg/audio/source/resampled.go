// ABOUTME: Sample rate conversion for readers
// ABOUTME: Wraps a Reader so it produces audio at a fixed output rate
package source

import (
	"errors"
	"io"

	"github.com/Resonate-Protocol/resonate-ao/pkg/audio/resample"
)

// Resample returns a reader producing r's audio at rate. Readers already at
// rate are returned unchanged.
func Resample(r Reader, rate int) Reader {
	if rate <= 0 || r.SampleRate() == rate {
		return r
	}
	return &resampled{
		Reader: r,
		rs:     resample.New(r.SampleRate(), rate, r.Channels()),
	}
}

type resampled struct {
	Reader
	rs *resample.Resampler

	in      []int32
	out     []int32
	pending []int32
	eof     bool
}

func (r *resampled) SampleRate() int { return r.rs.OutputRate() }

func (r *resampled) Read(samples []int32) (int, error) {
	channels := r.Reader.Channels()
	n := 0
	for n < len(samples) {
		if len(r.pending) == 0 {
			if r.eof {
				break
			}
			if err := r.fill(len(samples)-n, channels); err != nil {
				return n, err
			}
			continue
		}
		c := copy(samples[n:], r.pending)
		r.pending = r.pending[c:]
		n += c
	}

	if n == 0 && r.eof {
		return 0, io.EOF
	}
	return n, nil
}

// fill converts the next input chunk into pending
func (r *resampled) fill(want, channels int) error {
	size := r.rs.InputSamplesNeeded(want) + channels
	if cap(r.in) < size {
		r.in = make([]int32, size)
	}

	got, err := r.Reader.Read(r.in[:size])
	if errors.Is(err, io.EOF) {
		r.eof = true
	} else if err != nil {
		return err
	}
	if got == 0 {
		return nil
	}

	need := r.rs.OutputSamplesNeeded(got)
	if cap(r.out) < need {
		r.out = make([]int32, need)
	}
	k := r.rs.Resample(r.in[:got], r.out[:need])
	r.pending = r.out[:k]
	return nil
}
