// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Used to convert between different sample rates using linear interpolation
package resample

import "math"

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	// position is measured in input frames from the first frame of the
	// current chunk, which is lastSample once primed
	position   float64
	lastSample []int32 // one sample per channel
	primed     bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		position:   0.0,
		lastSample: make([]int32, channels),
	}
}

// InputRate returns the rate samples are expected in
func (r *Resampler) InputRate() int {
	return r.inputRate
}

// OutputRate returns the rate samples are produced at
func (r *Resampler) OutputRate() int {
	return r.outputRate
}

// Resample converts input samples to output sample rate using linear interpolation.
// The last input frame is kept and interpolated against the next call's
// first frame, so chunks join without gaps.
// input: interleaved samples at inputRate
// output: interleaved samples at outputRate, sized with OutputSamplesNeeded
func (r *Resampler) Resample(input []int32, output []int32) int {
	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return 0
	}

	offset := 0
	if r.primed {
		offset = 1
	}
	total := inputFrames + offset

	sample := func(frame, ch int) int32 {
		if frame < offset {
			return r.lastSample[ch]
		}
		return input[(frame-offset)*r.channels+ch]
	}

	outputFrames := len(output) / r.channels
	outIdx := 0
	for outIdx < outputFrames {
		inputIdx := int(r.position)
		if inputIdx+1 >= total {
			break
		}

		// Linear interpolation factor
		frac := r.position - float64(inputIdx)

		for ch := 0; ch < r.channels; ch++ {
			sample1 := sample(inputIdx, ch)
			sample2 := sample(inputIdx+1, ch)
			interpolated := float64(sample1)*(1.0-frac) + float64(sample2)*frac
			output[outIdx*r.channels+ch] = int32(math.Round(interpolated))
		}

		outIdx++
		r.position += r.ratio
	}

	copy(r.lastSample, input[(inputFrames-1)*r.channels:inputFrames*r.channels])
	r.primed = true
	r.position = max(r.position-float64(total-1), 0)

	return outIdx * r.channels
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0.0
	r.primed = false
	for i := range r.lastSample {
		r.lastSample[i] = 0
	}
}

// OutputSamplesNeeded calculates how much output room a call with
// inputSamples samples may need
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples/r.channels + 1
	outputFrames := int(math.Ceil(float64(inputFrames)/r.ratio)) + 1
	return outputFrames * r.channels
}

// InputSamplesNeeded calculates how many input samples are needed to produce output samples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(math.Ceil(float64(outputFrames) * float64(r.inputRate) / float64(r.outputRate)))
	return inputFrames * r.channels
}
