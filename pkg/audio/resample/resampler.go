// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Used to feed the Opus encoder when the source rate is not an Opus rate
package resample

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	// position is the next output point, in input frames, measured from
	// the carried last frame when primed
	position float64
	last     []int16 // one sample per channel
	primed   bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		last:       make([]int16, channels),
	}
}

// InputRate returns the source sample rate
func (r *Resampler) InputRate() int { return r.inputRate }

// OutputRate returns the target sample rate
func (r *Resampler) OutputRate() int { return r.outputRate }

// Resample converts interleaved input at inputRate and appends the
// interleaved result at outputRate to dst
func (r *Resampler) Resample(dst []int16, input []int16) []int16 {
	frames := len(input) / r.channels
	if frames == 0 {
		return dst
	}

	// virtual input: the carried frame (when primed) followed by input
	n := frames
	offset := 0
	if r.primed {
		n++
		offset = 1
	}
	sample := func(i, ch int) int16 {
		if i < offset {
			return r.last[ch]
		}
		return input[(i-offset)*r.channels+ch]
	}

	for {
		idx := int(r.position)
		if idx+1 >= n {
			break
		}

		// Linear interpolation factor
		frac := r.position - float64(idx)
		for ch := 0; ch < r.channels; ch++ {
			s1 := float64(sample(idx, ch))
			s2 := float64(sample(idx+1, ch))
			dst = append(dst, int16(s1*(1.0-frac)+s2*frac))
		}
		r.position += r.ratio
	}

	// the final input frame becomes the carried frame at index 0
	r.position -= float64(n - 1)
	copy(r.last, input[(frames-1)*r.channels:])
	r.primed = true
	return dst
}

// Flush appends the output points that fall on or after the last input
// frame, holding its value, and resets the resampler
func (r *Resampler) Flush(dst []int16) []int16 {
	if r.primed {
		for r.position < 1 {
			dst = append(dst, r.last...)
			r.position += r.ratio
		}
	}
	r.Reset()
	return dst
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0.0
	r.primed = false
	for i := range r.last {
		r.last[i] = 0
	}
}

// OutputFrames estimates how many output frames inputFrames produce
func (r *Resampler) OutputFrames(inputFrames int) int {
	return int(float64(inputFrames) / r.ratio)
}
