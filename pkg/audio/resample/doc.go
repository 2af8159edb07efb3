// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts 16-bit interleaved audio between sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates.
// Handles both upsampling and downsampling, and carries the last input
// frame across calls so chunked input resamples the same as one block.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	out = r.Resample(out[:0], inputSamples)
//	out = r.Flush(out)
package resample
