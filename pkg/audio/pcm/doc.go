// Package pcm provides sources of interleaved PCM audio for encode
// sessions and a WAV writer for decoded output.
//
// A Source reports its format once and then hands out whole frames:
//
//	src, err := pcm.OpenFile("input.wav", audio.PCMFormat{})
//	if err != nil {
//		return err
//	}
//	defer src.Close()
//
//	buf := make([]byte, 8192)
//	frames, err := src.ReadAudio(buf, len(buf)/src.Format().BytesPerFrame())
//
// A return of zero frames means the source is exhausted.
package pcm
