// ABOUTME: Decode adapter package
// ABOUTME: Pulls compressed audio through a Stream into a bounded ring buffer
// Package decode adapts compressed audio decoders to a fixed PCM output.
//
// A Stream yields 16-bit interleaved frames in its own byte order. A Session
// pulls whole frames from the stream into a ring buffer, converting to the
// requested target byte order exactly once on the way in.
//
// Supported streams: Ogg Vorbis, Ogg Opus, MP3, FLAC and raw 16-bit PCM.
//
// Example:
//
//	stream, err := decode.Open("track.flac")
//	if err != nil {
//		return err
//	}
//	sess, err := decode.NewSession(stream, decode.Options{TargetOrder: binary.LittleEndian})
//	if err != nil {
//		return err
//	}
//	defer sess.Close()
//	io.Copy(w, sess)
package decode
