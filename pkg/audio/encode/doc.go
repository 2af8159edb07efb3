// ABOUTME: Encode adapter package
// ABOUTME: Streams arbitrary bit depth PCM through a codec library with progress and stop support
// Package encode drives a codec library from a PCM source.
//
// A Session reads fixed windows from a pcm.Source, normalizes them to
// 16-bit samples and writes them to an encoder handle created by a Library.
// It polls for a stop request and reports progress every few windows, and
// always releases the encoder, the comments and the output sink before it
// returns its transfer.Result.
//
// Libraries: OggOpus (libopus via hraban/opus) and WAV (uncompressed,
// go-audio/wav).
//
// Example:
//
//	sess, err := encode.NewSession(encode.Options{
//		Settings: encode.Settings{Mode: encode.VBR, BitrateIndex: 3, Complexity: 10},
//		Library:  encode.NewOggOpus(),
//	})
//	if err != nil {
//		return err
//	}
//	result := sess.Run(ctx, src, encode.FileSink("out.opus"))
package encode
