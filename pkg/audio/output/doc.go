// ABOUTME: Audio output package for playing decoded PCM
// ABOUTME: Provides the Output interface and an oto implementation
// Package output plays 16-bit little-endian PCM on the default audio device.
//
// Example:
//
//	out := output.NewOto()
//	err := out.Open(sess.Format())
//	_, err = io.Copy(out, sess)
//	err = out.Close()
package output
