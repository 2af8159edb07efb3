// Package player moves decoded audio from a decode session to a consumer.
//
// Pump runs the decoder and the consumer on separate goroutines that share
// the session ring buffer under a mutex. Play does the same into an audio
// device from the output package.
package player
