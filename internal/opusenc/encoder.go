// ABOUTME: libopus encoder with the full rate control surface
// ABOUTME: Exposes VBR and VBR constraint controls alongside bitrate and complexity
package opusenc

import (
	"fmt"
	"unsafe"

	"gopkg.in/hraban/opus.v2"
)

/*
#cgo pkg-config: opus
#include <opus.h>

int
bridge_encoder_set_vbr(OpusEncoder *st, opus_int32 vbr)
{
	return opus_encoder_ctl(st, OPUS_SET_VBR(vbr));
}

int
bridge_encoder_get_vbr(OpusEncoder *st, opus_int32 *vbr)
{
	return opus_encoder_ctl(st, OPUS_GET_VBR(vbr));
}

int
bridge_encoder_set_vbr_constraint(OpusEncoder *st, opus_int32 constrained)
{
	return opus_encoder_ctl(st, OPUS_SET_VBR_CONSTRAINT(constrained));
}

int
bridge_encoder_get_vbr_constraint(OpusEncoder *st, opus_int32 *constrained)
{
	return opus_encoder_ctl(st, OPUS_GET_VBR_CONSTRAINT(constrained));
}

int
bridge_encoder_set_bitrate(OpusEncoder *st, opus_int32 bitrate)
{
	return opus_encoder_ctl(st, OPUS_SET_BITRATE(bitrate));
}

int
bridge_encoder_get_bitrate(OpusEncoder *st, opus_int32 *bitrate)
{
	return opus_encoder_ctl(st, OPUS_GET_BITRATE(bitrate));
}

int
bridge_encoder_set_complexity(OpusEncoder *st, opus_int32 complexity)
{
	return opus_encoder_ctl(st, OPUS_SET_COMPLEXITY(complexity));
}

int
bridge_encoder_get_complexity(OpusEncoder *st, opus_int32 *complexity)
{
	return opus_encoder_ctl(st, OPUS_GET_COMPLEXITY(complexity));
}
*/
import "C"

// Encoder is a libopus encoder in the audio application mode. Its state
// lives on the Go heap.
type Encoder struct {
	p        *C.struct_OpusEncoder
	channels int
	mem      []byte
}

// New creates an encoder for mono or stereo audio at one of the Opus rates
func New(sampleRate, channels int) (*Encoder, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("opus encoder supports 1 or 2 channels, got %d", channels)
	}

	size := C.opus_encoder_get_size(C.int(channels))
	enc := &Encoder{channels: channels, mem: make([]byte, size)}
	enc.p = (*C.OpusEncoder)(unsafe.Pointer(&enc.mem[0]))
	errno := C.opus_encoder_init(enc.p, C.opus_int32(sampleRate), C.int(channels),
		C.int(C.OPUS_APPLICATION_AUDIO))
	if errno != C.OPUS_OK {
		return nil, opus.Error(int(errno))
	}
	return enc, nil
}

// Encode compresses one frame of interleaved pcm into data and returns
// the packet length
func (enc *Encoder) Encode(pcm []int16, data []byte) (int, error) {
	if len(pcm) == 0 || len(pcm)%enc.channels != 0 {
		return 0, fmt.Errorf("opus: pcm length %d is not a whole number of frames", len(pcm))
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("opus: no target buffer")
	}

	n := C.opus_encode(enc.p,
		(*C.opus_int16)(&pcm[0]),
		C.int(len(pcm)/enc.channels),
		(*C.uchar)(&data[0]),
		C.opus_int32(len(data)))
	if n < 0 {
		return 0, opus.Error(int(n))
	}
	return int(n), nil
}

// SetVBR switches between variable (true) and hard constant bitrate
func (enc *Encoder) SetVBR(vbr bool) error {
	return check(C.bridge_encoder_set_vbr(enc.p, cbool(vbr)))
}

// VBR reports whether variable bitrate is enabled
func (enc *Encoder) VBR() (bool, error) {
	var v C.opus_int32
	err := check(C.bridge_encoder_get_vbr(enc.p, &v))
	return v != 0, err
}

// SetVBRConstraint limits VBR to the bitrate over short windows
func (enc *Encoder) SetVBRConstraint(constrained bool) error {
	return check(C.bridge_encoder_set_vbr_constraint(enc.p, cbool(constrained)))
}

// VBRConstraint reports whether constrained VBR is enabled
func (enc *Encoder) VBRConstraint() (bool, error) {
	var v C.opus_int32
	err := check(C.bridge_encoder_get_vbr_constraint(enc.p, &v))
	return v != 0, err
}

// SetBitrate sets the target bitrate in bits per second
func (enc *Encoder) SetBitrate(bitrate int) error {
	return check(C.bridge_encoder_set_bitrate(enc.p, C.opus_int32(bitrate)))
}

// Bitrate returns the target bitrate in bits per second
func (enc *Encoder) Bitrate() (int, error) {
	var v C.opus_int32
	err := check(C.bridge_encoder_get_bitrate(enc.p, &v))
	return int(v), err
}

// SetComplexity sets the encoder complexity, 0 to 10
func (enc *Encoder) SetComplexity(complexity int) error {
	return check(C.bridge_encoder_set_complexity(enc.p, C.opus_int32(complexity)))
}

// Complexity returns the encoder complexity
func (enc *Encoder) Complexity() (int, error) {
	var v C.opus_int32
	err := check(C.bridge_encoder_get_complexity(enc.p, &v))
	return int(v), err
}

func check(res C.int) error {
	if res != C.OPUS_OK {
		return opus.Error(int(res))
	}
	return nil
}

func cbool(b bool) C.opus_int32 {
	if b {
		return 1
	}
	return 0
}
