// ABOUTME: Plays a decode session on an audio output device
// ABOUTME: Opens the output at the session format and pumps into it
package player

import (
	"context"
	"fmt"
	"log"

	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

// Play opens out at the session format and pumps the session into it.
// A failure to release the device is reported as the Result warning.
func Play(ctx context.Context, sess *decode.Session, out output.Output, opts Options) transfer.Result {
	opts = opts.withDefaults()

	if err := out.Open(sess.Format()); err != nil {
		var res transfer.Result
		res.Started = opts.Clock()
		res.Fail(fmt.Errorf("failed to open output: %w", err))
		res.Finished = res.Started
		transfer.Notify(opts.Observer, res)
		return res
	}

	res := Pump(ctx, sess, out, opts)
	if err := out.Close(); err != nil {
		log.Printf("[decode %s] Warning: failed to close output: %v", sess.ID(), err)
		res.Warning = &transfer.SinkCloseWarning{Err: err}
	}
	return res
}
