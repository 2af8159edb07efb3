// ABOUTME: Transfer controller shared by the decode and encode adapters
// ABOUTME: Outcomes, error taxonomy, cancellation and throttled progress
// Package transfer holds the contract both codec directions agree on:
//   - Outcome and Result: exactly one terminal outcome per session
//   - the error taxonomy (ConfigurationError, DecodeStreamError, AllocationError,
//     ErrStopRequested, SinkCloseWarning)
//   - Observer: lifecycle and progress callbacks for the host application
//   - Canceller and StopFlag: cooperative stop requests polled at a throttled cadence
//
// Example:
//
//	stop := &transfer.StopFlag{}
//	go func() { <-quit; stop.Request() }()
//	res := session.Run(ctx, src, sink) // session built with Canceller: stop.Requested
//	if res.Outcome == transfer.Failed {
//	    log.Printf("encode failed: %v", res.Err)
//	}
package transfer
