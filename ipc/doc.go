// Package ipc implements the proxy client: a lightweight in-process handle
// that forwards method calls to a long-lived worker process over a message
// channel.
//
// # Architecture
//
// Each Client owns a channel.Channel, a callback table, and a
// pending-request table, and runs one background receive loop started at
// construction. Foreground calls dispatch a Request and suspend on their
// pending entry; the loop routes inbound messages concurrently:
//
//   - Response: resolves the pending request with the matching id
//   - CallbackInvoke: runs the registered callable and answers with a
//     CallbackResult
//   - Shutdown: flips the running flag; the loop keeps draining until the
//     channel closes
//
// Requests may resolve out of order; routing is strictly by id. Arguments
// carrying callback capability (progress callbacks, chunked file-content
// providers) are substituted with tokens by the params package before
// transmission and invoked back in this process on demand.
//
// # Sessions
//
// A process-wide Registry maps each session identifier to its single live
// client. The registry is constructed once and injected; registering a new
// client for a session replaces the previous entry, and Unreference
// removes it.
//
// # Cancellation
//
// Every blocking operation takes a context.Context. Cancelling the context
// of a pending call abandons the request: the entry is removed and a later
// Response for its id is discarded harmlessly.
package ipc
