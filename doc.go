// Package madelineproto provides a cross-process proxy client for a
// long-lived worker process.
//
// The worker holds the real network client state; callers in other
// processes talk to it through a lightweight in-process handle that
// forwards method calls over a bidirectional message channel. Runtime
// values that cannot be serialized (progress callbacks, chunked
// file-content providers) cross the boundary as tokens and are invoked
// back in the calling process on demand.
//
// # Architecture
//
// The library is organized into layers:
//
//   - ipc: the proxy client, session registry, and lifecycle control
//   - params: argument marshalling and the callback token table
//   - wire: the message protocol (request/response, callback invocation,
//     shutdown)
//   - channel: message framing over a byte stream, with a hook for
//     stream-level encryption
//   - session: logical session name resolution
//
// # Basic Usage
//
//	id, err := session.Resolve("main-account")
//	if err != nil {
//	    return err
//	}
//
//	registry := ipc.NewRegistry()
//	client := ipc.New(id, channel.NewStream(conn), registry)
//	defer client.Unreference(ctx)
//
//	ref, err := client.UploadFromURL(ctx, url, ipc.TransferOptions{})
//
// # Transport Agnostic
//
// The channel package frames messages over any io.ReadWriter; the
// underlying transport (unix socket, child-process stdio, TCP) and its
// encryption are supplied by the caller.
package madelineproto

// Version is the library version.
const Version = "0.1.0-dev"
