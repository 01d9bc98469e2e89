package ipc

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/vaibhav93076/MadelineProto/params"
)

// Remote method names understood by the worker process.
const (
	methodPing               = "ping"
	methodTouch              = "touch"
	methodUploadFromURL      = "upload.fromURL"
	methodUploadFromCallable = "upload.fromCallable"
	methodDownloadToPath     = "download.toPath"
	methodDownloadToCallable = "download.toCallable"
	methodSendMedia          = "media.send"
)

// Declared argument schemas, one per remote method. The schemas drive the
// marshalling walk in params: only the positions named here may carry
// callback capability.
var (
	pingSchema  = params.Schema{}
	touchSchema = params.Schema{}

	// url, partSize, progress
	uploadFromURLSchema = params.Schema{
		{Kind: params.SlotValue},
		{Kind: params.SlotValue},
		{Kind: params.SlotCallback, Repeat: true},
	}

	// file provider, partSize, progress
	uploadFromCallableSchema = params.Schema{
		{Kind: params.SlotCallback, Repeat: true},
		{Kind: params.SlotValue},
		{Kind: params.SlotCallback, Repeat: true},
	}

	// file reference, destination path, progress
	downloadToPathSchema = params.Schema{
		{Kind: params.SlotValue},
		{Kind: params.SlotValue},
		{Kind: params.SlotCallback, Repeat: true},
	}

	// file reference, chunk sink, progress
	downloadToCallableSchema = params.Schema{
		{Kind: params.SlotValue},
		{Kind: params.SlotCallback, Repeat: true},
		{Kind: params.SlotCallback, Repeat: true},
	}

	// peer, media batch, progress
	sendMediaSchema = params.Schema{
		{Kind: params.SlotValue},
		{Kind: params.SlotMediaList, Repeat: true},
		{Kind: params.SlotCallback, Repeat: true},
	}
)

// FileRef identifies content stored on the worker's side after an upload,
// and is what download operations take as their source.
type FileRef struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Size  int64  `json:"size,omitempty"`
	Parts int    `json:"parts,omitempty"`
}

// TransferOptions configure upload and download operations.
//
// Progress is the canonical progress callback, invoked by the worker with
// (transferred, total) counters as the operation advances. StatusFunc is
// the older way of passing the same callable bare; when Progress is unset
// it is promoted into the canonical position.
//
// Deprecated: StatusFunc exists for callers of the previous API surface.
// New code should set Progress.
type TransferOptions struct {
	// PartSize is the chunk size in bytes; zero lets the worker choose.
	PartSize int
	// Progress is invoked repeatedly with (transferred, total).
	Progress *params.Callback
	// StatusFunc is the deprecated bare form of Progress.
	StatusFunc params.Callable
}

// normalize promotes a deprecated StatusFunc into the canonical Progress
// position. It returns the updated options and whether the deprecated
// callable was consumed; the input value is never mutated.
func (o TransferOptions) normalize() (TransferOptions, bool) {
	if o.Progress != nil || o.StatusFunc == nil {
		return o, false
	}
	o.Progress = params.NewCallback(o.StatusFunc)
	o.StatusFunc = nil
	return o, true
}

// Ping performs a round trip to the worker.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, methodPing, nil, pingSchema)
	return err
}

// Touch is a fire-and-forget keepalive: it returns as soon as the request
// is on the wire and never waits for a response.
func (c *Client) Touch(ctx context.Context) error {
	args, err := c.wrapper.WrapArgs(nil, touchSchema)
	if err != nil {
		return fmt.Errorf("wrap %s args: %w", methodTouch, err)
	}
	_, err = c.invoke(ctx, methodTouch, args, callOptions{noResponse: true})
	return err
}

// UploadFromURL has the worker fetch and store content from url.
func (c *Client) UploadFromURL(ctx context.Context, url string, opts TransferOptions) (*FileRef, error) {
	opts, _ = opts.normalize()
	args := []any{url, opts.PartSize, callbackArg(opts.Progress)}

	result, err := c.call(ctx, methodUploadFromURL, args, uploadFromURLSchema)
	if err != nil {
		return nil, err
	}
	return decodeFileRef(result)
}

// UploadFromCallable uploads content provided chunk by chunk: the worker
// invokes file's callable with (offset, limit) until it has read file.Size
// bytes.
func (c *Client) UploadFromCallable(ctx context.Context, file *params.FileCallback, opts TransferOptions) (*FileRef, error) {
	if file == nil {
		return nil, fmt.Errorf("%w: nil file provider", params.ErrSchemaMismatch)
	}
	opts, _ = opts.normalize()
	args := []any{file, opts.PartSize, callbackArg(opts.Progress)}

	result, err := c.call(ctx, methodUploadFromCallable, args, uploadFromCallableSchema)
	if err != nil {
		return nil, err
	}
	return decodeFileRef(result)
}

// DownloadToPath has the worker write the referenced content to a path on
// its own filesystem.
func (c *Client) DownloadToPath(ctx context.Context, ref FileRef, path string, opts TransferOptions) error {
	opts, _ = opts.normalize()
	args := []any{ref, path, callbackArg(opts.Progress)}

	_, err := c.call(ctx, methodDownloadToPath, args, downloadToPathSchema)
	return err
}

// DownloadToCallable streams the referenced content back into this
// process: the worker invokes sink repeatedly with (offset, chunk) until
// the content is exhausted.
func (c *Client) DownloadToCallable(ctx context.Context, ref FileRef, sink *params.Callback, opts TransferOptions) error {
	if sink == nil {
		return fmt.Errorf("%w: nil chunk sink", params.ErrSchemaMismatch)
	}
	opts, _ = opts.normalize()
	args := []any{ref, sink, callbackArg(opts.Progress)}

	_, err := c.call(ctx, methodDownloadToCallable, args, downloadToCallableSchema)
	return err
}

// SendMedia sends a batch of media items to peer. Each item's File may
// independently be a URL, an existing FileRef, or a callback-capable
// content provider; providers are tokenized per item.
func (c *Client) SendMedia(ctx context.Context, peer string, items []params.MediaItem, opts TransferOptions) ([]FileRef, error) {
	opts, _ = opts.normalize()
	args := []any{peer, items, callbackArg(opts.Progress)}

	result, err := c.call(ctx, methodSendMedia, args, sendMediaSchema)
	if err != nil {
		return nil, err
	}

	var refs []FileRef
	if err := decodeResult(result, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

// call wraps args against schema and dispatches method, waiting for the
// response.
func (c *Client) call(ctx context.Context, method string, args []any, schema params.Schema) (any, error) {
	wrapped, err := c.wrapper.WrapArgs(args, schema)
	if err != nil {
		return nil, fmt.Errorf("wrap %s args: %w", method, err)
	}
	return c.invoke(ctx, method, wrapped, callOptions{})
}

// callbackArg converts an optional callback into an argument slot value,
// avoiding a typed nil ending up in the interface.
func callbackArg(cb *params.Callback) any {
	if cb == nil {
		return nil
	}
	return cb
}

// decodeFileRef decodes a generic response payload into a FileRef.
func decodeFileRef(result any) (*FileRef, error) {
	ref := &FileRef{}
	if err := decodeResult(result, ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// decodeResult decodes a generic response payload into a typed value.
// Payloads arrive as the JSON-decoded forms (maps, slices, float64
// numbers), so decoding is weakly typed.
func decodeResult(result any, into any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           into,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("build result decoder: %w", err)
	}
	if err := dec.Decode(result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
