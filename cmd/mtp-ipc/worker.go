package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"

	"github.com/vaibhav93076/MadelineProto/channel"
	"github.com/vaibhav93076/MadelineProto/wire"
)

// worker is a loopback stand-in for the real worker process: it serves the
// IPC protocol over one end of a pipe so the demo runs self-contained. The
// real worker holds the network client state and speaks the remote
// protocol; this one just stores uploads in memory.
type worker struct {
	ch    *channel.Stream
	log   zerolog.Logger
	files map[string][]byte
	seq   int
}

func runWorker(rw io.ReadWriter, log zerolog.Logger) error {
	w := &worker{
		ch:    channel.NewStream(rw),
		log:   log.With().Str("role", "worker").Logger(),
		files: make(map[string][]byte),
	}
	return w.serve()
}

func (w *worker) serve() error {
	ctx := context.Background()
	for {
		msg, err := w.ch.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, wire.ErrProtocol) {
				w.log.Warn().Err(err).Msg("skipping malformed message")
				continue
			}
			return err
		}

		switch msg.Kind {
		case wire.KindRequest:
			w.handleRequest(msg)
		case wire.KindShutdown:
			w.log.Info().Msg("shutdown requested")
			return nil
		default:
			w.log.Warn().Str("kind", string(msg.Kind)).Msg("unexpected message")
		}
	}
}

func (w *worker) handleRequest(req *wire.Message) {
	result, err := w.dispatch(req)
	if req.Method == "touch" {
		// Fire-and-forget; the client is not waiting.
		return
	}
	if err != nil {
		w.reply(wire.NewResponse(req.ID, nil, &wire.RemoteError{Code: "WORKER_ERROR", Message: err.Error()}))
		return
	}
	w.reply(wire.NewResponse(req.ID, result, nil))
}

func (w *worker) dispatch(req *wire.Message) (any, error) {
	switch req.Method {
	case "ping", "touch":
		return nil, nil
	case "upload.fromURL":
		return w.uploadFromURL(req.Args)
	case "upload.fromCallable":
		return w.uploadFromCallable(req.Args)
	case "download.toCallable":
		return w.downloadToCallable(req.Args)
	case "media.send":
		return w.sendMedia(req.Args)
	default:
		return nil, fmt.Errorf("unknown method %s", req.Method)
	}
}

func (w *worker) uploadFromURL(args []any) (any, error) {
	if len(args) < 1 {
		return nil, errors.New("upload.fromURL: missing url")
	}
	url, _ := args[0].(string)
	ref := w.store(url, []byte("fetched:"+url))
	return ref, nil
}

func (w *worker) uploadFromCallable(args []any) (any, error) {
	if len(args) < 3 {
		return nil, errors.New("upload.fromCallable: want 3 arguments")
	}
	file, ok := callbackRef(args[0])
	if !ok {
		return nil, errors.New("upload.fromCallable: first argument is not a callback descriptor")
	}
	partSize := toInt(args[1])
	if partSize <= 0 {
		partSize = 64 << 10
	}
	progress, hasProgress := callbackRef(args[2])

	content := make([]byte, 0, file.Size)
	for offset := int64(0); offset < file.Size; offset += int64(partSize) {
		limit := int64(partSize)
		if remaining := file.Size - offset; remaining < limit {
			limit = remaining
		}
		chunk, err := w.invokeChunk(file.Token, offset, limit)
		if err != nil {
			return nil, fmt.Errorf("read chunk at %d: %w", offset, err)
		}
		content = append(content, chunk...)

		if hasProgress {
			if err := w.invokeProgress(progress.Token, int64(len(content)), file.Size); err != nil {
				return nil, fmt.Errorf("report progress: %w", err)
			}
		}
	}

	return w.store(file.Name, content), nil
}

func (w *worker) downloadToCallable(args []any) (any, error) {
	if len(args) < 3 {
		return nil, errors.New("download.toCallable: want 3 arguments")
	}
	var ref struct {
		ID string `json:"id"`
	}
	if err := decodeInto(args[0], &ref); err != nil {
		return nil, err
	}
	sink, ok := callbackRef(args[1])
	if !ok {
		return nil, errors.New("download.toCallable: second argument is not a callback descriptor")
	}
	progress, hasProgress := callbackRef(args[2])

	content, ok := w.files[ref.ID]
	if !ok {
		return nil, fmt.Errorf("no stored file %s", ref.ID)
	}

	const partSize = 64 << 10
	for offset := 0; offset < len(content); offset += partSize {
		end := offset + partSize
		if end > len(content) {
			end = len(content)
		}
		if _, err := w.invokeCallback(sink.Token, []any{offset, content[offset:end]}); err != nil {
			return nil, fmt.Errorf("deliver chunk at %d: %w", offset, err)
		}
		if hasProgress {
			if err := w.invokeProgress(progress.Token, int64(end), int64(len(content))); err != nil {
				return nil, fmt.Errorf("report progress: %w", err)
			}
		}
	}
	return nil, nil
}

func (w *worker) sendMedia(args []any) (any, error) {
	if len(args) < 2 {
		return nil, errors.New("media.send: want peer and items")
	}
	items, ok := args[1].([]any)
	if !ok && args[1] != nil {
		return nil, fmt.Errorf("media.send: expected item list, got %T", args[1])
	}

	refs := make([]any, 0, len(items))
	for i, raw := range items {
		var item struct {
			Kind string `json:"kind"`
			File any    `json:"file"`
		}
		if err := decodeInto(raw, &item); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		if file, ok := callbackRef(item.File); ok {
			chunk, err := w.invokeChunk(file.Token, 0, file.Size)
			if err != nil {
				return nil, fmt.Errorf("item %d content: %w", i, err)
			}
			refs = append(refs, w.store(file.Name, chunk))
			continue
		}
		// URL or existing reference; nothing to pull from the client.
		refs = append(refs, w.store(fmt.Sprintf("%s-%d", item.Kind, i), nil))
	}
	return refs, nil
}

// invokeChunk asks the client for the next file chunk. Chunks arrive
// base64-encoded, the JSON form of byte slices.
func (w *worker) invokeChunk(token uint64, offset, limit int64) ([]byte, error) {
	result, err := w.invokeCallback(token, []any{offset, limit})
	if err != nil {
		return nil, err
	}
	encoded, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("expected base64 chunk, got %T", result)
	}
	return base64.StdEncoding.DecodeString(encoded)
}

func (w *worker) invokeProgress(token uint64, transferred, total int64) error {
	_, err := w.invokeCallback(token, []any{transferred, total})
	return err
}

// invokeCallback sends a CallbackInvoke and waits for the matching
// CallbackResult. The demo flow is sequential, so no other traffic is
// expected in between.
func (w *worker) invokeCallback(token uint64, args []any) (any, error) {
	if err := w.ch.Send(wire.NewCallbackInvoke(token, args)); err != nil {
		return nil, err
	}

	for {
		msg, err := w.ch.Receive(context.Background())
		if err != nil {
			return nil, err
		}
		if msg.Kind != wire.KindCallbackResult || msg.Token != token {
			w.log.Warn().Str("kind", string(msg.Kind)).Msg("unexpected message while awaiting callback result")
			continue
		}
		if msg.Err != nil {
			return nil, msg.Err
		}
		return msg.Result, nil
	}
}

func (w *worker) store(name string, content []byte) map[string]any {
	w.seq++
	id := fmt.Sprintf("file-%d", w.seq)
	w.files[id] = content
	w.log.Info().Str("id", id).Str("name", name).Int("bytes", len(content)).Msg("stored upload")
	return map[string]any{
		"id":    id,
		"name":  name,
		"size":  len(content),
		"parts": 1,
	}
}

func (w *worker) reply(msg *wire.Message) {
	if err := w.ch.Send(msg); err != nil {
		w.log.Warn().Err(err).Msg("send response failed")
	}
}

// callbackRef decodes a callback token descriptor from its generic JSON
// form.
func callbackRef(v any) (wire.CallbackRef, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return wire.CallbackRef{}, false
	}
	if _, ok := m["_callback"]; !ok {
		return wire.CallbackRef{}, false
	}
	var ref wire.CallbackRef
	if err := decodeInto(m, &ref); err != nil {
		return wire.CallbackRef{}, false
	}
	return ref, ref.Token != 0
}

func decodeInto(v any, into any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           into,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
