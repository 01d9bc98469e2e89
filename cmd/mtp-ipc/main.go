// Command mtp-ipc demonstrates the IPC proxy client against a loopback
// worker: it uploads a generated payload chunk by chunk, streams it back,
// sends a small media batch, and shuts the worker down.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/thanhpk/randstr"

	"github.com/vaibhav93076/MadelineProto/channel"
	"github.com/vaibhav93076/MadelineProto/ipc"
	"github.com/vaibhav93076/MadelineProto/params"
	"github.com/vaibhav93076/MadelineProto/session"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Str("app", "mtp-ipc").Logger()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("bad configuration")
	}
	if !cfg.Verbose {
		logger = logger.Level(zerolog.InfoLevel)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("demo failed")
	}
}

func run(cfg demoConfig, logger zerolog.Logger) error {
	clientEnd, workerEnd := net.Pipe()

	workerDone := make(chan error, 1)
	go func() {
		workerDone <- runWorker(workerEnd, logger)
	}()

	id, err := session.Resolve(cfg.Session)
	if err != nil {
		return fmt.Errorf("resolve session %q: %w", cfg.Session, err)
	}
	logger.Info().Str("session", cfg.Session).Str("id", id.String()).Msg("session resolved")

	registry := ipc.NewRegistry()
	client := ipc.New(id, channel.NewStream(clientEnd), registry, ipc.WithLogger(logger))

	ctx := context.Background()

	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	logger.Info().Msg("worker is up")

	// Upload a generated payload through a chunked file-content provider;
	// the worker pulls it back callback by callback.
	payload := randstr.Bytes(cfg.PayloadSize)
	name := "demo-" + randstr.Hex(4) + ".bin"
	file := params.NewFileCallback(name, int64(len(payload)), func(args ...any) (any, error) {
		offset, limit := asInt64(args[0]), asInt64(args[1])
		end := offset + limit
		if end > int64(len(payload)) {
			end = int64(len(payload))
		}
		return payload[offset:end], nil
	})

	progress := params.NewCallback(func(args ...any) (any, error) {
		transferred, total := asInt64(args[0]), asInt64(args[1])
		logger.Info().
			Str("transferred", humanize.Bytes(uint64(transferred))).
			Str("total", humanize.Bytes(uint64(total))).
			Msg("transfer progress")
		return nil, nil
	})

	ref, err := client.UploadFromCallable(ctx, file, ipc.TransferOptions{
		PartSize: cfg.PartSize,
		Progress: progress,
	})
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	logger.Info().Str("id", ref.ID).Str("size", humanize.Bytes(uint64(ref.Size))).Msg("upload complete")

	// Stream the content back and verify it survived the round trip.
	var downloaded bytes.Buffer
	sink := params.NewCallback(func(args ...any) (any, error) {
		chunk, err := base64.StdEncoding.DecodeString(args[1].(string))
		if err != nil {
			return nil, err
		}
		downloaded.Write(chunk)
		return nil, nil
	})
	if err := client.DownloadToCallable(ctx, *ref, sink, ipc.TransferOptions{}); err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if !bytes.Equal(downloaded.Bytes(), payload) {
		return fmt.Errorf("download mismatch: got %d bytes, sent %d", downloaded.Len(), len(payload))
	}
	logger.Info().Str("size", humanize.Bytes(uint64(downloaded.Len()))).Msg("download verified")

	// A small media batch: one remote URL, one provider-backed item.
	items := []params.MediaItem{
		{Kind: "photo", File: "https://example.org/cat.jpg"},
		{Kind: "document", File: params.NewFileCallback("notes.txt", 11, func(args ...any) (any, error) {
			return []byte("hello world"), nil
		})},
	}
	refs, err := client.SendMedia(ctx, "@demo", items, ipc.TransferOptions{})
	if err != nil {
		return fmt.Errorf("send media: %w", err)
	}
	logger.Info().Int("items", len(refs)).Msg("media batch sent")

	if err := client.StopWorker(ctx); err != nil {
		return fmt.Errorf("stop worker: %w", err)
	}
	if err := <-workerDone; err != nil {
		return fmt.Errorf("worker exited: %w", err)
	}

	client.Unreference(ctx)
	logger.Info().Msg("session unreferenced, bye")
	return nil
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}
