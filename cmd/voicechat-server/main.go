// voicechat-server: HTTP API for text generation, transcription and
// server-hosted conversations with a websocket event stream.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-voicechat/internal/config"
	"github.com/teslashibe/go-voicechat/internal/httpc"
	"github.com/teslashibe/go-voicechat/internal/log"
	"github.com/teslashibe/go-voicechat/internal/services"
	"github.com/teslashibe/go-voicechat/pkg/chat"
	"github.com/teslashibe/go-voicechat/pkg/web"
)

var version = "dev"

func main() {
	config.Load()

	var (
		port          = flag.Int("port", config.Port(), "HTTP server port")
		logLevel      = flag.String("log-level", config.LogLevel(), "Log level: debug, info, warn, error")
		accessLog     = flag.Bool("access-log", config.Bool("ACCESS_LOG", false), "Log every request")
		conversations = flag.Bool("conversations", config.Bool("HOSTED_CONVERSATIONS", true), "Serve /api/conversations")
	)
	flag.Parse()

	log.Init(*logLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *port, *accessLog, *conversations); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, port int, accessLog, conversations bool) error {
	logger := log.L()
	httpc.UserAgent = "voicechat-server/" + version
	providers := config.ProvidersFromEnv()

	gen, genProvider, err := services.Generator(ctx, providers, logger)
	if err != nil {
		return err
	}
	defer genProvider.Close()

	transcriber, sttProvider, err := services.Transcriber(providers, logger)
	if err != nil {
		return err
	}
	defer sttProvider.Close()

	opts := []web.Option{
		web.WithGenerator(gen),
		web.WithTranscriber(transcriber),
		web.WithVersion(version),
		web.WithLogger(logger),
	}
	if accessLog {
		opts = append(opts, web.WithAccessLog(os.Stderr))
	}

	if conversations {
		storeCfg := config.StoreFromEnv()
		storage, err := services.Storage(ctx, storeCfg)
		if err != nil {
			return fmt.Errorf("open %s storage: %w", storeCfg.Backend, err)
		}
		defer storage.Close()
		store := chat.NewStore(ctx, storage, chat.WithStoreLogger(logger))
		logger.Info("conversations loaded", "backend", storage.Name(), "count", store.Len())
		opts = append(opts, web.WithStore(store))
	}

	srv, err := web.New(opts...)
	if err != nil {
		return err
	}

	logger.Info("starting voicechat server",
		"version", version,
		"port", port,
		"conversations", conversations,
	)
	err = srv.ListenAndServe(ctx, fmt.Sprintf(":%d", port))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
