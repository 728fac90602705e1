// entry point of the application
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/lrstanley/go-ytdlp"

	"reelbatch/internal/archive"
	"reelbatch/internal/config"
	"reelbatch/internal/credential"
	"reelbatch/internal/encoder"
	httprouter "reelbatch/internal/infrastructure/delivery/http"
	"reelbatch/internal/observability"
	"reelbatch/internal/pipeline"
	"reelbatch/internal/proxy"
	"reelbatch/internal/retriever"
	"reelbatch/internal/service"
	"reelbatch/internal/storage"
	httpserver "reelbatch/pkg/http/server"
	"reelbatch/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		slog.Error("config new", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Options{
		AddSource: true,
		Level:     cfg.App.LogLevel,
	})
	if err != nil {
		slog.WarnContext(ctx, "logger level invalid; defaulting to info", slog.Any("error", err))
	}

	metrics := observability.New()

	log.InfoContext(ctx, "checking if yt-dlp is installed. it may take some time...")

	if _, err := ytdlp.Install(ctx, nil); err != nil {
		log.WarnContext(ctx, "yt-dlp install check failed; retrieval may not work", slog.Any("error", err))
	}

	// Proxy manager is optional; nil means direct connections.
	var proxyMgr *proxy.Manager
	if len(cfg.Proxy.URLs) > 0 {
		proxyMgr, err = proxy.New(cfg.Proxy.URLs, cfg.Proxy.HealthCheck, cfg.Proxy.HealthTimeout)
		if err != nil {
			log.ErrorContext(ctx, "proxy manager init", slog.Any("error", err))
			stop()
			os.Exit(1)
		}

		log.InfoContext(ctx, "proxy manager initialized", slog.Int("proxy_count", proxyMgr.Count()))
	}

	profile, err := encoder.NewProfile(cfg.Encode)
	if err != nil {
		log.ErrorContext(ctx, "encode profile", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	ret := retriever.NewAuto(
		retriever.NewYTdlp(log, cfg, proxyMgr, metrics),
		retriever.NewNative(log, cfg, metrics),
	)
	enc := encoder.NewFFmpeg(log, cfg.Encode, profile)
	pipe := pipeline.New(log, cfg, ret, enc)

	storer := storage.New(ctx, log, cfg, metrics)
	packager := archive.New(log, metrics)
	resolver := credential.NewResolver(log, cfg)

	svc := service.New(log, cfg, storer, pipe, packager, resolver, storer, metrics)

	router := httprouter.New(log, svc, metrics)

	httpSrv := httpserver.New(router, httpserver.Options{
		Addr:            cfg.HTTP.Port,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})

	svc.Start(ctx)

	log.InfoContext(ctx, "reelbatch started", slog.String("port", cfg.HTTP.Port))

	<-ctx.Done()

	err = httpSrv.Shutdown()
	if err != nil {
		log.Error(err.Error())
	}

	log.InfoContext(ctx, "reelbatch shut down gracefully")
}
