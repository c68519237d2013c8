package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"

	log "log/slog"

	"sage/internal/assistant"
	"sage/internal/audio"
	"sage/internal/bus"
	"sage/internal/chat"
	"sage/internal/completion"
	"sage/internal/config"
	"sage/internal/ipc"
	"sage/internal/notify"
	"sage/internal/proxy"
	"sage/internal/tts"
	"sage/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	var cfg config.Daemon
	cfg.RegisterFlags(cli.CommandLine)
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[cfg.LogLevel],
	})))

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	log.Info("Booting up")

	settings, err := config.InitialSettings(cfg.EnvFile, os.Getenv)
	if err != nil {
		log.Error("Failed to load settings", "env", cfg.EnvFile, "err", err)
		os.Exit(1)
	}
	if settings.APIKey == "" {
		log.Warn("OPENAI_API_KEY not set, queries fail until a key is saved")
	}

	httpClient, err := proxy.NewHTTPClient(cfg.Proxy, cfg.RequestTimeout)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", cfg.Proxy, "err", err)
		os.Exit(1)
	}

	llm := completion.NewClient(
		completion.WithHTTPClient(httpClient),
		completion.WithBaseURL(cfg.BaseURL),
		completion.WithTimeout(cfg.RequestTimeout),
	)

	log.Debug("Loaded completion client", "model", cfg.Model, "proxy", cfg.Proxy != "")

	renderer := chat.Multi{chat.LogRenderer{}}

	var hub *bus.Bus
	if cfg.BusURL != "" {
		hub, err = bus.Dial(cfg.BusURL)
		if err != nil {
			log.Error("Failed to connect to bus", "url", cfg.BusURL, "err", err)
			os.Exit(1)
		}
		defer hub.Close()
		renderer = append(renderer, hub)
	}

	voice := tts.NewSpeaker(cfg.Voice)
	defer voice.Close()

	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer rec.Close()

	log.Debug("Loaded recorder")

	whisper, err := stt.NewTranscriber(cfg.WhisperModel)
	if err != nil {
		log.Error("Failed to init whisper", "model", cfg.WhisperModel, "err", err)
		os.Exit(1)
	}
	defer whisper.Close()

	log.Debug("Loaded whisper")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	asst := assistant.New(assistant.Options{
		Settings:  config.NewStore(settings),
		Completer: llm,
		Renderer:  renderer,
		Speaker:   voice,
		Model:     cfg.Model,
	})
	listener := audio.NewListener(rec, whisper, stt.Options{Language: cfg.Language})

	d := newDaemon(ctx, asst, listener, notify.NewBeeper(cfg.BeepFile), voice, cfg.PassiveBackoff)
	d.syncPassive()

	if hub != nil {
		go d.pumpBus(hub)
	}

	ln, err := ipc.StartServer(cfg.Socket, d.handle)
	if err != nil {
		log.Error("Failed ipc server", "socket", cfg.Socket, "err", err)
		os.Exit(1)
	}
	defer ln.Close()

	log.Info("Boot up - successful", "socket", cfg.Socket, "passive", settings.PassiveMode)

	<-ctx.Done()

	log.Info("Shutting down")
	d.passive.Stop()
	voice.Stop()
}
