package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Versifine/platformer/internal/audio"
	"github.com/Versifine/platformer/internal/config"
	"github.com/Versifine/platformer/internal/debug"
	"github.com/Versifine/platformer/internal/event"
	"github.com/Versifine/platformer/internal/game"
	"github.com/Versifine/platformer/internal/logger"
	"github.com/Versifine/platformer/internal/script"
	"github.com/Versifine/platformer/internal/viewer"
	"github.com/Versifine/platformer/internal/world"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file")
	mode := flag.String("mode", "view", "front end: view, console or replay")
	scriptPath := flag.String("script", "configs/replay.yaml", "input script for replay mode")
	watch := flag.Bool("watch", false, "reload movement and camera settings when the config file changes")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Init(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *configPath, *mode, *scriptPath, *watch); err != nil {
		slog.Error("Platformer exited with error", "mode", *mode, "error", err)
		logger.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, configPath, mode, scriptPath string, watch bool) error {
	level, err := world.Load(cfg.Level.Path)
	if err != nil {
		return fmt.Errorf("load level: %w", err)
	}

	bus := event.NewBus()
	session, err := game.NewSession(cfg, level, bus)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	bus.Subscribe(event.EventScoreChanged, func(raw any) {
		if evt, ok := raw.(*event.ScoreEvent); ok {
			slog.Info("Score changed", "score", evt.Score, "total", evt.Total)
		}
	})

	var sound *audio.Player
	if mode != "replay" {
		sound = audio.NewPlayer(cfg.Audio)
		if err := sound.Init(); err != nil {
			slog.Warn("Audio unavailable, continuing without sound", "error", err)
		}
		sound.Subscribe(bus)
		defer sound.Close()
	}

	if watch {
		w, err := config.Watch(configPath)
		if err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		defer w.Close()
		go applyReloads(ctx, w, session, sound)
	}

	switch mode {
	case "view":
		v := viewer.New(session, level)
		v.Subscribe(bus)
		go func() {
			<-ctx.Done()
			v.Stop()
		}()
		return v.Run("platformer - " + level.Name())
	case "console":
		return debug.NewConsole(session).Start(ctx)
	case "replay":
		s, err := script.Load(scriptPath)
		if err != nil {
			return err
		}
		snap, err := script.Run(ctx, session, s, cfg.Simulation.FrameRate, func(i int, seg script.Segment) {
			slog.Info("Replay segment", "index", i, "label", seg.Label, "duration", seg.Duration)
		})
		if err != nil {
			return err
		}
		p := snap.Player.Position
		slog.Info("Replay finished",
			"script", s.Name,
			"frames", snap.Frame,
			"position", fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Z),
			"score", snap.ScoreText,
			"respawns", snap.Respawns,
			"complete", snap.Complete,
		)
		return nil
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func applyReloads(ctx context.Context, w *config.Watcher, session *game.Session, sound *audio.Player) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-w.Updates:
			if !ok {
				return
			}
			if err := session.ApplyConfig(cfg); err != nil {
				slog.Warn("Reloaded config rejected, keeping previous settings", "error", err)
				continue
			}
			if sound != nil {
				sound.SetVolume(cfg.Audio.Volume)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Warn("Config reload failed", "error", err)
		}
	}
}
