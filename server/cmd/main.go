package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tankarena/server"
	"tankarena/server/application"
	"tankarena/server/auth"
	"tankarena/server/config"
	"tankarena/server/domain"
	"tankarena/server/telemetry"
)

func main() {
	configDir := flag.String("config", ".", "directory containing tankarena.yaml or tankarena.json")
	flag.Parse()

	if err := run(*configDir); err != nil {
		slog.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(configDir string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}

	provider, err := telemetry.New(ctx, telemetry.Config{
		ServiceName: cfg.Otel.ServiceName,
		Endpoint:    cfg.Otel.Endpoint,
		Insecure:    cfg.Otel.Insecure,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown failed", "err", err)
		}
	}()
	slog.SetDefault(telemetry.NewLogger(os.Stdout, cfg.Log.Level, provider.LoggerProvider()))

	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	factory, err := arenaFactory(cfg)
	if err != nil {
		return err
	}

	pubsub := domain.NewSimplePubSub()
	registry := domain.NewRegistry(ctx, factory, pubsub, metrics, domain.RegistryOptions{
		MaxPlayers: cfg.Room.MaxPlayers,
		Room: domain.RoomOptions{
			TickRate:    cfg.Room.TickRate,
			MaxDt:       cfg.Room.MaxDt,
			IntentQueue: cfg.Room.IntentQueue,
		},
	})

	opts := domain.EndpointOptions{
		IdleTimeout:  cfg.Session.IdleTimeout,
		PingInterval: cfg.Session.PingInterval,
	}
	if cfg.Auth.Secret != "" {
		opts.Verifier = auth.NewHS256Verifier(cfg.Auth.Secret)
	}

	s := server.NewServer(cfg.Server.ListenAddr(), server.Route(ctx, pubsub, registry, opts))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		slog.InfoContext(ctx, "server listening", "addr", s.Addr(), "auth", opts.Verifier != nil, "otel", provider.Enabled())
		if err := s.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		slog.InfoContext(ctx, "shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "graceful shutdown failed", "error", err)
			if err := s.Close(); err != nil {
				slog.ErrorContext(ctx, "forced close failed", "error", err)
			}
		}
		stop()
		registry.Wait()
		return nil
	})

	err = eg.Wait()
	slog.InfoContext(ctx, "server shutdown complete")
	return err
}

// arenaFactory は設定からルームごとのフィールドの作り方を決めます。
func arenaFactory(cfg *config.Config) (domain.ApplicationFactory, error) {
	bot := application.NewRandomBotController()
	bot.BehaviorChance = cfg.AI.BehaviorChance
	bot.FireChance = cfg.AI.FireChance

	opts := application.ArenaOptions{
		Field: application.FieldConfig{
			PlayerStats:  tankStats(cfg.Tank.Player),
			AIStats:      tankStats(cfg.Tank.AI),
			AITanks:      cfg.Room.AITanks,
			RestartDelay: cfg.Room.RestartDelay,
			Bot:          bot,
		},
		Width:       cfg.Map.Width,
		Height:      cfg.Map.Height,
		TileSize:    cfg.Map.TileSize,
		RandomWalls: cfg.Map.RandomWalls,
		Seed:        cfg.Room.Seed,
	}
	if cfg.Map.File != "" {
		m, err := application.LoadMapFile(cfg.Map.File)
		if err != nil {
			return nil, fmt.Errorf("load map %s: %w", cfg.Map.File, err)
		}
		opts.Map = m
	}
	return application.NewArenaFactory(opts), nil
}

func tankStats(c config.TankStatsConfig) application.TankStats {
	return application.TankStats{
		Speed:         c.Speed,
		RotationSpeed: c.RotationSpeed,
		FireRate:      c.FireRate,
		MaxHealth:     c.MaxHealth,
		BulletSpeed:   c.BulletSpeed,
		BulletDamage:  c.BulletDamage,
		Width:         c.Width,
		Height:        c.Height,
	}
}
