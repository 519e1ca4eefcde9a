package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/bridge"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/config"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/influx"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/server"
)

func BridgeCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := bridge.New(cfg, bridge.WithLogger(logger))
	if err != nil {
		return err
	}

	if cfg.InfluxCfg.Enabled() {
		sink, err := influx.New(ctx, cfg.InfluxCfg, logger)
		if err != nil {
			logger.Warn("state history disabled", zap.Error(err))
		} else {
			defer sink.Close()
			if err := b.AddPublisher("influx", sink); err != nil {
				return err
			}
		}
	}

	var api APIServer
	if cfg.ServerCfg.JWTSecret != "" {
		api = server.New(cfg.ServerCfg, cfg.YandexCfg.UserID, b)
	} else {
		logger.Info("provider api disabled, no jwt secret configured")
	}

	return run(ctx, b, api, logger)
}

func run(ctx context.Context, svc BridgeService, api APIServer, logger *zap.Logger) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return svc.Run(ctx)
	})

	if api != nil {
		eg.Go(func() error {
			return api.Run(ctx)
		})
	}

	eg.Go(func() error {
		<-ctx.Done()
		logger.Info("context done")
		return nil
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.Level = lvl
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	return logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}
