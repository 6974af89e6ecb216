package opsmetrics

import (
	"context"
	"time"

	"github.com/finledger/backoffice/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const pushInterval = time.Minute

var Module = fx.Module("opsmetrics",
	fx.Provide(func() *prometheus.Registry {
		return prometheus.NewRegistry()
	}),
	fx.Provide(NewPusher),
	fx.Provide(func(cfg config.Config, registry *prometheus.Registry) *Recorder {
		if !cfg.OpsMetrics.Enabled {
			return nil
		}
		return &Recorder{metrics: newEngineMetrics(registry, cfg.AppName, cfg.AppVersion)}
	}),
	fx.Invoke(runPusher),
)

func runPusher(lc fx.Lifecycle, pusher Pusher, registry *prometheus.Registry, logger *zap.Logger) {
	if pusher == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("opsmetrics")

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(pushInterval)
				defer ticker.Stop()

				for {
					select {
					case <-ticker.C:
						if err := pusher.Push(ctx, registry); err != nil {
							log.Warn("ops metrics push failed", zap.Error(err))
						}
					case <-ctx.Done():
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
