package generator

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("statement.generator",
	fx.Provide(NewOrchestrator),
	fx.Provide(NewSweeper),
	fx.Invoke(runOrchestrator),
	fx.Invoke(runSweeper),
)

func runOrchestrator(lc fx.Lifecycle, orchestrator *Orchestrator) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			orchestrator.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return orchestrator.Stop(ctx)
		},
	})
}

func runSweeper(lc fx.Lifecycle, sweeper *Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go sweeper.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
