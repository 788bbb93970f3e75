package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Borislavv/count-min-sketch/pkg/config"
	"github.com/Borislavv/count-min-sketch/pkg/prometheus/metrics"
	"github.com/Borislavv/count-min-sketch/pkg/server"
	"github.com/Borislavv/count-min-sketch/pkg/storage"
	"github.com/Borislavv/count-min-sketch/pkg/storage/lru"
	sharded "github.com/Borislavv/count-min-sketch/pkg/storage/map"
	"github.com/Borislavv/count-min-sketch/pkg/utils"
	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve named sketches over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Cms.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, a.cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8020", "listen address, overrides cms.server.addr")
	addSketchFlags(cmd.Flags())

	return cmd
}

func serve(ctx context.Context, cfg *config.Cms) error {
	tuneRuntime()

	registry := newRegistry(ctx, cfg)

	log.Info().Msgf("[cms] starting %s in %s mode", cfg.Cms.Server.Name, cfg.Cms.Env)

	return server.New(cfg, registry, metrics.New()).Run(ctx)
}

// newRegistry bounds the registry by memory when cms.registry.mem_limit is set.
func newRegistry(ctx context.Context, cfg *config.Cms) storage.Registry {
	shardedMap := sharded.NewMap(64)
	if cfg.Cms.Registry.MemLimit <= 0 {
		return shardedMap
	}

	log.Info().Msgf("[registry] sketches are limited to %d bytes of counters", cfg.Cms.Registry.MemLimit)

	db := lru.NewStorage(ctx, cfg, shardedMap)
	db.Run()
	return db
}

// tuneRuntime fits GOMAXPROCS and GOMEMLIMIT to the container quotas, when there are any.
func tuneRuntime() {
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		log.Debug().Msgf("[cms] "+format, args...)
	})); err != nil {
		log.Warn().Err(err).Msg("[cms] failed to set GOMAXPROCS")
	}

	limit, err := memlimit.SetGoMemLimitWithOpts(
		memlimit.WithRatio(0.9),
		memlimit.WithProvider(memlimit.FromCgroup),
	)
	if err != nil {
		log.Debug().Err(err).Msg("[cms] GOMEMLIMIT left unchanged")
		return
	}
	log.Info().Msgf("[cms] GOMEMLIMIT set to %s", utils.FmtMem(limit))
}
