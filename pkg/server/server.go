package server

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Borislavv/count-min-sketch/pkg/config"
	"github.com/Borislavv/count-min-sketch/pkg/prometheus/metrics"
	"github.com/Borislavv/count-min-sketch/pkg/prometheus/metrics/middleware"
	"github.com/Borislavv/count-min-sketch/pkg/sketch"
	"github.com/Borislavv/count-min-sketch/pkg/storage"
	"github.com/Borislavv/count-min-sketch/pkg/utils"
	"github.com/fasthttp/router"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 9 * time.Second

// Server exposes a registry of named sketches over HTTP.
type Server struct {
	cfg       *config.Cms
	registry  storage.Registry
	meter     metrics.Meter
	srv       *fasthttp.Server
	updates   atomic.Int64
	estimates atomic.Int64
}

func New(cfg *config.Cms, registry storage.Registry, meter metrics.Meter) *Server {
	s := &Server{
		cfg:      cfg,
		registry: registry,
		meter:    meter,
	}
	s.srv = &fasthttp.Server{
		Handler:      s.Handler(),
		Name:         cfg.Cms.Server.Name,
		ReadTimeout:  cfg.Cms.Server.ReadTimeout,
		WriteTimeout: cfg.Cms.Server.WriteTimeout,
	}
	return s
}

// Handler returns the routed handler wrapped with the metrics middleware.
func (s *Server) Handler() fasthttp.RequestHandler {
	r := router.New()
	r.SaveMatchedRoutePath = true

	r.GET("/healthz", s.health)
	r.GET("/metrics", s.writeMetrics)
	r.PUT("/sketches/{name}", s.createSketch)
	r.GET("/sketches/{name}", s.getSketch)
	r.DELETE("/sketches/{name}", s.deleteSketch)
	r.POST("/sketches/{name}/elements/{element:*}", s.update)
	r.GET("/sketches/{name}/elements/{element:*}", s.estimate)

	limiter := newLimiter(s.cfg.Cms.Server.RateLimit, s.cfg.Cms.Server.RateBurst)

	return withRequestID(middleware.NewPrometheusMetrics(s.meter, routeLabel).Middleware(withRateLimit(limiter, r.Handler)))
}

// Run serves until ctx is done, then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Msgf("[server] listening on %s", s.cfg.Cms.Server.Addr)
		return s.srv.ListenAndServe(s.cfg.Cms.Server.Addr)
	})

	g.Go(func() error {
		<-gctx.Done()

		sCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.srv.ShutdownWithContext(sCtx); err != nil {
			log.Error().Err(err).Msg("[server] failed to shut down gracefully")
			return err
		}
		log.Info().Msg("[server] has been stopped")
		return nil
	})

	s.runStatsLogger(gctx)

	return g.Wait()
}

// factory builds sketches for names created over HTTP from the configured defaults.
func (s *Server) factory() (*sketch.Sketch, error) {
	return sketch.NewFromConfig(s.cfg.Cms.Sketch)
}

// runStatsLogger periodically logs served calls and refreshes registry gauges.
func (s *Server) runStatsLogger(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.logAndReset()
			}
		}
	}()
}

func (s *Server) logAndReset() {
	var (
		updates   = s.updates.Swap(0)
		estimates = s.estimates.Swap(0)
		length    = s.registry.Len()
		mem       = s.registry.Mem()
	)

	s.meter.SetSketchesLength(length)
	s.meter.SetSketchesMemory(mem)

	if !s.cfg.Cms.Logs.Stats || (updates == 0 && estimates == 0) {
		return
	}

	logEvent := log.Info()

	if s.cfg.IsProd() {
		logEvent.
			Str("target", "server").
			Int64("updates", updates).
			Int64("estimates", estimates).
			Int64("sketches", length).
			Int64("memBytes", mem)
	}

	logEvent.Msgf("[server][5s] served %d updates and %d estimates over %d sketches (%s)",
		updates, estimates, length, utils.FmtMem(mem))
}

func routeLabel(ctx *fasthttp.RequestCtx) string {
	if route, ok := ctx.UserValue(router.MatchedRoutePathParam).(string); ok {
		return route
	}
	return "unmatched"
}
