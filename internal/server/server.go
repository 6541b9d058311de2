// Package server is the composition root: it constructs the validator,
// admission controller, sandbox driver, and metric sinks, wires them into a
// single Pipeline, and owns the HTTP server's lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sempr/judgecore/internal/admission"
	"github.com/sempr/judgecore/internal/config"
	"github.com/sempr/judgecore/internal/httpapi"
	"github.com/sempr/judgecore/internal/languages"
	"github.com/sempr/judgecore/internal/limiter"
	"github.com/sempr/judgecore/internal/pipeline"
	"github.com/sempr/judgecore/internal/sandbox"
	"github.com/sempr/judgecore/internal/sweeper"
	"github.com/sempr/judgecore/internal/validator"
)

// Server owns the HTTP listener, the background workspace sweeper, and every
// component the pipeline depends on.
type Server struct {
	conf       *config.Config
	logger     *zerolog.Logger
	httpServer *http.Server
	sweeper    *sweeper.Sweeper
	registry   *languages.Registry
	sandbox    sandbox.Sandbox
	cancel     context.CancelFunc
}

// New constructs every component and wires them into an http.Server, without
// starting anything yet.
func New(conf *config.Config, logger *zerolog.Logger) (*Server, error) {
	registry := languages.NewRegistry()

	sb, err := sandbox.NewDockerSandbox(logger, conf.Compiler.BuildTimeout)
	if err != nil {
		return nil, fmt.Errorf("create sandbox driver: %w", err)
	}

	v := validator.New(registry, validator.Limits{
		MinTime:   conf.Compiler.MinExecutionTime,
		MaxTime:   conf.Compiler.MaxExecutionTime,
		MinMemory: conf.Compiler.MinExecutionMem,
		MaxMemory: conf.Compiler.MaxExecutionMem,
	})

	ctrl := admission.New(conf.Compiler.MaxRequests)

	pl := &pipeline.Pipeline{
		Registry:      registry,
		Validator:     v,
		Admission:     ctrl,
		Sandbox:       sb,
		WorkspaceRoot: conf.Workspace.Root,
		RetainImage:   !conf.Compiler.DeleteDockerImage,
		Logger:        logger,
	}

	rl := limiter.NewRateLimiter(conf.RateLimit.GlobalRPS, conf.RateLimit.PerIPRPS, conf.RateLimit.PerIPBurst)
	rl.StartCleanup(5 * time.Minute)

	handler := httpapi.NewHandler(pl, logger)
	mux := httpapi.NewRouter(handler, rl)

	httpServer := &http.Server{
		Addr:         conf.Server.Addr,
		Handler:      mux,
		ReadTimeout:  conf.Server.ReadTimeout,
		WriteTimeout: conf.Server.WriteTimeout,
		IdleTimeout:  conf.Server.IdleTimeout,
	}

	sw := sweeper.New(conf.Workspace.Root, conf.Workspace.SweepMaxAge, logger)

	return &Server{
		conf:       conf,
		logger:     logger,
		httpServer: httpServer,
		sweeper:    sw,
		registry:   registry,
		sandbox:    sb,
	}, nil
}

// Start pulls every registered language's base image, starts the background
// workspace sweeper, and blocks serving HTTP until Stop is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.conf.Server.Addr).Msg("starting judgecore HTTP server")

	if err := s.ensureImages(context.Background()); err != nil {
		return fmt.Errorf("ensure docker images: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.sweeper.Start(ctx, s.conf.Workspace.SweepInterval)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

func (s *Server) ensureImages(ctx context.Context) error {
	docker, ok := s.sandbox.(*sandbox.DockerSandbox)
	if !ok {
		return nil
	}

	seen := make(map[string]bool)
	for _, p := range s.registry.List() {
		if seen[p.Image] {
			continue
		}
		seen[p.Image] = true
		if err := docker.EnsureImage(ctx, p.Image); err != nil {
			return err
		}
	}
	return nil
}

// Stop gracefully shuts down the HTTP server and stops the sweeper.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down judgecore HTTP server")

	if s.cancel != nil {
		s.cancel()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
