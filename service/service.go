package service

import (
	"context"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/saiset-co/sai-stockwatch/lifecycle"
	"github.com/saiset-co/sai-stockwatch/sai"
	"github.com/saiset-co/sai-stockwatch/types"
)

const (
	startTimeout    = time.Minute
	shutdownTimeout = 30 * time.Second
)

// Service owns the stockwatch components and their lifecycle.
type Service struct {
	ctx    context.Context
	cancel context.CancelFunc
	parts  *components
	done   chan struct{}
	wg     sync.WaitGroup
	life   lifecycle.Machine
}

// NewService builds every component from the config file at configPath and
// publishes them through the sai accessors. Nothing is started yet.
func NewService(ctx context.Context, configPath string) (*Service, error) {
	if configPath == "" {
		return nil, types.ErrConfigInvalidPath
	}

	if _, err := os.Stat(configPath); err != nil {
		return nil, types.WrapError(err, "file does not exist")
	}

	serviceCtx, cancel := context.WithCancel(ctx)

	parts, err := assemble(serviceCtx, configPath)
	if err != nil {
		cancel()
		return nil, err
	}

	sai.Publish(parts.container())

	return &Service{
		ctx:    serviceCtx,
		cancel: cancel,
		parts:  parts,
		done:   make(chan struct{}),
	}, nil
}

// Start runs the service and blocks until it is stopped by Stop, a signal
// or cancellation of the parent context.
func (s *Service) Start() (err error) {
	if !s.life.Move(lifecycle.Stopped, lifecycle.Starting) {
		s.parts.logger.Warn("Service is already running")
		return types.ErrServiceIsRunning
	}
	defer s.life.Set(lifecycle.Stopped)

	defer func() {
		if r := recover(); r != nil {
			s.parts.logger.Error("Service run panic", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = types.NewErrorf("service panic: %v", r)
		}
	}()

	return s.run()
}

func (s *Service) run() error {
	log := s.parts.logger
	log.Info("Starting service")

	ctx, cancel := context.WithTimeout(s.ctx, startTimeout)
	defer cancel()

	if err := s.startComponents(ctx); err != nil {
		_ = s.stopComponents()
		return types.WrapError(err, "failed to start components")
	}

	s.life.Set(lifecycle.Running)
	s.watchSignals()

	s.wg.Add(1)
	go s.awaitCancel()

	log.Info("Service started successfully")
	<-s.done

	if err := s.stopComponents(); err != nil {
		log.Error("Error during service shutdown", zap.Error(err))
	}

	s.wg.Wait()
	log.Info("Service stopped gracefully")
	return nil
}

func (s *Service) Stop() error {
	if !s.life.Move(lifecycle.Running, lifecycle.Stopping) {
		s.parts.logger.Warn("Service is not running")
		return types.ErrServiceIsNotRunning
	}

	s.parts.logger.Info("Stopping service...")
	s.cancel()
	return nil
}

func (s *Service) Done() <-chan struct{} {
	return s.done
}

func (s *Service) Context() context.Context {
	return s.ctx
}

func (s *Service) IsRunning() bool {
	return s.life.Running()
}

// startComponents fails on the first foundation component that does not
// start. Health and cron are best effort.
func (s *Service) startComponents(ctx context.Context) error {
	log := s.parts.logger

	for _, c := range s.parts.foundation() {
		if err := ctx.Err(); err != nil {
			return types.NewErrorf("component startup timeout: %v", err)
		}

		if err := c.manager.Start(); err != nil {
			return types.WrapError(err, "failed to start "+c.name)
		}
	}

	if h := s.parts.health; h != nil {
		if err := h.Start(); err != nil {
			log.Error("Failed to start health manager", zap.Error(err))
		} else {
			report := h.Check(ctx)
			log.Info("Startup health check",
				zap.String("status", string(report.Status)),
				zap.Int("unhealthy", report.Summary.Unhealthy))
		}
	}

	if err := s.parts.cron.Start(); err != nil {
		log.Error("Failed to start cron manager", zap.Error(err))
	}

	log.Info("All components started successfully")
	return nil
}

// stopComponents walks the shutdown stages, skipping components that are
// not running, and stops the logger after everything else.
func (s *Service) stopComponents() error {
	log := s.parts.logger

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("Stopping service components...")

	var errs []error
	for _, stage := range s.parts.shutdown() {
		if err := stopStage(ctx, log, stage); err != nil {
			if ctx.Err() != nil {
				log.Warn("Component shutdown timeout, some components may not have stopped gracefully")
				break
			}
			errs = append(errs, err)
		}
	}

	log.Info("All components stopped")

	if log.IsRunning() {
		if err := log.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return types.NewErrorf("errors during shutdown: %v", errs)
	}
	return nil
}

func stopStage(ctx context.Context, log types.Logger, stage []component) error {
	g, gCtx := errgroup.WithContext(ctx)

	for _, c := range stage {
		if !c.manager.IsRunning() {
			continue
		}

		c := c
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			if err := c.manager.Stop(); err != nil {
				log.Error("Failed to stop "+c.name, zap.Error(err))
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

func (s *Service) watchSignals() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer signal.Stop(signals)

		select {
		case sig := <-signals:
			s.parts.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
			if s.life.Move(lifecycle.Running, lifecycle.Stopping) {
				s.cancel()
			}
		case <-s.ctx.Done():
		}
	}()
}

func (s *Service) awaitCancel() {
	defer s.wg.Done()
	defer close(s.done)

	<-s.ctx.Done()

	if types.IsError(s.ctx.Err(), context.DeadlineExceeded) {
		s.parts.logger.Warn("Service shutdown: context deadline exceeded")
		return
	}
	s.parts.logger.Info("Service shutdown: context cancelled")
}
