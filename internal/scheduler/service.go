package scheduler

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/BrunoBianchi/Portyo-sub004/internal/errors"
	"github.com/BrunoBianchi/Portyo-sub004/internal/logger"
	"github.com/robfig/cron/v3"
)

// Service owns the cron wiring for both ticks: the hourly scan and the
// per-minute drain by default, both overridable by configuration.
type Service struct {
	cron    *cron.Cron
	scanner *Scanner
	drainer *Drainer

	scanSpec  string
	drainSpec string

	baseCtx context.Context
	cancel  context.CancelFunc
	log     logger.Logger
}

func NewService(scanner *Scanner, drainer *Drainer, scanSpec, drainSpec string) *Service {
	return &Service{
		cron:      cron.New(),
		scanner:   scanner,
		drainer:   drainer,
		scanSpec:  scanSpec,
		drainSpec: drainSpec,
		log:       logger.Default().WithComponent(logger.ComponentScanner),
	}
}

// Start registers both ticks and starts the cron runner. It returns an
// error if either spec does not parse.
func (s *Service) Start() error {
	s.baseCtx, s.cancel = context.WithCancel(context.Background())

	if _, err := s.cron.AddFunc(s.scanSpec, s.tick("scan", func(ctx context.Context) error {
		return s.scanner.Scan(ctx, time.Now())
	})); err != nil {
		return fmt.Errorf("invalid scan spec %q: %w", s.scanSpec, err)
	}

	if _, err := s.cron.AddFunc(s.drainSpec, s.tick("drain", func(ctx context.Context) error {
		return s.drainer.Drain(ctx, time.Now())
	})); err != nil {
		return fmt.Errorf("invalid drain spec %q: %w", s.drainSpec, err)
	}

	s.cron.Start()
	s.log.Info("scheduler started",
		"scan_spec", s.scanSpec,
		"drain_spec", s.drainSpec)
	return nil
}

// tick wraps a pass so a panic or error abandons only this tick; the
// next one starts clean.
func (s *Service) tick(name string, run func(context.Context) error) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error(name+" tick panicked", "error", apperrors.FromPanic(r).Error())
			}
		}()
		if err := run(s.baseCtx); err != nil {
			s.log.Error(name+" tick failed", "error", err.Error())
		}
	}
}

// Stop halts the ticks and waits for in-flight runs to finish or for
// ctx to expire, whichever comes first.
func (s *Service) Stop(ctx context.Context) {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out with runs in flight")
	}
	if s.cancel != nil {
		s.cancel()
	}
}
