package worker

import (
	"context"
	"errors"
	"time"

	"github.com/betlink/affiliate-engine/internal/config"
	"github.com/betlink/affiliate-engine/internal/logger"
	"github.com/betlink/affiliate-engine/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	approvalSweepInterval = time.Minute
)

// Service runs the asynq server plus the commission approval sweep.
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService creates the worker service.
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name returns the service name.
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start runs the server and the sweep loop.
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.AffiliateService != nil {
		go s.runApprovalSweepLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop shuts the server down.
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runApprovalSweepLoop periodically flips calculated commissions older than
// the confirm window to approved.
func (s *Service) runApprovalSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.AffiliateService == nil {
		return
	}
	confirmDays := 7
	if s.consumer.Config != nil && s.consumer.Config.Commission.ConfirmDays > 0 {
		confirmDays = s.consumer.Config.Commission.ConfirmDays
	}
	runOnce := func() {
		if _, err := s.consumer.AffiliateService.ApproveDueCommissions(confirmDays); err != nil {
			logger.Warnw("worker_approval_sweep_failed", "error", err)
		}
	}
	runOnce()

	ticker := time.NewTicker(approvalSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
