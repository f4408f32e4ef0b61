package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gradticket-bot/internal/service"
	"gradticket-bot/pkg/logger"
)

type BotWorker interface {
	// Start runs work cycles until ctx is cancelled. It blocks.
	Start(ctx context.Context)
}

// BotWorkerImpl drives the single-threaded polling loop: one cycle runs to
// completion, then the worker sleeps for the poll interval. The sleep is
// the only suspension point, so cancellation always lands between cycles.
type BotWorkerImpl struct {
	service      service.BotService
	pollInterval time.Duration
	log          *zap.Logger
}

func NewBotWorker(service service.BotService, pollInterval time.Duration) BotWorker {
	return &BotWorkerImpl{
		service:      service,
		pollInterval: pollInterval,
		log:          logger.WithComponent("worker"),
	}
}

func (w *BotWorkerImpl) Start(ctx context.Context) {
	w.log.Info("worker started", zap.Duration("poll_interval", w.pollInterval))

	for {
		w.runCycle(ctx)

		select {
		case <-ctx.Done():
			w.log.Info("worker stopped")
			return
		case <-time.After(w.pollInterval):
		}
	}
}

// runCycle isolates one cycle: an error or panic is logged and the loop
// moves on, so a permanently failing input cannot take the service down.
func (w *BotWorkerImpl) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("panic in work cycle", zap.Any("panic", r))
		}
	}()

	if err := w.service.RunCycle(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.log.Error("work cycle failed", zap.Error(err))
	}
}
