package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/racingnotes/racingnotes-server/internal/config"
	"github.com/racingnotes/racingnotes-server/internal/logger"
	"github.com/racingnotes/racingnotes-server/internal/service"
)

// SweeperWorker runs the blob sweeper on an interval.
type SweeperWorker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (w *SweeperWorker) Shutdown() error {
	w.cancel()
	<-w.done
	return nil
}

// ProvideSweeperWorker starts the periodic sweep. A zero interval leaves it idle.
func ProvideSweeperWorker(i do.Injector) (*SweeperWorker, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sweeper := do.MustInvoke[*service.Sweeper](i)

	ctx, cancel := context.WithCancel(context.Background())
	w := &SweeperWorker{cancel: cancel, done: make(chan struct{})}

	if cfg.Storage.SweepInterval <= 0 {
		log.Info("Blob sweeper disabled")
		close(w.done)
		return w, nil
	}

	go func() {
		defer close(w.done)
		sweeper.Run(ctx, cfg.Storage.SweepInterval)
	}()

	return w, nil
}
