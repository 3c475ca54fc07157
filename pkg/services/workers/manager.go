package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"satellite-catalog/pkg/catalog"
	embeddednats "satellite-catalog/pkg/services/embedded-nats"
)

type Manager struct {
	workers []Worker
	nats    *embeddednats.EmbeddedNATS
	log     *slog.Logger
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewManager builds one ingest worker per ingest subject, all writing
// through cat.
func NewManager(natsClient *embeddednats.EmbeddedNATS, cat *catalog.Handler, log *slog.Logger) (*Manager, error) {
	if natsClient == nil || natsClient.Connection() == nil {
		return nil, fmt.Errorf("NATS connection not initialized")
	}
	js := natsClient.JetStream()
	if js == nil {
		return nil, fmt.Errorf("JetStream not initialized")
	}
	if log == nil {
		log = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		nats:   natsClient,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		workers: []Worker{
			NewImageWorker(js, cat, log),
			NewDetectionWorker(js, cat, log),
			NewDownloadWorker(js, cat, log),
			NewAISWorker(js, cat, log),
			NewObjectWorker(js, cat, log),
		},
	}, nil
}

// Start declares each worker's durable consumer and runs the workers in
// their own goroutines.
func (m *Manager) Start() error {
	for _, worker := range m.workers {
		stream, consumer, subject := worker.Consumer()
		if err := m.nats.CreateDurableConsumer(stream, consumer, subject); err != nil {
			return err
		}
	}

	for _, worker := range m.workers {
		m.wg.Add(1)
		go func(w Worker) {
			defer m.wg.Done()
			if err := w.Start(m.ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.log.Error("worker failed", "worker", w.Name(), "error", err)
			}
			m.log.Debug("worker stopped", "worker", w.Name())
		}(worker)
	}

	m.log.Info("ingest workers started", "count", len(m.workers))
	return nil
}

func (m *Manager) Stop() error {
	m.cancel()

	for _, worker := range m.workers {
		if err := worker.Stop(); err != nil {
			m.log.Warn("failed to stop worker", "worker", worker.Name(), "error", err)
		}
	}

	m.wg.Wait()
	m.log.Info("all ingest workers stopped")
	return nil
}
