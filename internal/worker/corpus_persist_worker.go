package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"vaultai/internal/model"
	"vaultai/internal/platform/rabbitmq"
)

var errUnknownOp = errors.New("unknown corpus event op")

// DocumentStore is where queued corpus events end up.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc model.CorpusDocument) error
	DeleteDocument(ctx context.Context, filename string) error
	DeleteAll(ctx context.Context) error
}

// CorpusPersistWorker applies queued corpus events to the store in
// delivery order.
type CorpusPersistWorker struct {
	conn      *amqp.Connection
	store     DocumentStore
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCorpusPersistWorker(conn *amqp.Connection, store DocumentStore, queueName string, logger *zap.Logger) *CorpusPersistWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CorpusPersistWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *CorpusPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	ch, deliveries, err := rabbitmq.Consume(w.conn, w.queueName)
	if err != nil {
		return err
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.process(workerCtx, d.Body); err != nil {
					w.logger.Warn("persist corpus event failed", zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.logger.Info("corpus persist worker started", zap.String("queue", w.queueName))
	return nil
}

func (w *CorpusPersistWorker) process(ctx context.Context, body []byte) error {
	var event model.CorpusEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode corpus event failed: %w", err)
	}

	switch event.Op {
	case model.CorpusSave:
		if event.Document == nil {
			return fmt.Errorf("save event for %s has no document", event.Filename)
		}
		return w.store.SaveDocument(ctx, *event.Document)
	case model.CorpusDelete:
		return w.store.DeleteDocument(ctx, event.Filename)
	case model.CorpusReset:
		return w.store.DeleteAll(ctx)
	default:
		return fmt.Errorf("%w: %q", errUnknownOp, event.Op)
	}
}

func (w *CorpusPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
