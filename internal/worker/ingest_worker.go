package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"ragchat/internal/app"
	"ragchat/internal/logger"
	"ragchat/internal/platform/rabbitmq"
)

// JobHandler runs one queued ingestion.
type JobHandler interface {
	HandleJob(ctx context.Context, job app.IngestJob) (*app.IngestResult, error)
}

// IngestWorker consumes ingestion jobs from a queue one at a time. Jobs
// that fail with a document-level error (bad format, no text) are dropped;
// store failures are requeued once.
type IngestWorker struct {
	conn      *amqp.Connection
	handler   JobHandler
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestWorker(conn *amqp.Connection, handler JobHandler, queueName string) *IngestWorker {
	return &IngestWorker{
		conn:      conn,
		handler:   handler,
		queueName: queueName,
	}
}

func (w *IngestWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}
	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

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
				w.handle(workerCtx, d)
			}
		}
	}()

	return nil
}

func (w *IngestWorker) handle(ctx context.Context, d amqp.Delivery) {
	var job app.IngestJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		logger.Error("worker decode ingest job failed", "error", err.Error())
		_ = d.Nack(false, false)
		return
	}

	result, err := w.handler.HandleJob(ctx, job)
	if err != nil {
		requeue := errors.Is(err, app.ErrStore) && !d.Redelivered
		logger.Error("worker ingest failed",
			"owner_id", job.OwnerID,
			"filename", job.Filename,
			"step", app.Op(err),
			"requeue", requeue,
			"error", err.Error(),
		)
		_ = d.Nack(false, requeue)
		return
	}

	logger.Info("worker ingest done",
		"owner_id", job.OwnerID,
		"document_id", result.Document.ID,
		"chunks", result.ChunkCount,
	)
	_ = d.Ack(false)
}

func (w *IngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
