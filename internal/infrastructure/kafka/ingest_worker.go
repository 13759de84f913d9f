package kafka

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/DRSN-tech/product-search/internal/cfg"
	"github.com/DRSN-tech/product-search/internal/usecase"
	"github.com/DRSN-tech/product-search/pkg/jitter"
	"github.com/DRSN-tech/product-search/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Заголовки служебных сообщений
const (
	HeaderAttempt = "x-attempt"
	HeaderError   = "x-error"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error
}

// IngestWorker пул консьюмеров топика инжеста. Каждый воркер владеет своим
// ридером consumer group и обрабатывает по одному сообщению за раз.
type IngestWorker struct {
	newReader     func() messageReader
	ingest        usecase.IngestUC
	publisher     publisher
	cfg           *cfg.KafkaCfg
	workers       int
	maxDeliveries int
	backoff       jitter.Backoff
	logger        logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestWorker(
	ingest usecase.IngestUC,
	publisher publisher,
	kafkaCfg *cfg.KafkaCfg,
	ingestCfg *cfg.IngestCfg,
	logger logger.Logger,
) *IngestWorker {
	newReader := func() messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  kafkaCfg.Brokers,
			GroupID:  kafkaCfg.GroupID,
			Topic:    kafkaCfg.Topic,
			MinBytes: 1,
			MaxBytes: 10e6,
			MaxWait:  time.Second,
		})
	}

	return newIngestWorker(newReader, ingest, publisher, kafkaCfg, ingestCfg, logger)
}

func newIngestWorker(
	newReader func() messageReader,
	ingest usecase.IngestUC,
	publisher publisher,
	kafkaCfg *cfg.KafkaCfg,
	ingestCfg *cfg.IngestCfg,
	logger logger.Logger,
) *IngestWorker {
	return &IngestWorker{
		newReader:     newReader,
		ingest:        ingest,
		publisher:     publisher,
		cfg:           kafkaCfg,
		workers:       max(1, ingestCfg.Workers),
		maxDeliveries: max(1, ingestCfg.MaxDeliveries),
		backoff:       jitter.NewBackoff(ingestCfg.RetryBaseDelay, ingestCfg.RetryMaxDelay),
		logger:        logger,
	}
}

func (w *IngestWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.logger.Infof("Starting %d ingest workers on topic %s", w.workers, w.cfg.Topic)
	for i := 0; i < w.workers; i++ {
		reader := w.newReader()
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.run(ctx, i, reader)
		}()
	}
}

// Stop останавливает воркеров и ждёт завершения текущих сообщений.
func (w *IngestWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("ingest workers stop timeout: %w", ctx.Err())
	}
}

func (w *IngestWorker) run(ctx context.Context, id int, reader messageReader) {
	defer func() {
		if err := reader.Close(); err != nil {
			w.logger.Warnf("worker %d: failed to close reader: %v", id, err)
		}
	}()

	for fetchFailures := 0; ; {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Infof("Worker %d stopped by context cancellation", id)
				return
			}
			w.logger.Warnf("worker %d: fetch failed: %v", id, err)
			if w.backoff.Wait(ctx, fetchFailures) != nil {
				return
			}
			fetchFailures++
			continue
		}
		fetchFailures = 0

		if !w.handle(ctx, msg) {
			// без коммита сообщение будет доставлено повторно после перезапуска
			return
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			w.logger.Warnf("worker %d: commit failed at offset %d: %v", id, msg.Offset, err)
		}
	}
}

// handle обрабатывает сообщение и возвращает true, если его можно подтвердить.
func (w *IngestWorker) handle(ctx context.Context, msg kafka.Message) bool {
	state, err := w.process(ctx, msg.Value)
	if state != usecase.StateFailed {
		return true
	}

	attempt := Attempt(msg)
	if attempt >= w.maxDeliveries {
		w.logger.Warnf("message %s exhausted %d deliveries, moving to %s", msg.Key, attempt, w.cfg.DeadLetterTopic)
		return w.publish(ctx, w.cfg.DeadLetterTopic, msg, attempt, err)
	}

	if w.backoff.Wait(ctx, attempt-1) != nil {
		return false
	}

	return w.publish(ctx, w.cfg.Topic, msg, attempt+1, err)
}

// process вызывает пайплайн инжеста; паника считается неуспешной попыткой.
func (w *IngestWorker) process(ctx context.Context, payload []byte) (state usecase.IngestState, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Errorf(fmt.Errorf("%v", r), "panic while ingesting message: %s", debug.Stack())
			state, err = usecase.StateFailed, fmt.Errorf("panic: %v", r)
		}
	}()

	return w.ingest.Ingest(ctx, payload)
}

// publish повторяет запись, пока она не удастся или не будет отменён контекст.
func (w *IngestWorker) publish(ctx context.Context, topic string, msg kafka.Message, attempt int, cause error) bool {
	headers := []kafka.Header{{Key: HeaderAttempt, Value: []byte(strconv.Itoa(attempt))}}
	if cause != nil {
		headers = append(headers, kafka.Header{Key: HeaderError, Value: []byte(cause.Error())})
	}

	for try := 0; ; try++ {
		err := w.publisher.Publish(ctx, topic, msg.Key, msg.Value, headers...)
		if err == nil {
			return true
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return false
		}

		w.logger.Warnf("failed to publish message %s to %s: %v", msg.Key, topic, err)
		if w.backoff.Wait(ctx, try) != nil {
			return false
		}
	}
}

// Attempt возвращает номер доставки сообщения; отсутствие заголовка означает первую.
func Attempt(msg kafka.Message) int {
	for _, h := range msg.Headers {
		if h.Key != HeaderAttempt {
			continue
		}
		if n, err := strconv.Atoi(string(h.Value)); err == nil && n > 0 {
			return n
		}
	}
	return 1
}
