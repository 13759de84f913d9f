package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/DRSN-tech/product-search/internal/cfg"
	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/DRSN-tech/product-search/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer публикует записи краулера в топик инжеста и в dead-letter топик.
type Producer struct {
	writer messageWriter
	logger logger.Logger
	cfg    *cfg.KafkaCfg
}

func NewProducer(logger logger.Logger, cfg *cfg.KafkaCfg) *Producer {
	// топик задаётся в каждом сообщении: один writer пишет и в основной, и в DLQ
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    10,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warnf("Kafka producer error: %s", err.Error())
			}
		},
	}

	return newProducer(writer, logger, cfg)
}

func newProducer(writer messageWriter, logger logger.Logger, cfg *cfg.KafkaCfg) *Producer {
	return &Producer{
		writer: writer,
		logger: logger,
		cfg:    cfg,
	}
}

// Publish синхронно пишет сообщение в указанный топик.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: headers,
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), e.Join(topic, e.ErrTransientIO, err))
	}

	return nil
}

// PublishRecord пишет сырую запись краулера в топик инжеста; ключом служит ID товара,
// поэтому все версии одного товара попадают в одну партицию.
func (p *Producer) PublishRecord(ctx context.Context, productID string, payload []byte) error {
	return p.Publish(ctx, p.cfg.Topic, []byte(productID), payload)
}

// EnsureTopic создаёт топик инжеста и dead-letter топик, если их ещё нет.
func (p *Producer) EnsureTopic(timeout time.Duration) error {
	if len(p.cfg.Brokers) == 0 {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("no kafka brokers configured"))
	}

	conn, err := kafka.DialContext(context.Background(), p.cfg.NetworkMode, p.cfg.Brokers[0])
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer conn.Close()

	for _, topic := range []string{p.cfg.Topic, p.cfg.DeadLetterTopic} {
		partitions, err := conn.ReadPartitions(topic)
		if err == nil && len(partitions) > 0 {
			continue
		}

		done := make(chan error, 1)
		go func() {
			done <- conn.CreateTopics(kafka.TopicConfig{
				Topic:             topic,
				NumPartitions:     p.cfg.Partitions,
				ReplicationFactor: p.cfg.ReplicationFactor,
			})
		}()

		select {
		case err := <-done:
			if err != nil {
				return e.Wrap(whereami.WhereAmI(), fmt.Errorf("failed to create topic %s: %w", topic, err))
			}
			p.logger.Infof("kafka topic %s created", topic)
		case <-time.After(timeout):
			_ = conn.Close()
			return e.Wrap(whereami.WhereAmI(), fmt.Errorf("timeout: %v, topic: %s", timeout, topic))
		}
	}

	return nil
}

func (p *Producer) Close(_ context.Context) error {
	return p.writer.Close()
}
