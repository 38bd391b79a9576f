package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"pixelmart/internal/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes OrderConfirmedEvent keyed by gateway order id, so
// redeliveries of the same confirmation land on one partition in order.
type KafkaNotifier struct {
	writer messageWriter
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (k *KafkaNotifier) Send(ctx context.Context, order *domain.Order) error {
	event, err := NewOrderConfirmedEvent(order)
	if err != nil {
		return err
	}
	v, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: marshal event: %v", domain.ErrNotifyFailed, err)
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.GatewayOrderID),
		Value: v,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("%w: publish: %v", domain.ErrNotifyFailed, err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
