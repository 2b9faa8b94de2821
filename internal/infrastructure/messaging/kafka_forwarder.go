package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/events"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaForwarder streams change events to a Kafka topic keyed by user id,
// so every event of one user lands on the same partition in order.
type KafkaForwarder struct {
	w       messageWriter
	closeCh chan struct{}
	logger  *logrus.Logger

	mu     sync.RWMutex // guards sends on inbox against closing it
	inbox  chan kafka.Message
	closed bool
}

// NewKafkaForwarder creates a forwarder writing to topic on brokers
func NewKafkaForwarder(brokers []string, topic string, buf int, logger *logrus.Logger) *KafkaForwarder {
	return newKafkaForwarder(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}, buf, logger)
}

func newKafkaForwarder(w messageWriter, buf int, logger *logrus.Logger) *KafkaForwarder {
	if buf <= 0 {
		buf = 256
	}
	return &KafkaForwarder{
		w:       w,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
		logger:  logger,
	}
}

// Start runs the write loop until ctx is done or Close is called
func (f *KafkaForwarder) Start(ctx context.Context) {
	go func() {
		defer close(f.closeCh)
		for {
			select {
			case <-ctx.Done():
				f.drain()
				return
			case m, ok := <-f.inbox:
				if !ok {
					f.closeWriter()
					return
				}
				f.write(m)
			}
		}
	}()
}

// Forward implements events.Sink. It never blocks: when the buffer is full the event is dropped.
func (f *KafkaForwarder) Forward(_ context.Context, event events.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		f.logger.WithError(err).WithField("event_id", event.ID).Error("Failed to encode event")
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		f.logger.WithField("event_id", event.ID).Warn("Event forwarder is closed, dropping event")
		return
	}

	select {
	case f.inbox <- msg:
	default:
		f.logger.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).Warn("Event forwarder buffer full, dropping event")
	}
}

// Close flushes buffered events and closes the writer
func (f *KafkaForwarder) Close() {
	f.closeInbox()
	<-f.closeCh
}

// closeInbox stops accepting events; safe to call more than once
func (f *KafkaForwarder) closeInbox() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.inbox)
	}
}

func (f *KafkaForwarder) drain() {
	f.closeInbox()
	for m := range f.inbox {
		f.write(m)
	}
	f.closeWriter()
}

func (f *KafkaForwarder) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.w.WriteMessages(ctx, m); err != nil {
		f.logger.WithError(err).WithField("user_id", string(m.Key)).Error("Failed to write event to kafka")
	}
}

func (f *KafkaForwarder) closeWriter() {
	if err := f.w.Close(); err != nil {
		f.logger.WithError(err).Warn("Failed to close kafka writer")
	}
}

var _ events.Sink = (*KafkaForwarder)(nil)
