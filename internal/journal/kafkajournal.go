package journal

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaJournal publishes entries to a single topic.
// List performs a best-effort read of the most recent messages.
type KafkaJournal struct {
	brokers []string
	topic   string
	writer  *kafka.Writer
}

// NewKafkaJournal constructs a Kafka journal backend. brokers is a
// comma-separated list of host:port addresses.
func NewKafkaJournal(brokers, topic string) *KafkaJournal {
	if topic == "" {
		topic = "optimizer.uploads"
	}
	k := &KafkaJournal{brokers: splitBrokers(brokers), topic: topic}
	if len(k.brokers) > 0 {
		k.writer = &kafka.Writer{
			Addr:         kafka.TCP(k.brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		}
	}
	return k
}

func splitBrokers(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (k *KafkaJournal) ensure() error {
	if len(k.brokers) == 0 {
		return errors.New("kafka brokers not configured")
	}
	return nil
}

// dialLeader connects to the partition leader through the first broker that
// answers.
func (k *KafkaJournal) dialLeader(ctx context.Context) (*kafka.Conn, error) {
	var errs []error
	for _, broker := range k.brokers {
		conn, err := kafka.DialLeader(ctx, "tcp", broker, k.topic, 0)
		if err == nil {
			return conn, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

func (k *KafkaJournal) Record(ctx context.Context, e Entry) error {
	if err := k.ensure(); err != nil {
		return err
	}
	if e.SubmittedAt == 0 {
		e.SubmittedAt = time.Now().Unix()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(e.DataType), Value: data})
}

func (k *KafkaJournal) List(ctx context.Context, limit int) ([]Entry, error) {
	if err := k.ensure(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	conn, err := k.dialLeader(ctx)
	if err != nil {
		return nil, err
	}
	first, last, err := conn.ReadOffsets()
	_ = conn.Close()
	if err != nil {
		return nil, err
	}
	start := last - int64(limit)
	if start < first {
		start = first
	}
	if start >= last {
		return []Entry{}, nil
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   k.brokers,
		Topic:     k.topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer r.Close()
	if err := r.SetOffset(start); err != nil {
		return nil, err
	}
	deadline, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	items := []Entry{}
	for offset := start; offset < last; offset++ {
		m, err := r.ReadMessage(deadline)
		if err != nil {
			break
		}
		var e Entry
		if err := json.Unmarshal(m.Value, &e); err == nil {
			items = append(items, e)
		}
	}
	return newestFirst(items, limit), nil
}

func (k *KafkaJournal) Stats(ctx context.Context) (Stats, error) {
	if err := k.ensure(); err != nil {
		return Stats{}, err
	}
	conn, err := k.dialLeader(ctx)
	if err != nil {
		return Stats{}, err
	}
	defer conn.Close()
	first, last, err := conn.ReadOffsets()
	if err != nil {
		return Stats{}, err
	}
	return Stats{Length: int(last - first)}, nil
}

// Close flushes pending writes.
func (k *KafkaJournal) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
