package broker

import (
	"context"
	"sync"

	"ticketing/internal/models"

	"github.com/segmentio/kafka-go"
)

// MemoryBus is an in-process bus with Kafka semantics: one ordered log per
// topic, and one cursor per consumer group that every reader of that group
// shares. It backs tests and single-process setups.
type MemoryBus struct {
	mu      sync.Mutex
	cond    *sync.Cond
	logs    map[string][]kafka.Message
	cursors map[string]int
	commits map[string][]kafka.Message
}

// NewMemoryBus creates an empty in-process bus
func NewMemoryBus() *MemoryBus {
	b := &MemoryBus{
		logs:    make(map[string][]kafka.Message),
		cursors: make(map[string]int),
		commits: make(map[string][]kafka.Message),
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *MemoryBus) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, msg := range msgs {
		msg.Offset = int64(len(b.logs[msg.Topic]))
		b.logs[msg.Topic] = append(b.logs[msg.Topic], msg)
	}
	b.cond.Broadcast()
	return nil
}

func (b *MemoryBus) Close() error { return nil }

// Readers returns a ReaderFactory over the bus.
func (b *MemoryBus) Readers() ReaderFactory {
	return func(subject models.Subject, queueGroup string) MessageReader {
		return &memoryReader{bus: b, topic: subject.Topic(), group: queueGroup}
	}
}

// Committed returns the messages queueGroup acknowledged on subject.
func (b *MemoryBus) Committed(subject models.Subject, queueGroup string) []kafka.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]kafka.Message(nil), b.commits[subject.Topic()+"/"+queueGroup]...)
}

type memoryReader struct {
	bus   *MemoryBus
	topic string
	group string
}

func (r *memoryReader) key() string { return r.topic + "/" + r.group }

func (r *memoryReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	b := r.bus
	stop := context.AfterFunc(ctx, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.cond.Broadcast()
	})
	defer stop()

	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			return kafka.Message{}, err
		}
		if cursor := b.cursors[r.key()]; cursor < len(b.logs[r.topic]) {
			b.cursors[r.key()] = cursor + 1
			return b.logs[r.topic][cursor], nil
		}
		b.cond.Wait()
	}
}

func (r *memoryReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.bus.mu.Lock()
	defer r.bus.mu.Unlock()
	r.bus.commits[r.key()] = append(r.bus.commits[r.key()], msgs...)
	return nil
}

func (r *memoryReader) Close() error { return nil }
