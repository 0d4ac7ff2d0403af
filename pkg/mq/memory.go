package mq

import "sync"

// InMemoryQueue is a synchronous in-process queue for tests and
// single-binary setups without Kafka.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func([]byte) error
	messages map[string][][]byte
}

var _ MessageQueue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates an empty in-memory queue.
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func([]byte) error),
		messages: make(map[string][][]byte),
	}
}

// Publish stores the message and synchronously invokes every handler
// subscribed to the topic.
func (q *InMemoryQueue) Publish(topic string, message []byte) error {
	q.mu.Lock()
	q.messages[topic] = append(q.messages[topic], message)
	handlers := append([]func([]byte) error(nil), q.handlers[topic]...)
	q.mu.Unlock()

	for _, handler := range handlers {
		if err := handler(message); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers a handler for the topic.
func (q *InMemoryQueue) Subscribe(topic string, handler func([]byte) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Close is a no-op.
func (q *InMemoryQueue) Close() error {
	return nil
}

// Messages returns every message published to the topic, for tests.
func (q *InMemoryQueue) Messages(topic string) [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.messages[topic]
}
