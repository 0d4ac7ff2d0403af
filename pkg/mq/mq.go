package mq

// MessageQueue is the producing side of the async ingest pipeline.
type MessageQueue interface {
	Publish(topic string, message []byte) error
	Subscribe(topic string, handler func(message []byte) error) error
	Close() error
}
