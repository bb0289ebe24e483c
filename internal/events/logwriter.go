// internal/events/logwriter.go
package events

import "context"

// LogWriter is an io.Writer that mirrors log lines to an MQTT topic.
// Write copies the line into a bounded queue and returns; Run publishes
// fire-and-forget. Lines that do not fit are dropped, so logging never
// waits on the broker.
type LogWriter struct {
	client publishClient
	topic  string
	queue  chan []byte
}

func NewLogWriter(client publishClient, topic string, size int) *LogWriter {
	if size < 1 {
		size = 1
	}
	return &LogWriter{client: client, topic: topic, queue: make(chan []byte, size)}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	// p is reused by the handler once Write returns
	payload := make([]byte, len(p))
	copy(payload, p)

	select {
	case w.queue <- payload:
	default:
	}
	return len(p), nil
}

// Run publishes queued lines until ctx is cancelled. It must not log:
// its own output would feed back into the queue.
func (w *LogWriter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case payload := <-w.queue:
			w.client.Publish(w.topic, 0, false, payload)
		}
	}
}
