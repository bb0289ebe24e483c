// internal/events/events_test.go
package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ---- fakes ----

type fakeToken struct {
	done bool
	err  error
}

func (t *fakeToken) Wait() bool                     { return t.done }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.done }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.done {
		close(ch)
	}
	return ch
}

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	mu   sync.Mutex
	sent []published
	tok  *fakeToken
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, published{topic: topic, qos: qos, payload: payload.([]byte)})
	if c.tok != nil {
		return c.tok
	}
	return &fakeToken{done: true}
}

func (c *fakeClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// drainEvents plays the publisher worker without a goroutine.
func drainEvents(p *MQTTPublisher) {
	for {
		select {
		case e := <-p.queue:
			p.deliver(e)
		default:
			return
		}
	}
}

func drainLines(w *LogWriter) {
	for {
		select {
		case b := <-w.queue:
			w.client.Publish(w.topic, 0, false, b)
		default:
			return
		}
	}
}

// ---- tests ----

func TestMQTTPublisher_EncodesEvent(t *testing.T) {
	c := &fakeClient{}
	p := NewMQTTPublisher(c, "guard/events", 4, quiet())

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.Publish(Event{Type: AlarmOn, Serials: []string{"A", "B"}, At: at})
	if len(c.sent) != 0 {
		t.Fatalf("Publish reached the broker from the caller")
	}
	drainEvents(p)

	if len(c.sent) != 1 {
		t.Fatalf("want 1 publish, got %d", len(c.sent))
	}
	msg := c.sent[0]
	if msg.topic != "guard/events" || msg.qos != 0 {
		t.Fatalf("topic=%q qos=%d", msg.topic, msg.qos)
	}

	var got Event
	if err := json.Unmarshal(msg.payload, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.Type != AlarmOn || len(got.Serials) != 2 || !got.At.Equal(at) {
		t.Fatalf("got %+v", got)
	}
	if got.Serial != "" {
		t.Fatalf("alarm event carries a single serial: %q", got.Serial)
	}
}

func TestMQTTPublisher_FailureDoesNotPanic(t *testing.T) {
	for _, tok := range []*fakeToken{
		{done: false},
		{done: true, err: errors.New("not connected")},
	} {
		c := &fakeClient{tok: tok}
		p := NewMQTTPublisher(c, "guard/events", 4, quiet())
		p.Publish(Event{Type: Stolen, Serial: "A"})
		drainEvents(p)
		if len(c.sent) != 1 {
			t.Fatalf("publish not attempted")
		}
	}
}

func TestMQTTPublisher_StalledBrokerDoesNotBlockCaller(t *testing.T) {
	c := &fakeClient{tok: &fakeToken{done: false}}
	p := NewMQTTPublisher(c, "guard/events", 2, quiet())
	p.wait = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	start := time.Now()
	for i := 0; i < 100; i++ {
		p.Publish(Event{Type: AlarmOn, Serials: []string{"A"}})
	}
	if d := time.Since(start); d > 50*time.Millisecond {
		t.Fatalf("100 publishes took %s", d)
	}
}

func TestMQTTPublisher_RunDelivers(t *testing.T) {
	c := &fakeClient{}
	p := NewMQTTPublisher(c, "guard/events", 4, quiet())
	p.Publish(Event{Type: Returned, Serial: "A"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for c.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("event never delivered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}

func TestLogWriter_CopiesPayload(t *testing.T) {
	c := &fakeClient{}
	w := NewLogWriter(c, "guard/logs", 4)

	buf := []byte("level=INFO msg=hello\n")
	n, err := w.Write(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("n=%d err=%v", n, err)
	}
	buf[0] = 'X'
	drainLines(w)

	if got := string(c.sent[0].payload); got != "level=INFO msg=hello\n" {
		t.Fatalf("payload aliased caller buffer: %q", got)
	}
	if c.sent[0].topic != "guard/logs" {
		t.Fatalf("topic=%q", c.sent[0].topic)
	}
}

func TestLogWriter_FullQueueDropsWithoutBlocking(t *testing.T) {
	c := &fakeClient{tok: &fakeToken{done: false}}
	w := NewLogWriter(c, "guard/logs", 2)

	start := time.Now()
	for i := 0; i < 100; i++ {
		if n, err := w.Write([]byte("line\n")); err != nil || n != 5 {
			t.Fatalf("n=%d err=%v", n, err)
		}
	}
	if d := time.Since(start); d > 50*time.Millisecond {
		t.Fatalf("100 writes took %s", d)
	}

	drainLines(w)
	if c.count() != 2 {
		t.Fatalf("queued=%d want 2", c.count())
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	p.Publish(Event{Type: AlarmOff})
}
