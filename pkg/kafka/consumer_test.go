package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeHandler struct {
	topic string
	fails int
	err   error
	calls int
}

func (h *fakeHandler) Topic() string { return h.topic }

func (h *fakeHandler) Handle(context.Context, []byte) error {
	h.calls++
	if h.calls <= h.fails {
		return h.err
	}
	return nil
}

type fakeReader struct {
	mu        sync.Mutex
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

type fakeWriter struct {
	written []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func newTestConsumer(t *testing.T, h *fakeHandler, dlq bool) (*Consumer, *fakeReader, *fakeWriter) {
	t.Helper()
	opts := []ConsumerOption{
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
	}
	c, err := NewConsumer(opts...)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	c.RegisterHandler(h)
	r := &fakeReader{}
	c.readers[h.topic] = r
	w := &fakeWriter{}
	if dlq {
		c.cfg.DLQTopic = "requests.dlq"
		c.dlq = w
	}
	return c, r, w
}

func TestProcessRetriesThenCommits(t *testing.T) {
	h := &fakeHandler{topic: "requests", fails: 2, err: errors.New("flaky")}
	c, r, w := newTestConsumer(t, h, true)

	c.process(kafka.Message{Topic: "requests", Value: []byte(`{}`)})

	if h.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", h.calls)
	}
	if len(r.committed) != 1 {
		t.Fatalf("expected commit, got %d", len(r.committed))
	}
	if len(w.written) != 0 {
		t.Fatalf("nothing should be dead-lettered")
	}
}

func TestProcessDeadLettersAfterRetries(t *testing.T) {
	h := &fakeHandler{topic: "requests", fails: 100, err: errors.New("down")}
	c, r, w := newTestConsumer(t, h, true)

	c.process(kafka.Message{Topic: "requests", Key: []byte("k"), Value: []byte(`{}`)})

	if h.calls != 3 {
		t.Fatalf("expected RetryMax+1 attempts, got %d", h.calls)
	}
	if len(w.written) != 1 {
		t.Fatalf("expected one dlq message, got %d", len(w.written))
	}
	dl := w.written[0]
	if dl.Topic != "requests.dlq" || string(dl.Headers[0].Value) != "requests" {
		t.Fatalf("unexpected dlq message %+v", dl)
	}
	if len(r.committed) != 1 {
		t.Fatalf("offset must be committed after dlq")
	}
}

func TestProcessPermanentErrorSkipsRetry(t *testing.T) {
	h := &fakeHandler{topic: "requests", fails: 100, err: fmt.Errorf("bad json: %w", ErrPermanent)}
	c, _, w := newTestConsumer(t, h, true)

	c.process(kafka.Message{Topic: "requests"})

	if h.calls != 1 {
		t.Fatalf("permanent errors must not be retried, got %d calls", h.calls)
	}
	if len(w.written) != 1 {
		t.Fatalf("expected dlq write")
	}
}

func TestProcessWithoutDLQDoesNotCommitFailures(t *testing.T) {
	h := &fakeHandler{topic: "requests", fails: 100, err: ErrPermanent}
	c, r, _ := newTestConsumer(t, h, false)

	c.process(kafka.Message{Topic: "requests"})

	if len(r.committed) != 0 {
		t.Fatalf("failed message without dlq must stay uncommitted")
	}
}

func TestBackoffWithJitterBounds(t *testing.T) {
	min, max := 10*time.Millisecond, 80*time.Millisecond
	for attempt := 1; attempt <= 8; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		if d <= 0 || d > max {
			t.Fatalf("attempt %d: backoff %v out of (0, %v]", attempt, d, max)
		}
	}
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	if _, err := NewConsumer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
}

type recordingHandler struct {
	mu   sync.Mutex
	seen map[int][]int
}

func (h *recordingHandler) Topic() string { return "requests" }

func (h *recordingHandler) Handle(_ context.Context, v []byte) error {
	var part, off int
	if _, err := fmt.Sscanf(string(v), "%d:%d", &part, &off); err != nil {
		return err
	}
	// widen the window in which a second worker could overtake
	time.Sleep(time.Duration(off%3) * 100 * time.Microsecond)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen[part] = append(h.seen[part], off)
	return nil
}

func TestPartitionOrderAcrossWorkers(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}), WithConsumerWorkers(4))
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	h := &recordingHandler{seen: map[int][]int{}}
	c.RegisterHandler(h)

	if c.queueFor("requests", 1) != c.queueFor("requests", 1) {
		t.Fatalf("a partition must always map to the same queue")
	}

	for _, q := range c.queues {
		c.wg.Add(1)
		go c.worker(q)
	}
	const parts, offsets = 3, 40
	for off := 0; off < offsets; off++ {
		for part := 0; part < parts; part++ {
			c.queueFor("requests", part) <- kafka.Message{
				Topic:     "requests",
				Partition: part,
				Offset:    int64(off),
				Value:     []byte(fmt.Sprintf("%d:%d", part, off)),
			}
		}
	}
	for _, q := range c.queues {
		close(q)
	}
	c.wg.Wait()

	for part := 0; part < parts; part++ {
		got := h.seen[part]
		if len(got) != offsets {
			t.Fatalf("partition %d: handled %d messages, want %d", part, len(got), offsets)
		}
		for i, off := range got {
			if off != i {
				t.Fatalf("partition %d handled out of order: %v", part, got)
			}
		}
	}
}
