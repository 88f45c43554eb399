package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"aegis-hq/warden/pkg/policy/engine"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingChannel records sends and fails the first failN attempts.
type countingChannel struct {
	name  string
	mu    sync.Mutex
	sent  []Message
	failN int
	calls int
}

func (c *countingChannel) Name() string { return c.name }

func (c *countingChannel) Send(ctx context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls <= c.failN {
		return fmt.Errorf("transient failure %d", c.calls)
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *countingChannel) delivered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func notification(channels ...string) engine.Notification {
	return engine.Notification{
		DecisionID:  "d-1",
		RuleID:      "rule-1",
		Channels:    channels,
		Message:     "escalation required",
		Disposition: engine.DispositionEscalate,
	}
}

func TestManager_FanOut(t *testing.T) {
	a := &countingChannel{name: "secops"}
	b := &countingChannel{name: "oncall"}
	m := NewManager([]Channel{a, b}, nil, testLogger())

	if err := m.Notify(context.Background(), notification("secops", "oncall")); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	m.Close()

	if a.delivered() != 1 || b.delivered() != 1 {
		t.Errorf("delivered = %d/%d, want 1 on each channel", a.delivered(), b.delivered())
	}
	if got := a.sent[0]; got.RuleID != "rule-1" || got.Disposition != "escalate" {
		t.Errorf("message = %+v", got)
	}
}

func TestManager_RetriesTransientFailures(t *testing.T) {
	ch := &countingChannel{name: "flaky", failN: 2}
	m := NewManager([]Channel{ch}, &ManagerConfig{MaxRetries: 4}, testLogger())

	if err := m.Notify(context.Background(), notification("flaky")); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	m.Close()

	if ch.delivered() != 1 {
		t.Errorf("delivered = %d, want 1 after retries", ch.delivered())
	}
	if ch.calls != 3 {
		t.Errorf("attempts = %d, want 3 (two failures, one success)", ch.calls)
	}
}

func TestManager_GivesUpAfterMaxRetries(t *testing.T) {
	ch := &countingChannel{name: "dead", failN: 100}
	m := NewManager([]Channel{ch}, &ManagerConfig{MaxRetries: 2}, testLogger())

	if err := m.Notify(context.Background(), notification("dead")); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	m.Close()

	if ch.delivered() != 0 {
		t.Errorf("delivered = %d, want 0", ch.delivered())
	}
	if ch.calls != 2 {
		t.Errorf("attempts = %d, want exactly the retry cap", ch.calls)
	}
}

func TestManager_UnknownChannel(t *testing.T) {
	known := &countingChannel{name: "secops"}
	m := NewManager([]Channel{known}, nil, testLogger())

	err := m.Notify(context.Background(), notification("nonexistent", "secops"))
	if err == nil {
		t.Error("Notify = nil, want an error naming the unknown channel")
	} else if !strings.Contains(err.Error(), "nonexistent") {
		t.Errorf("error = %v, want it to name the channel", err)
	}
	m.Close()

	// The known channel still got its delivery.
	if known.delivered() != 1 {
		t.Errorf("delivered = %d, want fan-out to proceed past the unknown name", known.delivered())
	}
}

// blockingChannel holds every Send until released.
type blockingChannel struct {
	name    string
	started chan struct{}
	release chan struct{}
}

func (c *blockingChannel) Name() string { return c.name }

func (c *blockingChannel) Send(ctx context.Context, msg Message) error {
	c.started <- struct{}{}
	<-c.release
	return nil
}

func TestManager_QueueFullDropsDelivery(t *testing.T) {
	ch := &blockingChannel{
		name:    "stuck",
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
	m := NewManager([]Channel{ch}, &ManagerConfig{QueueSize: 1, Workers: 1}, testLogger())

	// The first delivery occupies the only worker.
	if err := m.Notify(context.Background(), notification("stuck")); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	<-ch.started

	// The second fills the single queue slot.
	if err := m.Notify(context.Background(), notification("stuck")); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	// The third has nowhere to go.
	err := m.Notify(context.Background(), notification("stuck"))
	var qfe *QueueFullError
	if !errors.As(err, &qfe) {
		t.Fatalf("Notify = %v, want a QueueFullError", err)
	}
	if qfe.Channel != "stuck" {
		t.Errorf("Channel = %q, want stuck", qfe.Channel)
	}
	if m.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", m.Dropped())
	}

	close(ch.release)
	m.Close()
}

func TestManager_NotifyDoesNotBlock(t *testing.T) {
	ch := &countingChannel{name: "slow"}
	m := NewManager([]Channel{ch}, &ManagerConfig{QueueSize: 10}, testLogger())
	defer m.Close()

	start := time.Now()
	for i := 0; i < 10; i++ {
		m.Notify(context.Background(), notification("slow"))
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("10 Notify calls took %v, want enqueue-only latency", elapsed)
	}
}

func TestWebhookChannel(t *testing.T) {
	var gotBody []byte
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	ch := NewWebhookChannel("hook", srv.URL, map[string]string{"Authorization": "Bearer tok"}, time.Second)
	msg := Message{DecisionID: "d-1", RuleID: "r-1", Disposition: "block", Body: "blocked"}

	if err := ch.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}

	var decoded Message
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded.DecisionID != "d-1" || decoded.Disposition != "block" {
		t.Errorf("payload = %+v", decoded)
	}
}

func TestWebhookChannel_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ch := NewWebhookChannel("hook", srv.URL, nil, time.Second)
	if err := ch.Send(context.Background(), Message{}); err == nil {
		t.Error("Send accepted a 502, want error for retry")
	}
}

func TestSlackChannel(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	ch := NewSlackChannel("slack", srv.URL, time.Second)
	msg := Message{DecisionID: "d-1", RuleID: "r-1", Disposition: "escalate", Body: "needs review"}
	if err := ch.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var payload slackPayload
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	for _, want := range []string{"escalate", "needs review", "r-1"} {
		if !strings.Contains(payload.Text, want) {
			t.Errorf("text = %q, want it to contain %q", payload.Text, want)
		}
	}
}

func TestStdoutChannel(t *testing.T) {
	var buf bytes.Buffer
	ch := NewWriterChannel("console", &buf)

	if err := ch.Send(context.Background(), Message{DecisionID: "d-1", Body: "hello"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("line is not valid JSON: %v", err)
	}
	if decoded.DecisionID != "d-1" {
		t.Errorf("decoded = %+v", decoded)
	}
}
