package stats

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// captureHook intercepts commands before they reach the network.
type captureHook struct {
	mu       sync.Mutex
	pipeline [][]string
	fail     error
	hgetall  map[string]string
}

func (h *captureHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("dial disabled in tests")
	}
}

func (h *captureHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if c, ok := cmd.(*redis.MapStringStringCmd); ok {
			c.SetVal(h.hgetall)
			return nil
		}
		return errors.New("unexpected command " + cmd.Name())
	}
}

func (h *captureHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, cmd := range cmds {
			parts := make([]string, 0, len(cmd.Args()))
			for _, a := range cmd.Args() {
				parts = append(parts, fmt.Sprint(a))
			}
			h.pipeline = append(h.pipeline, parts)
		}
		return h.fail
	}
}

func newTestClient(h *captureHook) *redis.Client {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	rdb.AddHook(h)
	return rdb
}

func TestRedisRecorder_Record(t *testing.T) {
	h := &captureHook{}
	rdb := newTestClient(h)
	defer rdb.Close()

	r := NewRedisRecorder(rdb, WithPrefix(":amh:contact:"), WithBucketTTL(time.Hour))
	at := time.Date(2024, 3, 9, 14, 5, 30, 0, time.UTC)

	if err := r.Record(context.Background(), Event{Outcome: "delivered", At: at}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	want := []string{
		"hincrby amh:contact:total delivered 1",
		"hincrby amh:contact:minute:202403091405 delivered 1",
		"expire amh:contact:minute:202403091405 3600",
	}
	if len(h.pipeline) != len(want) {
		t.Fatalf("pipeline = %v, want %d commands", h.pipeline, len(want))
	}
	for i, w := range want {
		if got := strings.Join(h.pipeline[i], " "); got != w {
			t.Errorf("command %d = %q, want %q", i, got, w)
		}
	}
}

func TestRedisRecorder_RecordError(t *testing.T) {
	h := &captureHook{fail: errors.New("connection refused")}
	rdb := newTestClient(h)
	defer rdb.Close()

	r := NewRedisRecorder(rdb, WithBucketTTL(0))
	err := r.Record(context.Background(), Event{Outcome: "received"})
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("Record() error = %v, want connection refused", err)
	}
	// No TTL means no EXPIRE in the pipeline.
	if len(h.pipeline) != 2 {
		t.Errorf("pipeline = %v, want 2 commands", h.pipeline)
	}
}

func TestRedisRecorder_SkipsEmptyOutcome(t *testing.T) {
	h := &captureHook{}
	rdb := newTestClient(h)
	defer rdb.Close()

	if err := NewRedisRecorder(rdb).Record(context.Background(), Event{}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(h.pipeline) != 0 {
		t.Errorf("pipeline = %v, want none", h.pipeline)
	}
}

func TestRedisRecorder_Totals(t *testing.T) {
	h := &captureHook{hgetall: map[string]string{"delivered": "4", "received": "1", "bogus": "x"}}
	rdb := newTestClient(h)
	defer rdb.Close()

	got, err := NewRedisRecorder(rdb).Totals(context.Background())
	if err != nil {
		t.Fatalf("Totals() error = %v", err)
	}
	if got["delivered"] != 4 || got["received"] != 1 {
		t.Errorf("Totals() = %v", got)
	}
	if _, ok := got["bogus"]; ok {
		t.Error("Totals() should skip non-numeric fields")
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for _, o := range []string{"delivered", "delivered", "invalid"} {
		if err := m.Record(ctx, Event{Outcome: o}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	got, _ := m.Totals(ctx)
	if got["delivered"] != 2 || got["invalid"] != 1 {
		t.Errorf("Totals() = %v", got)
	}

	if err := (Nop{}).Record(ctx, Event{Outcome: "x"}); err != nil {
		t.Errorf("Nop.Record() error = %v", err)
	}
}
