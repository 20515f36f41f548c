package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mohammed-shakir/survey-stats/internal/core/config"
	"github.com/mohammed-shakir/survey-stats/internal/invalidation"
)

type fakeEvictor struct {
	mu      sync.Mutex
	evicted []string
	err     error
}

func (f *fakeEvictor) Evict(_ context.Context, bucket, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.evicted = append(f.evicted, bucket+"/"+path)
	return nil
}

func (f *fakeEvictor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.evicted)
}

func enabledCfg() InvalidationConfig {
	return InvalidationConfig{Enabled: true, Driver: DriverKafka, Topic: "t", GroupID: "g"}
}

func message(t *testing.T, ev invalidation.Event, offset int64) *sarama.ConsumerMessage {
	t.Helper()
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &sarama.ConsumerMessage{Topic: "t", Offset: offset, Timestamp: ev.TS, Value: b}
}

func TestHandleMessage_EvictsOncePerVersion(t *testing.T) {
	fe := &fakeEvictor{}
	reg := prometheus.NewRegistry()
	r := New(enabledCfg(), fe, Options{Register: reg})
	ctx := context.Background()

	ev := invalidation.Event{Version: 2, Op: invalidation.OpPut, Bucket: "haig-fras", Path: "hf2012/summary.csv", TS: time.Now().UTC()}
	if err := r.handleMessage(ctx, message(t, ev, 1)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	// replay and an older version are both skipped
	if err := r.handleMessage(ctx, message(t, ev, 2)); err != nil {
		t.Fatalf("replay: %v", err)
	}
	ev.Version = 1
	if err := r.handleMessage(ctx, message(t, ev, 3)); err != nil {
		t.Fatalf("older: %v", err)
	}
	if got := fe.count(); got != 1 {
		t.Fatalf("evictions=%d want 1", got)
	}
	if got := testutil.ToFloat64(r.ms.evictions.WithLabelValues("put", "stale")); got != 2 {
		t.Fatalf("stale=%v want 2", got)
	}

	ev.Version = 3
	ev.Op = invalidation.OpDelete
	if err := r.handleMessage(ctx, message(t, ev, 4)); err != nil {
		t.Fatalf("newer: %v", err)
	}
	if got := fe.count(); got != 2 {
		t.Fatalf("evictions=%d want 2", got)
	}
}

func TestHandleMessage_VersionsArePerObject(t *testing.T) {
	fe := &fakeEvictor{}
	r := New(enabledCfg(), fe, Options{})
	ctx := context.Background()
	for _, p := range []string{"hf2012/a.csv", "hf2012/b.csv"} {
		ev := invalidation.Event{Version: 1, Op: invalidation.OpPut, Bucket: "haig-fras", Path: p}
		if err := r.handleMessage(ctx, message(t, ev, 1)); err != nil {
			t.Fatalf("handleMessage: %v", err)
		}
	}
	if got := fe.count(); got != 2 {
		t.Fatalf("evictions=%d want 2", got)
	}
}

func TestHandleMessage_SkipsMalformed(t *testing.T) {
	fe := &fakeEvictor{}
	r := New(enabledCfg(), fe, Options{Register: prometheus.NewRegistry()})
	ctx := context.Background()

	bad := []*sarama.ConsumerMessage{
		{Value: []byte("not json")},
		message(t, invalidation.Event{Version: 1, Op: "update", Bucket: "b", Path: "p"}, 1),
	}
	for _, m := range bad {
		if err := r.handleMessage(ctx, m); err != nil {
			t.Fatalf("malformed message should not stop the partition: %v", err)
		}
	}
	if fe.count() != 0 {
		t.Fatalf("malformed messages must not evict")
	}
	if got := testutil.ToFloat64(r.ms.events.WithLabelValues("invalid")); got != 2 {
		t.Fatalf("invalid=%v want 2", got)
	}
}

func TestHandleMessage_EvictErrorSurfaces(t *testing.T) {
	fe := &fakeEvictor{err: errors.New("redis down")}
	r := New(enabledCfg(), fe, Options{})
	ev := invalidation.Event{Version: 1, Op: invalidation.OpPut, Bucket: "b", Path: "p.csv"}
	if err := r.handleMessage(context.Background(), message(t, ev, 1)); err == nil {
		t.Fatalf("expected evict error")
	}

	// the unmarked message comes back once redis is reachable again
	fe.mu.Lock()
	fe.err = nil
	fe.mu.Unlock()
	if err := r.handleMessage(context.Background(), message(t, ev, 1)); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if got := fe.count(); got != 1 {
		t.Fatalf("evictions after redelivery=%d want 1", got)
	}
	if err := r.handleMessage(context.Background(), message(t, ev, 1)); err != nil {
		t.Fatalf("second redelivery: %v", err)
	}
	if got := fe.count(); got != 1 {
		t.Fatalf("applied version evicted again, evictions=%d", got)
	}
}

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	claims map[string][]int32
	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Context() context.Context   { return s.ctx }
func (s *fakeSession) Claims() map[string][]int32 { return s.claims }
func (s *fakeSession) MarkMessage(m *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	s.marked = append(s.marked, m.Offset)
	s.mu.Unlock()
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	ch chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.ch }

func TestGroupHandler_AssignConsumeRevoke(t *testing.T) {
	fe := &fakeEvictor{}
	r := New(enabledCfg(), fe, Options{})
	h := &groupHandler{setup: r.onAssign, cleanup: r.onRevoke, process: r.handleMessage}
	sess := &fakeSession{ctx: context.Background(), claims: map[string][]int32{"t": {0, 2}}}

	if ready, _ := r.Readiness(); ready {
		t.Fatalf("ready before assignment")
	}
	if err := h.Setup(sess); err != nil {
		t.Fatalf("setup: %v", err)
	}
	ready, parts := r.Readiness()
	if !ready || len(parts) != 2 {
		t.Fatalf("ready=%v parts=%v", ready, parts)
	}

	claim := &fakeClaim{ch: make(chan *sarama.ConsumerMessage, 2)}
	claim.ch <- message(t, invalidation.Event{Version: 1, Op: invalidation.OpPut, Bucket: "b", Path: "x.csv"}, 10)
	claim.ch <- message(t, invalidation.Event{Version: 1, Op: invalidation.OpDelete, Bucket: "b", Path: "y.csv"}, 11)
	close(claim.ch)
	if err := h.ConsumeClaim(sess, claim); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if len(sess.marked) != 2 || sess.marked[1] != 11 || fe.count() != 2 {
		t.Fatalf("marked=%v evicted=%d", sess.marked, fe.count())
	}

	if err := h.Cleanup(sess); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if ready, _ := r.Readiness(); ready {
		t.Fatalf("ready after revoke")
	}
}

func TestStart_DisabledIsNoop(t *testing.T) {
	r := New(FromConfig(config.InvalidationCfg{Enabled: true, Driver: "none"}), nil, Options{})
	r.newGroup = func([]string, string, *sarama.Config) (sarama.ConsumerGroup, error) {
		t.Fatalf("group must not be created")
		return nil, nil
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	r.Stop()
}

func TestStart_GroupError(t *testing.T) {
	r := New(enabledCfg(), &fakeEvictor{}, Options{})
	r.newGroup = func([]string, string, *sarama.Config) (sarama.ConsumerGroup, error) {
		return nil, sarama.ErrOutOfBrokers
	}
	if err := r.Start(context.Background()); !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("want ErrOutOfBrokers, got %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	c := FromConfig(config.InvalidationCfg{Enabled: true, Driver: "kafka", Brokers: "a:9092, ,b:9092", Topic: "t", GroupID: "g", DedupeSize: 16})
	if !c.active() || len(c.Brokers) != 2 || c.Brokers[1] != "b:9092" || !c.InitialOldest || c.DedupeSize != 16 {
		t.Fatalf("cfg=%+v", c)
	}
}

func TestVersionGate_CheckThenRecord(t *testing.T) {
	g := newVersionGate(4)
	if !g.newer("b/a.csv", 3) {
		t.Fatalf("unseen key must be newer")
	}
	// checking alone does not consume the version
	if !g.newer("b/a.csv", 3) {
		t.Fatalf("unrecorded version rejected")
	}
	g.record("b/a.csv", 3)
	g.record("b/a.csv", 2)
	if g.newer("b/a.csv", 3) {
		t.Fatalf("recorded version admitted again")
	}
	if !g.newer("b/a.csv", 4) {
		t.Fatalf("higher version rejected")
	}
}
