// Package kafka consumes object-update events and evicts the matching
// survey files from the fetch cache.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/survey-stats/internal/invalidation"
	"github.com/mohammed-shakir/survey-stats/internal/logger"
)

type groupFactory func(brokers []string, group string, cfg *sarama.Config) (sarama.ConsumerGroup, error)

type Runner struct {
	log      *slog.Logger
	cfg      InvalidationConfig
	evictor  Evictor
	ms       *runnerMetrics
	ver      *versionGate
	newGroup groupFactory
	assigned atomic.Bool
	assignMu sync.RWMutex
	assign   map[int32]struct{}
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

type Options struct {
	Logger   *slog.Logger
	Register prometheus.Registerer
}

func New(cfg InvalidationConfig, ev Evictor, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		log:      opts.Logger,
		cfg:      cfg,
		evictor:  ev,
		ms:       newRunnerMetrics(opts.Register),
		ver:      newVersionGate(cfg.DedupeSize),
		newGroup: sarama.NewConsumerGroup,
		assign:   map[int32]struct{}{},
	}
}

func (r *Runner) saramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Group.Session.Timeout = r.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = r.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = r.cfg.RebalanceTimeout
	if r.cfg.InitialOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Return.Errors = true
	return cfg
}

// Start joins the consumer group in the background. It is a no-op unless
// the kafka driver is enabled.
func (r *Runner) Start(ctx context.Context) error {
	if !r.cfg.active() {
		r.log.Info("invalidation runner disabled", "driver", r.cfg.Driver, "enabled", r.cfg.Enabled)
		return nil
	}
	if r.evictor == nil {
		return errors.New("kafka runner: evictor dependency is required")
	}

	ctx, cancel := context.WithCancel(logger.WithComponent(ctx, "invalidation"))
	r.cancel = cancel

	group, err := r.newGroup(r.cfg.Brokers, r.cfg.GroupID, r.saramaConfig())
	if err != nil {
		cancel()
		return fmt.Errorf("consumer group: %w", err)
	}

	h := &groupHandler{
		setup:   r.onAssign,
		cleanup: r.onRevoke,
		process: r.handleMessage,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if err := group.Close(); err != nil {
				r.log.ErrorContext(ctx, "kafka consumer group close", "err", err)
			}
		}()

		for {
			if err := group.Consume(ctx, []string{r.cfg.Topic}, h); err != nil {
				r.log.ErrorContext(ctx, "kafka consume error", "err", err)
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for err := range group.Errors() {
			r.log.ErrorContext(ctx, "kafka group error", "err", err)
		}
	}()

	r.log.InfoContext(ctx, "kafka invalidation runner started",
		"topic", r.cfg.Topic, "group", r.cfg.GroupID, "brokers", r.cfg.Brokers)
	return nil
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.log.Info("kafka invalidation runner stopped")
}

func (r *Runner) onAssign(sess sarama.ConsumerGroupSession) {
	r.assignMu.Lock()
	defer r.assignMu.Unlock()
	r.assigned.Store(true)
	r.assign = map[int32]struct{}{}
	for _, parts := range sess.Claims() {
		for _, p := range parts {
			r.assign[p] = struct{}{}
		}
	}
}

func (r *Runner) onRevoke(sarama.ConsumerGroupSession) {
	r.assignMu.Lock()
	defer r.assignMu.Unlock()
	r.assigned.Store(false)
	r.assign = map[int32]struct{}{}
}

// Readiness reports whether the runner holds partitions.
func (r *Runner) Readiness() (ready bool, partitions []int32) {
	if !r.assigned.Load() {
		return false, nil
	}
	r.assignMu.RLock()
	defer r.assignMu.RUnlock()
	for p := range r.assign {
		partitions = append(partitions, p)
	}
	return true, partitions
}

// handleMessage evicts the object named by one event. Malformed events are
// counted and skipped so that one bad record cannot stall the partition.
func (r *Runner) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	start := time.Now()

	r.ms.lag(msg.Timestamp)

	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		r.ms.invalid()
		r.log.WarnContext(ctx, "invalidation decode failed",
			"partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}
	if err := ev.Validate(); err != nil {
		r.ms.invalid()
		r.log.WarnContext(ctx, "invalidation event rejected",
			"partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}

	err := r.apply(ctx, ev)
	r.ms.done(ev.Op, err, time.Since(start))
	return err
}

func (r *Runner) apply(ctx context.Context, ev invalidation.Event) error {
	key := ev.ObjectKey()
	if !r.ver.newer(key, ev.Version) {
		r.ms.stale(ev.Op)
		return nil
	}
	// a failed eviction leaves the version unrecorded so redelivery retries it
	if err := r.evictor.Evict(ctx, ev.Bucket, ev.Path); err != nil {
		return fmt.Errorf("evict %s: %w", key, err)
	}
	r.ver.record(key, ev.Version)
	r.ms.evicted(ev.Op)
	r.log.DebugContext(ctx, "object evicted", "object", key, "op", ev.Op, "version", ev.Version)
	return nil
}

type groupHandler struct {
	setup   func(sarama.ConsumerGroupSession)
	cleanup func(sarama.ConsumerGroupSession)
	process func(context.Context, *sarama.ConsumerMessage) error
}

func (h *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	if h.setup != nil {
		h.setup(sess)
	}
	return nil
}

func (h *groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	if h.cleanup != nil {
		h.cleanup(sess)
	}
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for msg := range claim.Messages() {
		if err := h.process(ctx, msg); err != nil {
			return err
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
