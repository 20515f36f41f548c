// Command survey-notify publishes object-update events after survey files
// change in the bucket, and can smoke-test the cache and storage wiring.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"

	"github.com/mohammed-shakir/survey-stats/internal/cache/keys"
	"github.com/mohammed-shakir/survey-stats/internal/cache/redisstore"
	"github.com/mohammed-shakir/survey-stats/internal/core/config"
	"github.com/mohammed-shakir/survey-stats/internal/core/httpclient"
	"github.com/mohammed-shakir/survey-stats/internal/invalidation"
	"github.com/mohammed-shakir/survey-stats/internal/logger"
	"github.com/mohammed-shakir/survey-stats/internal/storage"
)

func main() {
	op := flag.String("op", invalidation.OpPut, "put or delete")
	version := flag.Uint64("version", uint64(time.Now().Unix()), "event version, must grow per object")
	check := flag.Bool("check", false, "report redis state and fetch each object before publishing")
	flag.Parse()

	cfg := config.FromEnv()
	zl := logger.Build(logger.Config{Level: cfg.LogLevel, Console: true, Service: "survey-notify"}, os.Stderr)
	log := logger.NewSlog(&zl)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	events, err := buildEvents(cfg.StorageBucket, *op, *version, flag.Args(), time.Now().UTC())
	if err != nil {
		log.Error("bad arguments", "err", err)
		os.Exit(2)
	}

	if *check {
		if err := checkCache(ctx, cfg.RedisAddr, events, log); err != nil {
			log.Error("redis check failed", "err", err)
			os.Exit(1)
		}
		if err := checkStorage(ctx, cfg, events); err != nil {
			log.Error("storage check failed", "err", err)
			os.Exit(1)
		}
		log.Info("checks passed")
	}

	if err := publish(cfg.Invalidation.BrokerList(), cfg.Invalidation.Topic, events); err != nil {
		log.Error("publish failed", "err", err)
		os.Exit(1)
	}
	log.Info("published", "events", len(events), "topic", cfg.Invalidation.Topic)
}

// buildEvents turns "a:b" references or "a/b.csv" paths into events.
func buildEvents(bucket, op string, version uint64, args []string, ts time.Time) ([]invalidation.Event, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("usage: survey-notify [-op put|delete] [-check] <ref|path>...")
	}
	out := make([]invalidation.Event, 0, len(args))
	for _, a := range args {
		path := a
		if !strings.Contains(a, "/") {
			p, err := storage.ObjectPath(a, "csv")
			if err != nil {
				return nil, err
			}
			path = p
		}
		ev := invalidation.Event{Version: version, Op: op, Bucket: bucket, Path: path, TS: ts}
		if err := ev.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", a, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// checkCache logs whether each object currently sits in the shared tier.
func checkCache(ctx context.Context, addr string, events []invalidation.Event, log *slog.Logger) error {
	if addr == "" {
		return nil
	}
	rc, err := redisstore.New(ctx, addr)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	for _, ev := range events {
		key := keys.Object(ev.Bucket, ev.Path)
		ttl, ok, err := rc.TTL(ctx, key)
		if err != nil {
			return err
		}
		log.Info("cache state", "path", ev.Path, "cached", ok, "ttl", ttl.String())
	}
	return nil
}

func checkStorage(ctx context.Context, cfg config.Config, events []invalidation.Event) error {
	zl := logger.Build(logger.Config{Level: "error"}, os.Stderr)
	f, err := storage.New(cfg.StorageDriver, cfg, logger.NewSlog(&zl), httpclient.NewOutbound(httpclient.WithTimeout(cfg.StorageTimeout)))
	if err != nil {
		return err
	}
	for _, ev := range events {
		if ev.Op == invalidation.OpDelete {
			continue
		}
		if _, err := f.Fetch(ctx, ev.Path); err != nil {
			return fmt.Errorf("fetch %s: %w", ev.Path, err)
		}
	}
	return nil
}

func publish(brokers []string, topic string, events []invalidation.Event) error {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Version = sarama.V2_5_0_0
	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return fmt.Errorf("producer create: %w", err)
	}
	defer func() { _ = prod.Close() }()
	return send(prod, topic, events)
}

// send keys each message by object so that versions of one object stay
// ordered within a partition.
func send(prod sarama.SyncProducer, topic string, events []invalidation.Event) error {
	msgs := make([]*sarama.ProducerMessage, 0, len(events))
	for _, ev := range events {
		b, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic:     topic,
			Key:       sarama.StringEncoder(ev.ObjectKey()),
			Value:     sarama.ByteEncoder(b),
			Timestamp: ev.TS,
		})
	}
	if err := prod.SendMessages(msgs); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}
