package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/optexch/exchange-core/config"
	postgres_wrapper "github.com/optexch/exchange-core/pkg/infra/postgres"
	redis_wrapper "github.com/optexch/exchange-core/pkg/infra/redis"
	kafkawrapper "github.com/optexch/exchange-core/pkg/kafka_wrapper"
	"github.com/optexch/exchange-core/pkg/oms"
	eventstore "github.com/optexch/exchange-core/pkg/oms/event_store"
	"github.com/optexch/exchange-core/pkg/oms/gateway"
	"github.com/optexch/exchange-core/pkg/oms/repo"
	"github.com/optexch/exchange-core/pkg/orderbook"
)

func main() {
	go func() {
		http.ListenAndServe("localhost:6060", nil) // nolint
	}()

	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// init db
	db, err := postgres_wrapper.InitPostgres(cfg.OmsDB)
	if err != nil {
		zap.S().Errorf("init db fail with err: %v", err)
		panic(err)
	}
	sqlRepo := repo.NewRepo(db)

	// order-event journal rides on JetStream
	var events eventstore.EventStore = eventstore.NewInMemoryEventStore()
	if cfg.Nats != nil {
		nc, err := nats.Connect(cfg.Nats.URL)
		if err != nil {
			zap.S().Errorf("connect nats fail with err: %v", err)
			panic(err)
		}
		defer nc.Close()

		js, err := nc.JetStream()
		if err != nil {
			panic(err)
		}
		_, _ = js.AddStream(&nats.StreamConfig{
			Name:     cfg.Nats.Stream,
			Subjects: []string{cfg.Nats.Stream + ".*"},
		})
		events = eventstore.NewJetStreamEventStore(js, cfg.Nats.Subject, events)
	}

	// depth snapshots to redis, executions to kafka; either may be absent
	var cache *redis.Client
	if cfg.Redis != nil {
		cache, err = redis_wrapper.InitRedis(cfg.Redis)
		if err != nil {
			zap.S().Errorf("init redis fail with err: %v", err)
			panic(err)
		}
	}

	var publisher *oms.Publisher
	if cfg.Kafka != nil || cache != nil {
		var producer *kafkawrapper.Producer
		topic := ""
		if cfg.Kafka != nil {
			producer = kafkawrapper.NewProducer(kafkawrapper.ProducerConfig{
				Brokers: cfg.Kafka.Brokers,
			})
			defer producer.Close()
			topic = cfg.Kafka.ExecutionTopic
		}
		publisher = oms.NewPublisher(producer, topic, cache)
	}

	engine := orderbook.NewMatchingEngine()
	gw := gateway.NewLogGateway()
	manager := oms.NewOrderManager(engine, gw, sqlRepo.Order(), events, publisher)

	// rebuild active orders and resting book state before accepting traffic
	if err := manager.Reload(ctx); err != nil {
		zap.S().Errorf("reload active orders fail with err: %v", err)
		panic(err)
	}

	if publisher != nil {
		go publisher.StartSnapshotLoop(ctx, engine, cfg.SnapshotDepth, time.Second)
	}

	if err := manager.Start(ctx); err != nil {
		panic(err)
	}
	fmt.Println("Exchange core started. Press Ctrl+C to exit.")

	<-sigs
	fmt.Println("Shutting down...")

	cancel()

	fmt.Println("Exited cleanly.")
}
