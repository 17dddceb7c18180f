package main

import (
	"context"
	"encoding/json"
	"flag"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/optexch/exchange-core/config"
	postgres_wrapper "github.com/optexch/exchange-core/pkg/infra/postgres"
	kafkawrapper "github.com/optexch/exchange-core/pkg/kafka_wrapper"
	"github.com/optexch/exchange-core/pkg/oms/repo"
	"github.com/optexch/exchange-core/pkg/oms/worker"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	configBytes, err := json.MarshalIndent(cfg, "", "   ")
	if err != nil {
		zap.S().Warnf("could not convert config to JSON: %v", err)
	} else {
		zap.S().Debugf("load config %s", string(configBytes))
	}

	ctx := context.Background()

	// init db
	db, err := postgres_wrapper.InitPostgres(cfg.OmsDB)
	if err != nil {
		zap.S().Errorf("init db fail with err: %v", err)
		panic(err)
	}

	// init repo
	sqlRepo := repo.NewRepo(db)

	w := worker.NewWorker(sqlRepo)

	// NATS
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

	go func() {
		if err := w.StartOrderEventConsumer(ctx, js, cfg.Nats.Subject, cfg.Nats.Durable); err != nil {
			zap.S().Errorf("order event consumer stopped: %v", err)
		}
	}()

	// Kafka
	cg, err := kafkawrapper.NewConsumerGroup(kafkawrapper.ConsumerConfig{
		Brokers:      cfg.Kafka.Brokers,
		GroupID:      cfg.Kafka.ConsumerGroup,
		Topic:        cfg.Kafka.ExecutionTopic,
		MaxRetries:   5,
		BackoffMin:   100 * time.Millisecond,
		BackoffMax:   5 * time.Second,
		BatchSize:    100,
		BatchTimeout: time.Second,
	})
	if err != nil {
		zap.S().Errorf("init kafka consumer fail with err: %v", err)
		panic(err)
	}
	defer cg.Close()

	go func() {
		if err := w.StartExecutionConsumer(ctx, cg); err != nil {
			zap.S().Errorf("execution consumer stopped: %v", err)
		}
	}()

	select {}
}
