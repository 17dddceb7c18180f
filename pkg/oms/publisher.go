package oms

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	kafkawrapper "github.com/optexch/exchange-core/pkg/kafka_wrapper"
	"github.com/optexch/exchange-core/pkg/oms/model"
	"github.com/optexch/exchange-core/pkg/orderbook"
)

const snapshotCacheTTL = 10 * time.Second

// Publisher fans executed trades out to Kafka and keeps depth snapshots of
// every traded symbol in Redis for the market-data collaborator. Both paths
// are best-effort: a broker or cache outage must never fail an order.
type Publisher struct {
	producer  *kafkawrapper.Producer
	execTopic string
	cache     *redis.Client
}

func NewPublisher(producer *kafkawrapper.Producer, execTopic string, cache *redis.Client) *Publisher {
	return &Publisher{
		producer:  producer,
		execTopic: execTopic,
		cache:     cache,
	}
}

func (p *Publisher) PublishExecution(ctx context.Context, exec *model.Execution) {
	if p.producer == nil {
		return
	}
	// key by symbol so one symbol's executions stay ordered per partition
	if err := p.producer.PublishJSON(ctx, p.execTopic, exec.Symbol, exec, nil); err != nil {
		zap.S().Errorw("publish execution", "exec_id", exec.ExecID, "err", err)
	}
}

func (p *Publisher) CacheSnapshot(ctx context.Context, snap *orderbook.BookSnapshot) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		zap.S().Errorw("marshal snapshot", "symbol", snap.Symbol, "err", err)
		return
	}
	if err := p.cache.Set(ctx, "book:"+snap.Symbol, data, snapshotCacheTTL).Err(); err != nil {
		zap.S().Errorw("cache snapshot", "symbol", snap.Symbol, "err", err)
	}
}

// StartSnapshotLoop periodically caches a depth snapshot of every symbol the
// engine has seen. Blocks until ctx is done.
func (p *Publisher) StartSnapshotLoop(ctx context.Context, engine *orderbook.MatchingEngine, depth int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, symbol := range engine.Symbols() {
				p.CacheSnapshot(ctx, engine.Snapshot(symbol, depth))
			}
		case <-ctx.Done():
			return
		}
	}
}
