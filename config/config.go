package config

import (
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	postgres_wrapper "github.com/optexch/exchange-core/pkg/infra/postgres"
	redis_wrapper "github.com/optexch/exchange-core/pkg/infra/redis"
)

type KafkaConfig struct {
	Brokers        []string `yaml:"brokers"`
	ExecutionTopic string   `yaml:"execution_topic"`
	ConsumerGroup  string   `yaml:"consumer_group"`
}

type NatsConfig struct {
	URL     string `yaml:"url"`
	Stream  string `yaml:"stream"`
	Subject string `yaml:"subject"`
	Durable string `yaml:"durable"`
}

type AppConfig struct {
	ServiceName   string                           `yaml:"service_name"`
	OmsDB         *postgres_wrapper.PostgresConfig `yaml:"oms_db"`
	Redis         *redis_wrapper.RedisConfig       `yaml:"redis"`
	Kafka         *KafkaConfig                     `yaml:"kafka"`
	Nats          *NatsConfig                      `yaml:"nats"`
	SnapshotDepth int                              `yaml:"snapshot_depth"`
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	sugar := zap.S().With("func", "config.Load", "filePath", filePath)

	sugar.Debug("Load config...")

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	if cfg.SnapshotDepth == 0 {
		cfg.SnapshotDepth = 10
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}
