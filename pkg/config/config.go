package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// TTK_KAFKA_TOPIC or TTK_TWITTER_TO_KAFKA_KEYWORDS=java,kafka.
const EnvPrefix = "TTK"

type Config struct {
	TwitterToKafka TwitterToKafkaConfig `mapstructure:"twitter_to_kafka"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Server         ServerConfig         `mapstructure:"server"`
	Observability  ObservabilityConfig  `mapstructure:"observability"`
	Log            LogConfig            `mapstructure:"log"`
}

type TwitterToKafkaConfig struct {
	Keywords           []string      `mapstructure:"keywords" validate:"required,min=1,dive,required"`
	EnableMockTweets   bool          `mapstructure:"enable_mock_tweets"`
	MockMinTweetLength int           `mapstructure:"mock_min_tweet_length" validate:"gte=0"`
	MockMaxTweetLength int           `mapstructure:"mock_max_tweet_length" validate:"gtefield=MockMinTweetLength"`
	MockSleepMs        int64         `mapstructure:"mock_sleep_ms" validate:"gte=0"`
	Seed               uint64        `mapstructure:"seed"`
	Restart            RestartConfig `mapstructure:"restart"`
}

// MockSleep is the configured delay between two mock statuses.
func (c TwitterToKafkaConfig) MockSleep() time.Duration {
	return time.Duration(c.MockSleepMs) * time.Millisecond
}

type RestartConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxAttempts     int           `mapstructure:"max_attempts" validate:"gte=0"`
	InitialInterval time.Duration `mapstructure:"initial_interval" validate:"gte=0"`
	MaxInterval     time.Duration `mapstructure:"max_interval" validate:"gtefield=InitialInterval"`
}

type KafkaConfig struct {
	Brokers           []string       `mapstructure:"brokers" validate:"required,min=1,dive,required"`
	Topic             string         `mapstructure:"topic" validate:"required"`
	CreateTopics      bool           `mapstructure:"create_topics"`
	NumPartitions     int            `mapstructure:"num_partitions" validate:"gte=1"`
	ReplicationFactor int            `mapstructure:"replication_factor" validate:"gte=1"`
	Producer          ProducerConfig `mapstructure:"producer"`
}

type ProducerConfig struct {
	RequiredAcks      string        `mapstructure:"required_acks" validate:"oneof=none leader all"`
	Compression       string        `mapstructure:"compression" validate:"oneof=none gzip snappy lz4 zstd"`
	MaxRetries        int           `mapstructure:"max_retries" validate:"gte=0"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type ObservabilityConfig struct {
	MetricsPath string        `mapstructure:"metrics_path" validate:"required,startswith=/"`
	Tracing     TracingConfig `mapstructure:"tracing"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint" validate:"required_if=Enabled true"`
	ServiceName string `mapstructure:"service_name"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

var validate = validator.New()

// Load reads config.yaml from the usual locations, applies TTK_* overrides
// and validates the result. A missing config file is not an error.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/twitter-to-kafka/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return decode(v)
}

// LoadFile is Load for an explicit file path.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("twitter_to_kafka.keywords", []string{"Java", "Microservices", "Kafka", "Elasticsearch"})
	v.SetDefault("twitter_to_kafka.enable_mock_tweets", true)
	v.SetDefault("twitter_to_kafka.mock_min_tweet_length", 5)
	v.SetDefault("twitter_to_kafka.mock_max_tweet_length", 15)
	v.SetDefault("twitter_to_kafka.mock_sleep_ms", 10000)
	v.SetDefault("twitter_to_kafka.seed", 0)
	v.SetDefault("twitter_to_kafka.restart.enabled", false)
	v.SetDefault("twitter_to_kafka.restart.max_attempts", 5)
	v.SetDefault("twitter_to_kafka.restart.initial_interval", "1s")
	v.SetDefault("twitter_to_kafka.restart.max_interval", "1m")

	v.SetDefault("kafka.brokers", []string{"localhost:19092"})
	v.SetDefault("kafka.topic", "twitter-topic")
	v.SetDefault("kafka.create_topics", true)
	v.SetDefault("kafka.num_partitions", 3)
	v.SetDefault("kafka.replication_factor", 1)
	v.SetDefault("kafka.producer.required_acks", "all")
	v.SetDefault("kafka.producer.compression", "snappy")
	v.SetDefault("kafka.producer.max_retries", 5)
	v.SetDefault("kafka.producer.retry_backoff", "100ms")
	v.SetDefault("kafka.producer.connection_timeout", "5s")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8085)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")

	v.SetDefault("observability.metrics_path", "/metrics")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.service_name", "twitter-to-kafka")

	v.SetDefault("log.level", "info")
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the whole configuration tree.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
