package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// weightTolerance bounds the float error accepted when weights are summed.
const weightTolerance = 1e-6

// DefaultFactorWeights is used when scoring.factor_weights is omitted.
var DefaultFactorWeights = map[string]float64{
	"price_momentum":      0.15,
	"funding_rate":        0.15,
	"open_interest_trend": 0.10,
	"long_short_ratio":    0.15,
	"liquidation_balance": 0.10,
	"social_sentiment":    0.10,
	"orderbook_imbalance": 0.15,
	"range_position":      0.10,
}

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimit       struct {
			Capacity     float64 `yaml:"capacity" default:"30" validate:"gte=1"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"5" validate:"gt=0"`
			// IdleTTL evicts client buckets unused for this long.
			IdleTTL time.Duration `yaml:"idle_ttl" default:"10m"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Logging struct {
		Level             string        `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format            string        `yaml:"format" default:"json" validate:"oneof=json console"`
		Output            string        `yaml:"output" default:"stdout"`
		CollectorTopic    string        `yaml:"collector_topic"`
		CollectorInterval time.Duration `yaml:"collector_interval" default:"30s"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Dispatcher struct {
		DefaultTimeoutSeconds float64            `yaml:"default_timeout_seconds" default:"30"`
		TimeoutOverrides      map[string]float64 `yaml:"timeout_overrides"`
		RequestsTopic         string             `yaml:"requests_topic"`
		ResponsesTopic        string             `yaml:"responses_topic"`
	} `yaml:"dispatcher"`
	Scoring struct {
		MinFactorCoverage      float64            `yaml:"min_factor_coverage" default:"0.5"`
		ConfidenceWarnCoverage float64            `yaml:"confidence_warn_coverage" default:"0.75"`
		LongThreshold          float64            `yaml:"long_threshold" default:"52"`
		ShortThreshold         float64            `yaml:"short_threshold" default:"48"`
		FactorWeights          map[string]float64 `yaml:"factor_weights"`
		HighDispersion         float64            `yaml:"high_dispersion" default:"15"`
		MediumDispersion       float64            `yaml:"medium_dispersion" default:"25"`
		ReasonMargin           float64            `yaml:"reason_margin" default:"10"`
		SignalDeadline         time.Duration      `yaml:"signal_deadline"`
	} `yaml:"scoring"`
	Binance struct {
		APIKey         string        `yaml:"api_key"`
		SecretKey      string        `yaml:"secret_key"`
		Testnet        bool          `yaml:"testnet"`
		StatsPeriod    string        `yaml:"stats_period" default:"1h" validate:"oneof=5m 15m 30m 1h 4h 1d"`
		OIPoints       int           `yaml:"oi_points" default:"24" validate:"gte=2,lte=500"`
		DepthLevels    int           `yaml:"depth_levels" default:"20" validate:"oneof=5 10 20 50 100 500 1000"`
		RangeInterval  string        `yaml:"range_interval" default:"1h"`
		RangeCandles   int           `yaml:"range_candles" default:"24" validate:"gte=2,lte=1500"`
		WebSocketURL   string        `yaml:"websocket_url" default:"wss://fstream.binance.com/ws/!forceOrder@arr"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"binance"`
	Coinglass struct {
		APIKey   string        `yaml:"api_key"`
		BaseURL  string        `yaml:"base_url" default:"https://open-api-v4.coinglass.com"`
		Interval string        `yaml:"interval" default:"1h"`
		Timeout  time.Duration `yaml:"timeout" default:"10s"`
		Retries  int           `yaml:"retries" default:"2" validate:"gte=0,lte=5"`
	} `yaml:"coinglass"`
	Sentiment struct {
		BaseURL  string        `yaml:"base_url" default:"https://api.alternative.me"`
		Timeout  time.Duration `yaml:"timeout" default:"10s"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"10m"`
	} `yaml:"sentiment"`
	Liquidations struct {
		Source string        `yaml:"source" default:"coinglass" validate:"oneof=coinglass stream"`
		Window time.Duration `yaml:"window" default:"1h"`
	} `yaml:"liquidations"`
	Signal struct {
		Symbols          []string      `yaml:"symbols"`
		CacheTTL         time.Duration `yaml:"cache_ttl" default:"60s"`
		Topic            string        `yaml:"topic" default:"cryptosatx.signals"`
		Persist          bool          `yaml:"persist" default:"true"`
		BatchConcurrency int           `yaml:"batch_concurrency" default:"4" validate:"gte=1,lte=32"`
		HistoryLimit     int           `yaml:"history_limit" default:"500" validate:"gte=1"`
	} `yaml:"signal"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"cryptosatx-dispatch"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"2"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"cryptosatx"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert" default:"true"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

var validate = validator.New()

// Load reads a YAML file, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse builds a validated Config from YAML bytes.
func Parse(b []byte) (*Config, error) {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDerived()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads .env (when present), then YAML, then environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	c.applyDerived()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := getenv("SERVER_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVER_PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := getenv("DEFAULT_TIMEOUT_SECONDS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("DEFAULT_TIMEOUT_SECONDS: %w", err)
		}
		c.Dispatcher.DefaultTimeoutSeconds = f
	}
	if v := getenv("BINANCE_API_KEY"); v != "" {
		c.Binance.APIKey = v
	}
	if v := getenv("BINANCE_API_SECRET"); v != "" {
		c.Binance.SecretKey = v
	}
	if v := getenv("COINGLASS_API_KEY"); v != "" {
		c.Coinglass.APIKey = v
	}
	if v := getenv("LIQUIDATION_SOURCE"); v != "" {
		c.Liquidations.Source = v
	}
	if v := getenv("SYMBOLS"); v != "" {
		c.Signal.Symbols = splitList(v)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	return nil
}

func (c *Config) applyDerived() {
	if len(c.Scoring.FactorWeights) == 0 {
		c.Scoring.FactorWeights = make(map[string]float64, len(DefaultFactorWeights))
		for k, v := range DefaultFactorWeights {
			c.Scoring.FactorWeights[k] = v
		}
	}
	if c.Scoring.SignalDeadline <= 0 {
		c.Scoring.SignalDeadline = c.longestFactorTimeout() + time.Second
	}
}

// longestFactorTimeout is the worst case of one parallel factor fetch.
// Overrides of the signal and system operations do not bound a fetch.
func (c *Config) longestFactorTimeout() time.Duration {
	longest := c.DefaultTimeout()
	for op, secs := range c.Dispatcher.TimeoutOverrides {
		if strings.HasPrefix(op, "signals.") || strings.HasPrefix(op, "system.") {
			continue
		}
		if d := seconds(secs); d > longest {
			longest = d
		}
	}
	return longest
}

// Validate checks structural constraints and scoring invariants.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Dispatcher.DefaultTimeoutSeconds <= 0 {
		return errors.New("dispatcher.default_timeout_seconds must be positive")
	}
	for op, secs := range c.Dispatcher.TimeoutOverrides {
		if secs <= 0 {
			return fmt.Errorf("dispatcher.timeout_overrides[%s] must be positive", op)
		}
	}

	s := c.Scoring
	if s.MinFactorCoverage <= 0 || s.MinFactorCoverage > 1 {
		return fmt.Errorf("scoring.min_factor_coverage must be in (0,1], got %v", s.MinFactorCoverage)
	}
	if s.ConfidenceWarnCoverage <= 0 || s.ConfidenceWarnCoverage > 1 {
		return fmt.Errorf("scoring.confidence_warn_coverage must be in (0,1], got %v", s.ConfidenceWarnCoverage)
	}
	if s.ShortThreshold < 0 || s.LongThreshold > 100 || s.ShortThreshold > s.LongThreshold {
		return fmt.Errorf("scoring thresholds must satisfy 0 <= short (%v) <= long (%v) <= 100", s.ShortThreshold, s.LongThreshold)
	}
	if s.HighDispersion <= 0 || s.MediumDispersion < s.HighDispersion {
		return fmt.Errorf("scoring dispersion bands must satisfy 0 < high (%v) <= medium (%v)", s.HighDispersion, s.MediumDispersion)
	}
	if s.ReasonMargin < 0 || s.ReasonMargin >= 50 {
		return fmt.Errorf("scoring.reason_margin must be in [0,50), got %v", s.ReasonMargin)
	}
	if err := validateWeights(s.FactorWeights); err != nil {
		return err
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return errors.New("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}

func validateWeights(w map[string]float64) error {
	if len(w) == 0 {
		return errors.New("scoring.factor_weights cannot be empty")
	}
	sum := 0.0
	for name, v := range w {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("scoring.factor_weights[%s] must be in [0,1], got %v", name, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("scoring.factor_weights must sum to 1.0, got %.6f", sum)
	}
	return nil
}

// DefaultTimeout returns the global per-operation timeout.
func (c *Config) DefaultTimeout() time.Duration {
	return seconds(c.Dispatcher.DefaultTimeoutSeconds)
}

// TimeoutOverrides converts configured overrides to durations.
func (c *Config) TimeoutOverrides() map[string]time.Duration {
	out := make(map[string]time.Duration, len(c.Dispatcher.TimeoutOverrides))
	for op, secs := range c.Dispatcher.TimeoutOverrides {
		out[op] = seconds(secs)
	}
	return out
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
