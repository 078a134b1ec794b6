package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"CoinPulse/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required,oneof=development staging production"`

	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
		Digest struct {
			Enabled  bool          `yaml:"enabled"`
			Topic    string        `yaml:"topic" default:"coinpulse.logs"`
			Interval time.Duration `yaml:"interval" default:"30s"`
			MaxItems int           `yaml:"max_items" default:"100"`
		} `yaml:"digest"`
	} `yaml:"log"`

	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"5s"`
		RateLimit       struct {
			RPS   float64 `yaml:"rps" default:"1"`
			Burst int     `yaml:"burst" default:"5"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`

	Metrics struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"metrics"`

	Coins []string `yaml:"coins" validate:"dive,required"`

	Market struct {
		BaseURL        string        `yaml:"base_url" default:"https://api.coingecko.com/api/v3" validate:"url"`
		APIKey         string        `yaml:"api_key"`
		Timeout        time.Duration `yaml:"timeout" default:"10s"`
		RequestsPerSec float64       `yaml:"requests_per_sec" default:"0.5" validate:"gt=0"`
		RetryInitial   time.Duration `yaml:"retry_initial" default:"500ms"`
		MaxElapsed     time.Duration `yaml:"max_elapsed" default:"30s"`
		CacheTTL       time.Duration `yaml:"cache_ttl" default:"5m"`
	} `yaml:"market"`

	Events struct {
		BaseURL        string        `yaml:"base_url" default:"https://api.gdeltproject.org/api/v2/doc/doc" validate:"url"`
		Countries      []string      `yaml:"countries"`
		Keyword        string        `yaml:"keyword"`
		MaxRecords     int           `yaml:"max_records" default:"250" validate:"gte=1,lte=250"`
		Timeout        time.Duration `yaml:"timeout" default:"30s"`
		RequestsPerSec float64       `yaml:"requests_per_sec" default:"1" validate:"gt=0"`
		ValidateLinks  bool          `yaml:"validate_links"`
		LinkTimeout    time.Duration `yaml:"link_timeout" default:"5s"`
		LinkWorkers    int           `yaml:"link_workers" default:"8"`
	} `yaml:"events"`

	Pipeline struct {
		Eps            float64       `yaml:"eps" default:"0.1" validate:"gt=0"`
		MinPts         int           `yaml:"min_pts" default:"3" validate:"gte=1"`
		Trees          int           `yaml:"trees" default:"100" validate:"gte=1"`
		MaxSamples     int           `yaml:"max_samples" default:"256" validate:"gte=1"`
		Contamination  float64       `yaml:"contamination" validate:"gte=0,lte=0.5"`
		Seed           int64         `yaml:"seed" default:"42"`
		QueryEvents    bool          `yaml:"query_events" default:"true"`
		QueryPause     time.Duration `yaml:"query_pause" default:"1s"`
		QueryPolicy    string        `yaml:"query_policy" default:"union" validate:"oneof=union intersection dbscan isolation_forest"`
		ParallelDetect bool          `yaml:"parallel_detect"`
	} `yaml:"pipeline"`

	Cache struct {
		ReportTTL time.Duration `yaml:"report_ttl" default:"5m"`
		LocalTTL  time.Duration `yaml:"local_ttl" default:"30s"`
	} `yaml:"cache"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"coinpulse:"`
	} `yaml:"redis"`

	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"coinpulse"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`

	Kafka struct {
		Enabled       bool          `yaml:"enabled"`
		Brokers       []string      `yaml:"brokers"`
		ReportTopic   string        `yaml:"report_topic" default:"coinpulse.reports"`
		SnapshotTopic string        `yaml:"snapshot_topic" default:"coinpulse.snapshots"`
		RequiredAcks  int           `yaml:"required_acks" default:"-1"`
		Compression   string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		MaxAttempts   int           `yaml:"max_attempts" default:"3"`
		WriteTimeout  time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`
}

var validate = validator.New()

// Default returns a config populated only from defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	c.fill()
	return &c, nil
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.fill()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env (if present), then the YAML file, then applies
// environment overrides. An empty path uses defaults only.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var (
		c   *Config
		err error
	)
	if path == "" {
		c, err = Default()
	} else {
		c, err = Load(path)
	}
	if err != nil {
		return nil, err
	}

	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("COINS"); v != "" {
		c.Coins = util.SplitList(v)
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		c.Market.APIKey = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
		c.Kafka.Enabled = true
	}
}

// fill sets slice defaults, which struct tags cannot express.
func (c *Config) fill() {
	if len(c.Coins) == 0 {
		c.Coins = []string{"bitcoin", "ethereum"}
	}
	if len(c.Events.Countries) == 0 {
		c.Events.Countries = []string{"UK", "US"}
	}
}

// Validate checks tag constraints and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Log.Digest.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("log.digest requires kafka")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}
