package config

import (
	"bytes"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"cryptoquote/internal/aggregate"
)

type Server struct {
	Port            string        `yaml:"port"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// Secrets are named after the keys operators already use for them.
type Secrets struct {
	CoinMarketCapAPIKey string `yaml:"CoinMarketCapApiKey"`
	ExchangeRatesAPIKey string `yaml:"ExchangeRatesApiKey"`
}

type Endpoint struct {
	BaseURL string `yaml:"base_url"`
}

type Upstream struct {
	Timeout         time.Duration `yaml:"timeout"`
	UserAgent       string        `yaml:"user_agent"`
	ConcurrentFetch bool          `yaml:"concurrent_fetch"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type Config struct {
	Server        Server   `yaml:"server"`
	Secrets       Secrets  `yaml:"secrets"`
	CoinMarketCap Endpoint `yaml:"coinmarketcap"`
	ExchangeRates Endpoint `yaml:"exchangerates"`
	Upstream      Upstream `yaml:"upstream"`
	Log           Log      `yaml:"log"`
	Metrics       Metrics  `yaml:"metrics"`
}

func Default() Config {
	return Config{
		Server: Server{
			Port:            "8080",
			RequestTimeout:  10 * time.Second,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		CoinMarketCap: Endpoint{BaseURL: "https://pro-api.coinmarketcap.com"},
		ExchangeRates: Endpoint{BaseURL: "https://api.exchangeratesapi.io"},
		Upstream: Upstream{
			Timeout:         8 * time.Second,
			UserAgent:       "cryptoquote/1.0",
			ConcurrentFetch: true,
		},
		Log:     Log{Level: "info", Format: "json"},
		Metrics: Metrics{Enabled: true, Path: "/metrics"},
	}
}

// Load reads YAML config from path. If path is empty it falls back to
// config.yaml when present, otherwise to defaults. Environment variables
// override select fields, the API keys in particular.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "read config")
		}
		if err := decode(b, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decode(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return errors.Wrap(err, "REQUEST_TIMEOUT")
		}
		cfg.Server.RequestTimeout = d
	}
	if v := os.Getenv("UPSTREAM_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return errors.Wrap(err, "UPSTREAM_TIMEOUT")
		}
		cfg.Upstream.Timeout = d
	}
	if v := firstEnv("COINMARKETCAP_API_KEY", "CoinMarketCapApiKey"); v != "" {
		cfg.Secrets.CoinMarketCapAPIKey = v
	}
	if v := firstEnv("EXCHANGE_RATES_API_KEY", "ExchangeRatesApiKey"); v != "" {
		cfg.Secrets.ExchangeRatesAPIKey = v
	}
	if v := os.Getenv("COINMARKETCAP_BASE_URL"); v != "" {
		cfg.CoinMarketCap.BaseURL = v
	}
	if v := os.Getenv("EXCHANGE_RATES_BASE_URL"); v != "" {
		cfg.ExchangeRates.BaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "METRICS_ENABLED")
		}
		cfg.Metrics.Enabled = b
	}
	if v := os.Getenv("CONCURRENT_FETCH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "CONCURRENT_FETCH")
		}
		cfg.Upstream.ConcurrentFetch = b
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitCSV(v)
	}
	return nil
}

// Validate rejects settings the service cannot start with. Missing API keys
// are not an error here; they are reported per request.
func (c Config) Validate() error {
	if _, err := strconv.ParseUint(c.Server.Port, 10, 16); err != nil {
		return errors.Errorf("server.port %q is not a valid port", c.Server.Port)
	}
	for name, d := range map[string]time.Duration{
		"server.request_timeout":  c.Server.RequestTimeout,
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.idle_timeout":     c.Server.IdleTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"upstream.timeout":        c.Upstream.Timeout,
	} {
		if d <= 0 {
			return errors.Errorf("%s must be positive, got %s", name, d)
		}
	}
	for name, raw := range map[string]string{
		"coinmarketcap.base_url": c.CoinMarketCap.BaseURL,
		"exchangerates.base_url": c.ExchangeRates.BaseURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.Errorf("%s %q must be an absolute URL", name, raw)
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		return errors.Errorf("log.format %q must be json or console", c.Log.Format)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.Errorf("metrics.path %q must start with /", c.Metrics.Path)
	}
	return nil
}

// Credentials returns the API keys in the form the aggregator takes them.
func (c Config) Credentials() aggregate.Credentials {
	return aggregate.Credentials{
		CoinMarketCapAPIKey: c.Secrets.CoinMarketCapAPIKey,
		ExchangeRatesAPIKey: c.Secrets.ExchangeRatesAPIKey,
	}
}

// parseDuration accepts Go durations ("1500ms") and bare seconds ("10").
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
