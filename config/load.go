package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"etc-arb-bot/infrastructure/logger"
	"etc-arb-bot/strategy"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env         string              `yaml:"env"` // test or production
	Exchange    ExchangeConfig      `yaml:"exchange"`
	Log         logger.Config       `yaml:"log"`
	MetricsAddr string              `yaml:"metricsAddr"`
	Estimator   EstimatorConfig     `yaml:"estimator"`
	Bond        strategy.BondConfig `yaml:"bond"`
	ADR         strategy.ADRConfig  `yaml:"adr"`
	ETF         strategy.ETFConfig  `yaml:"etf"`
}

type ExchangeConfig struct {
	Host           string  `yaml:"host"`
	Port           int     `yaml:"port"`
	Team           string  `yaml:"team"`
	DialTimeoutMs  int     `yaml:"dialTimeoutMs"`
	RetryBackoffMs int     `yaml:"retryBackoffMs"`
	ActionRate     float64 `yaml:"actionRate"`  // 出站指令每秒令牌数
	ActionBurst    int     `yaml:"actionBurst"` // 出站指令最大突发
}

type EstimatorConfig struct {
	WindowSize int `yaml:"windowSize"` // 每个符号的滚动窗口容量
}

// Defaults 返回可直接运行于测试交易所的默认配置。
func Defaults() AppConfig {
	return AppConfig{
		Env: "test",
		Exchange: ExchangeConfig{
			Host:           "test-exch-",
			Port:           25000,
			Team:           "TEAMSTOCKERS",
			DialTimeoutMs:  5000,
			RetryBackoffMs: 1000,
			ActionRate:     10,
			ActionBurst:    20,
		},
		Log:         logger.DefaultConfig(),
		MetricsAddr: ":9100",
		Estimator:   EstimatorConfig{WindowSize: 10},
		Bond:        strategy.DefaultBondConfig(),
		ADR:         strategy.DefaultADRConfig(),
		ETF:         strategy.DefaultETFConfig(),
	}
}

// Load reads YAML config from path over Defaults and applies basic validation.
func Load(path string) (AppConfig, error) {
	cfg := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides endpoint fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("ETC_TEAM_NAME"); v != "" {
		cfg.Exchange.Team = v
	}
	if v := os.Getenv("ETC_EXCHANGE_ADDR"); v != "" {
		host, portRaw, err := net.SplitHostPort(v)
		if err != nil {
			return cfg, fmt.Errorf("parse ETC_EXCHANGE_ADDR: %w", err)
		}
		port, err := strconv.Atoi(portRaw)
		if err != nil {
			return cfg, fmt.Errorf("parse ETC_EXCHANGE_ADDR port: %w", err)
		}
		cfg.Exchange.Host = host
		cfg.Exchange.Port = port
	}
	return cfg, Validate(cfg)
}

// Validate ensures required fields are present and sane.
func Validate(cfg AppConfig) error {
	if cfg.Env != "test" && cfg.Env != "production" {
		return fmt.Errorf("env must be test or production, got %q", cfg.Env)
	}
	if cfg.Exchange.Host == "" {
		return fmt.Errorf("exchange.host is required")
	}
	if cfg.Exchange.Port <= 0 {
		return fmt.Errorf("exchange.port must be > 0")
	}
	if cfg.Exchange.Team == "" {
		return fmt.Errorf("exchange.team is required (or ETC_TEAM_NAME)")
	}
	if cfg.Exchange.ActionRate <= 0 {
		return fmt.Errorf("exchange.actionRate must be > 0")
	}
	if cfg.Exchange.ActionBurst <= 0 {
		return fmt.Errorf("exchange.actionBurst must be > 0")
	}
	if cfg.Estimator.WindowSize <= 0 {
		return fmt.Errorf("estimator.windowSize must be > 0")
	}
	if cfg.Bond.Size <= 0 {
		return fmt.Errorf("bond.size must be > 0")
	}
	if cfg.Bond.Threshold < 0 {
		return fmt.Errorf("bond.threshold must be >= 0")
	}
	if cfg.ADR.QuoteSize <= 0 || cfg.ADR.QuoteOffset <= 0 {
		return fmt.Errorf("adr.quoteSize and adr.quoteOffset must be > 0")
	}
	if cfg.ADR.Hysteresis < 0 {
		return fmt.Errorf("adr.hysteresis must be >= 0")
	}
	if cfg.ADR.ConvertQty <= 0 {
		return fmt.Errorf("adr.convertQty must be > 0")
	}
	if cfg.ADR.PriceSource != strategy.PriceSourceTrade && cfg.ADR.PriceSource != strategy.PriceSourceBook {
		return fmt.Errorf("adr.priceSource must be trade or book, got %q", cfg.ADR.PriceSource)
	}
	if cfg.ADR.BookDepth <= 0 {
		return fmt.Errorf("adr.bookDepth must be > 0")
	}
	if cfg.ETF.Scale <= 0 {
		return fmt.Errorf("etf.scale must be > 0")
	}
	if cfg.ETF.QuoteSize <= 0 || cfg.ETF.QuoteOffset <= 0 {
		return fmt.Errorf("etf.quoteSize and etf.quoteOffset must be > 0")
	}
	if cfg.ETF.Hysteresis < 0 {
		return fmt.Errorf("etf.hysteresis must be >= 0")
	}
	if cfg.ETF.ConvertQty <= 0 {
		return fmt.Errorf("etf.convertQty must be > 0")
	}
	return nil
}
