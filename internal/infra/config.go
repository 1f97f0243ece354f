package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fxwallet/internal/domain"
	"fxwallet/internal/engine"
	"fxwallet/internal/execution"
	"fxwallet/internal/rates"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FXWALLET_"

// CurrencyConfig is one registered currency.
type CurrencyConfig struct {
	Code      string  `yaml:"code"`
	Name      string  `yaml:"name"`
	Symbol    string  `yaml:"symbol"`
	Rate      float64 `yaml:"rate"`
	Change24h float64 `yaml:"change_24h"`
	Color     string  `yaml:"color"`
}

// Config holds the whole application configuration.
// LoadConfig applies environment overrides after the file is parsed.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Engine struct {
		Base            string             `yaml:"base"`
		SeedBalance     float64            `yaml:"seed_balance"`
		RefreshInterval time.Duration      `yaml:"refresh_interval"`
		RefreshLatency  time.Duration      `yaml:"refresh_latency"`
		RateAmplitude   float64            `yaml:"rate_amplitude"`
		ChangeAmplitude float64            `yaml:"change_amplitude"`
		Fees            map[string]float64 `yaml:"fees"`
	} `yaml:"engine"`

	Currencies []CurrencyConfig `yaml:"currencies"`
	Favorites  []string         `yaml:"favorites"`

	Server struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		TradeRateLimit float64  `yaml:"trade_rate_limit"` // Mutating requests per second, 0 disables
		TradeBurst     int      `yaml:"trade_burst"`
	} `yaml:"server"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig selects the log level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DefaultConfig returns the built-in configuration used when no file exists.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = AppName
	cfg.App.Version = "dev"

	cfg.Engine.Base = "INR"
	cfg.Engine.SeedBalance = 100000
	cfg.Engine.RefreshInterval = engine.DefaultRefreshInterval
	cfg.Engine.RefreshLatency = 800 * time.Millisecond
	cfg.Engine.RateAmplitude = rates.DefaultPerturbConfig().RateAmplitude
	cfg.Engine.ChangeAmplitude = rates.DefaultPerturbConfig().ChangeAmplitude
	cfg.Engine.Fees = map[string]float64{
		string(domain.TradeBuy):      execution.DefaultFeeRate,
		string(domain.TradeSell):     execution.DefaultFeeRate,
		string(domain.TradeExchange): execution.DefaultFeeRate,
	}

	cfg.Currencies = []CurrencyConfig{
		{Code: "INR", Name: "Indian Rupee", Symbol: "₹", Rate: 1, Color: "#FF9933"},
		{Code: "USD", Name: "US Dollar", Symbol: "$", Rate: 0.012, Change24h: 0.12, Color: "#2E7D32"},
		{Code: "EUR", Name: "Euro", Symbol: "€", Rate: 0.011, Change24h: -0.08, Color: "#1565C0"},
		{Code: "GBP", Name: "British Pound", Symbol: "£", Rate: 0.0095, Change24h: 0.05, Color: "#6A1B9A"},
		{Code: "JPY", Name: "Japanese Yen", Symbol: "¥", Rate: 1.8, Change24h: -0.21, Color: "#C62828"},
		{Code: "AUD", Name: "Australian Dollar", Symbol: "A$", Rate: 0.018, Change24h: 0.31, Color: "#00838F"},
		{Code: "CAD", Name: "Canadian Dollar", Symbol: "C$", Rate: 0.016, Change24h: -0.04, Color: "#D84315"},
		{Code: "CHF", Name: "Swiss Franc", Symbol: "Fr", Rate: 0.011, Change24h: 0.02, Color: "#AD1457"},
		{Code: "CNY", Name: "Chinese Yuan", Symbol: "¥", Rate: 0.087, Change24h: -0.15, Color: "#F9A825"},
		{Code: "SGD", Name: "Singapore Dollar", Symbol: "S$", Rate: 0.016, Change24h: 0.09, Color: "#4E342E"},
	}
	cfg.Favorites = []string{"USD", "EUR"}

	cfg.Server.Addr = ":8080"
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Server.TradeRateLimit = 10
	cfg.Server.TradeBurst = 5

	cfg.Logging = LoggingConfig{Level: "info", Format: "text"}
	return &cfg
}

// LoadConfig reads path over the defaults. A missing file is not an error:
// the defaults are used as is. A .env file in the working directory is loaded
// first so its values reach the environment overrides.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity. Currency and fee details are
// checked again by the engine when it is built.
func (c *Config) Validate() error {
	if c.Engine.Base == "" {
		return fmt.Errorf("engine.base is required")
	}
	if len(c.Currencies) == 0 {
		return fmt.Errorf("at least one currency is required")
	}
	for kind := range c.Engine.Fees {
		if _, err := domain.ParseTradeKind(kind); err != nil {
			return fmt.Errorf("engine.fees: %w", err)
		}
	}
	if c.Engine.RefreshInterval < time.Second {
		return fmt.Errorf("engine.refresh_interval must be at least 1s, got %s", c.Engine.RefreshInterval)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.TradeRateLimit < 0 {
		return fmt.Errorf("server.trade_rate_limit must not be negative")
	}
	if c.Server.TradeRateLimit > 0 && c.Server.TradeBurst < 1 {
		return fmt.Errorf("server.trade_burst must be at least 1 when rate limiting is enabled")
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// ToEngineConfig converts the file form into the engine's config.
func (c *Config) ToEngineConfig() engine.Config {
	currencies := make([]domain.Currency, len(c.Currencies))
	for i, cc := range c.Currencies {
		currencies[i] = domain.Currency{
			Code:      strings.ToUpper(cc.Code),
			Name:      cc.Name,
			Symbol:    cc.Symbol,
			Rate:      cc.Rate,
			Change24h: cc.Change24h,
			Color:     cc.Color,
		}
	}
	fees := make(execution.FeeSchedule, len(c.Engine.Fees))
	for kind, rate := range c.Engine.Fees {
		fees[domain.TradeKind(kind)] = rate
	}
	favorites := make([]string, len(c.Favorites))
	for i, code := range c.Favorites {
		favorites[i] = strings.ToUpper(code)
	}

	return engine.Config{
		Base:            strings.ToUpper(c.Engine.Base),
		Currencies:      currencies,
		SeedBalance:     c.Engine.SeedBalance,
		Fees:            fees,
		Favorites:       favorites,
		RefreshInterval: c.Engine.RefreshInterval,
		RefreshLatency:  c.Engine.RefreshLatency,
		Perturb: &rates.PerturbConfig{
			RateAmplitude:   c.Engine.RateAmplitude,
			ChangeAmplitude: c.Engine.ChangeAmplitude,
		},
	}
}

// overrideWithEnv applies FXWALLET_* variables. Environment wins over the file.
func overrideWithEnv(cfg *Config) error {
	if v, ok := lookupEnv("BASE"); ok {
		cfg.Engine.Base = v
	}
	if v, ok := lookupEnv("SEED_BALANCE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sSEED_BALANCE: %w", EnvPrefix, err)
		}
		cfg.Engine.SeedBalance = f
	}
	if v, ok := lookupEnv("REFRESH_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sREFRESH_INTERVAL: %w", EnvPrefix, err)
		}
		cfg.Engine.RefreshInterval = d
	}
	if v, ok := lookupEnv("REFRESH_LATENCY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sREFRESH_LATENCY: %w", EnvPrefix, err)
		}
		cfg.Engine.RefreshLatency = d
	}
	if v, ok := lookupEnv("ADDR"); ok {
		cfg.Server.Addr = v
	}
	if v, ok := lookupEnv("ALLOWED_ORIGINS"); ok {
		cfg.Server.AllowedOrigins = strings.Split(v, ",")
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		cfg.Logging.Level = v
	}
	if v, ok := lookupEnv("LOG_FORMAT"); ok {
		cfg.Logging.Format = v
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}
