package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode       string `yaml:"mode"`        // DRY_RUN or LIVE
	DataSource string `yaml:"data_source"` // SIM, KITE, or WS
	Exchange   string `yaml:"exchange"`

	Feed struct {
		WSURL          string  `yaml:"ws_url"`
		SimIntervalMs  int     `yaml:"sim_interval_ms"`
		SimBasePrice   float64 `yaml:"sim_base_price"`
		QueueSize      int     `yaml:"queue_size"`
		Backpressure   string  `yaml:"backpressure"` // DROP_OLDEST or BLOCK
		BlockTimeoutMs int     `yaml:"block_timeout_ms"`
		HistorySize    int     `yaml:"history_size"`
	} `yaml:"feed"`

	Risk struct {
		MaxPositionSize float64 `yaml:"max_position_size"`
		MaxDailyLoss    float64 `yaml:"max_daily_loss"`
		MaxOrdersPerDay int     `yaml:"max_orders_per_day"`
		RiskPercentage  float64 `yaml:"risk_percentage"`
		AccountValue    float64 `yaml:"account_value"`
		StopFraction    float64 `yaml:"stop_fraction"`
	} `yaml:"risk"`

	Strategies struct {
		Crossover struct {
			Enabled bool   `yaml:"enabled"`
			Symbol  string `yaml:"symbol"`
			Qty     int    `yaml:"qty"`
			Fast    int    `yaml:"fast"`
			Slow    int    `yaml:"slow"`
		} `yaml:"crossover"`
		MeanReversion struct {
			Enabled bool    `yaml:"enabled"`
			Symbol  string  `yaml:"symbol"`
			Qty     int     `yaml:"qty"`
			Period  int     `yaml:"period"`
			Lower   float64 `yaml:"lower"`
			Upper   float64 `yaml:"upper"`
		} `yaml:"mean_reversion"`
		Momentum struct {
			Enabled     bool    `yaml:"enabled"`
			Symbol      string  `yaml:"symbol"`
			Qty         int     `yaml:"qty"`
			Lookback    int     `yaml:"lookback"`
			StopLossPct float64 `yaml:"stop_loss_pct"`
			ProfitPct   float64 `yaml:"profit_pct"`
		} `yaml:"momentum"`
	} `yaml:"strategies"`

	Database struct {
		URL string `yaml:"url"` // empty selects the in-memory store
	} `yaml:"database"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`

	Telegram struct {
		Enabled bool  `yaml:"enabled"`
		ChatID  int64 `yaml:"chat_id"`
	} `yaml:"telegram"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.DataSource != "SIM" && c.DataSource != "KITE" && c.DataSource != "WS" {
		return fmt.Errorf("invalid data_source '%s': must be 'SIM', 'KITE', or 'WS'", c.DataSource)
	}
	if c.Risk.MaxPositionSize <= 0 {
		return fmt.Errorf("risk.max_position_size must be positive, got %.2f", c.Risk.MaxPositionSize)
	}
	if c.Risk.RiskPercentage <= 0 || c.Risk.RiskPercentage > 100 {
		return fmt.Errorf("risk.risk_percentage must be between 0-100, got %.2f", c.Risk.RiskPercentage)
	}
	if bp := c.Feed.Backpressure; bp != "" && bp != "DROP_OLDEST" && bp != "BLOCK" {
		return fmt.Errorf("feed.backpressure must be 'DROP_OLDEST' or 'BLOCK', got '%s'", bp)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.Exchange == "" {
		c.Exchange = "NSE"
	}
	if c.DataSource == "" {
		c.DataSource = "SIM"
	}
	if c.Risk.MaxDailyLoss == 0 {
		c.Risk.MaxDailyLoss = 10000
	}
	if c.Risk.MaxOrdersPerDay == 0 {
		c.Risk.MaxOrdersPerDay = 100
	}
	if c.Risk.AccountValue == 0 {
		c.Risk.AccountValue = 1000000
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
