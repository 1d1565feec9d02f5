package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	Thresholds ThresholdConfig `mapstructure:"thresholds" yaml:"thresholds"`
	Columns    ColumnConfig    `mapstructure:"columns" yaml:"columns"`
	Rules      RulesConfig     `mapstructure:"rules" yaml:"rules"`
	LLM        LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Batch      BatchConfig     `mapstructure:"batch" yaml:"batch"`
	Server     ServerConfig    `mapstructure:"server" yaml:"server"`
}

// ThresholdConfig holds the percentage cutoffs the decision engine compares
// against. All comparisons are inclusive (>=).
type ThresholdConfig struct {
	MissingWarning float64 `mapstructure:"missing_warning" yaml:"missing_warning"`
	MissingReject  float64 `mapstructure:"missing_reject" yaml:"missing_reject"`
	OutlierWarning float64 `mapstructure:"outlier_warning" yaml:"outlier_warning"`
}

// ColumnConfig names the columns that get special treatment: critical columns
// escalate missing-data severity one tier, no-negative columns are the only
// ones checked for negative values.
type ColumnConfig struct {
	Critical   []string `mapstructure:"critical" yaml:"critical"`
	NoNegative []string `mapstructure:"no_negative" yaml:"no_negative"`
}

type RulesConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

type LLMConfig struct {
	Host           string `mapstructure:"host" yaml:"host"`
	Model          string `mapstructure:"model" yaml:"model"`
	EmbeddingModel string `mapstructure:"embedding_model" yaml:"embedding_model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries" yaml:"max_retries"`
}

type BatchConfig struct {
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
	OutputDir   string `mapstructure:"output_dir" yaml:"output_dir"`
}

type ServerConfig struct {
	Addr        string `mapstructure:"addr" yaml:"addr"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

func Load(configPath string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(".dataquality")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}

func DefaultConfig() *Config {
	return &Config{
		Thresholds: ThresholdConfig{
			MissingWarning: 20.0,
			MissingReject:  40.0,
			OutlierWarning: 5.0,
		},
		Columns: ColumnConfig{
			Critical: []string{
				"user_id", "age", "gender", "country", "income_level",
				"weekly_purchases", "monthly_spend", "average_order_value",
				"last_purchase_date",
			},
			NoNegative: []string{
				"age", "weekly_purchases", "monthly_spend", "average_order_value",
				"household_size", "referral_count", "impulse_purchases_per_month",
				"hobby_count", "daily_session_time_minutes", "product_views_per_day",
				"ad_views_per_day", "ad_clicks_per_day", "wishlist_items_count",
				"cart_items_average", "checkout_abandonments_per_month",
				"account_age_months",
			},
		},
		Rules: RulesConfig{
			Dir: "rules",
		},
		LLM: LLMConfig{
			Host:           "http://localhost:11434",
			Model:          "llama3.1",
			EmbeddingModel: "nomic-embed-text",
			TimeoutSeconds: 120,
			MaxRetries:     3,
		},
		Batch: BatchConfig{
			Concurrency: 4,
			OutputDir:   "reports/batch",
		},
		Server: ServerConfig{
			Addr:        ":8080",
			MaxUploadMB: 50,
		},
	}
}

func (c *Config) Validate() error {
	if err := c.validateThresholds(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	return c.validateServer()
}

func (c *Config) validateThresholds() error {
	if c.Thresholds.MissingWarning < 0 || c.Thresholds.MissingWarning > 100 {
		return fmt.Errorf("thresholds.missing_warning must be between 0 and 100")
	}
	if c.Thresholds.MissingReject < 0 || c.Thresholds.MissingReject > 100 {
		return fmt.Errorf("thresholds.missing_reject must be between 0 and 100")
	}
	if c.Thresholds.MissingReject < c.Thresholds.MissingWarning {
		return fmt.Errorf("thresholds.missing_reject must not be below thresholds.missing_warning")
	}
	if c.Thresholds.OutlierWarning < 0 || c.Thresholds.OutlierWarning > 100 {
		return fmt.Errorf("thresholds.outlier_warning must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.Host == "" {
		return fmt.Errorf("llm.host must not be empty")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return fmt.Errorf("llm.timeout_seconds must be positive")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must be non-negative")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch.concurrency must be positive")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}
	return nil
}

func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("thresholds", c.Thresholds)
	v.Set("columns", c.Columns)
	v.Set("rules", c.Rules)
	v.Set("llm", c.LLM)
	v.Set("batch", c.Batch)
	v.Set("server", c.Server)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
