package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	DB        DBConfig        `mapstructure:"db"`
	Scan      ScanConfig      `mapstructure:"scan"`
	Dedup     DedupConfig     `mapstructure:"dedup"`
	Retention RetentionConfig `mapstructure:"retention"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	AI        AIConfig        `mapstructure:"ai"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type section interface {
	validate() error
	bindEnvironmentVariables(v *viper.Viper) error
}

const defaultConfigFile = "./configs/config.yaml"

func Get() *Config {
	config, err := Load()
	if err != nil {
		log.Fatal(err)
	}
	return config
}

// Load reads the yaml config (CONFIG_PATH overrides the location) and applies
// environment overrides, including the ones from a local .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	file := defaultConfigFile
	if value, ok := os.LookupEnv("CONFIG_PATH"); ok && value != "" {
		file = value
	}

	return loadConfig(file)
}

func loadConfig(file string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(file)
	setDefaults(v)

	config := Config{}
	if err := bindEnvironmentVariables(v, config.sections()); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", file, err)
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (config *Config) sections() map[string]section {
	return map[string]section{
		"LoggerConfig":    &config.Logger,
		"DBConfig":        &config.DB,
		"ScanConfig":      &config.Scan,
		"DedupConfig":     &config.Dedup,
		"RetentionConfig": &config.Retention,
		"ScraperConfig":   &config.Scraper,
		"SMTPConfig":      &config.SMTP,
		"TelegramConfig":  &config.Telegram,
		"AIConfig":        &config.AI,
		"RedisConfig":     &config.Redis,
		"MetricsConfig":   &config.Metrics,
	}
}

func bindEnvironmentVariables(v *viper.Viper, sections map[string]section) error {
	var errs []error

	for name, s := range sections {
		if err := s.bindEnvironmentVariables(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func (config *Config) validate() error {
	var errs []error

	for name, s := range config.sections() {
		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func bindAll(v *viper.Viper, bindings map[string]string) error {
	var errs []error
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
