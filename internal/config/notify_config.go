package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type SMTPConfig struct {
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	From             string `mapstructure:"from"`
	DefaultRecipient string `mapstructure:"default_recipient"`
}

// Enabled reports whether email delivery is configured at all.
func (config *SMTPConfig) Enabled() bool {
	return config.Host != ""
}

func (config *SMTPConfig) validate() error {
	if !config.Enabled() {
		return nil
	}
	if config.From == "" {
		return fmt.Errorf("missing variable: smtp from")
	}
	if config.Port <= 0 {
		return fmt.Errorf("invalid smtp port %d", config.Port)
	}
	return nil
}

func (config *SMTPConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"smtp.host":              "SMTP_HOST",
		"smtp.port":              "SMTP_PORT",
		"smtp.username":          "SMTP_USERNAME",
		"smtp.password":          "SMTP_PASSWORD",
		"smtp.from":              "SMTP_FROM",
		"smtp.default_recipient": "NOTIFICATION_EMAIL",
	})
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

func (config *TelegramConfig) Enabled() bool {
	return config.Token != ""
}

func (config *TelegramConfig) validate() error {
	return nil
}

func (config *TelegramConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"telegram.token": "TG_TOKEN",
	})
}
