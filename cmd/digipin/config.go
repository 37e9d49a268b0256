package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// CLIConfig is read from digipin.yaml (optional), DIGIPIN_* env and flags.
type CLIConfig struct {
	Format   string `mapstructure:"format"`
	LogLevel string `mapstructure:"log_level"`
	MaxCells int    `mapstructure:"max_cells"`
	Level    int    `mapstructure:"level"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("digipin")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DIGIPIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("format", "text")
	v.SetDefault("log_level", "warn")
	v.SetDefault("max_cells", 4096)
	v.SetDefault("level", 4)
	return v
}

func loadConfig(v *viper.Viper, file string) (CLIConfig, error) {
	if file != "" {
		v.SetConfigFile(file)
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return CLIConfig{}, fmt.Errorf("config: read file: %w", err)
		}
	}
	var cfg CLIConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	switch cfg.Format {
	case "text", "json":
	default:
		return CLIConfig{}, invalidf("unknown output format %q (text or json)", cfg.Format)
	}
	return cfg, nil
}
