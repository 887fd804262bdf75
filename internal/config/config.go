// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Serial  SerialConfig  `mapstructure:"serial"`
	Link    LinkConfig    `mapstructure:"link"`
	Ramp    RampConfig    `mapstructure:"ramp"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SerialConfig represents serial transport configuration
type SerialConfig struct {
	BaudRate    int           `mapstructure:"baud_rate"`
	DataBits    int           `mapstructure:"data_bits"`
	StopBits    int           `mapstructure:"stop_bits"`
	Parity      string        `mapstructure:"parity"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// LinkConfig represents device identity and link behaviour
type LinkConfig struct {
	IdentityToken    string        `mapstructure:"identity_token"`
	ResetSettleDelay time.Duration `mapstructure:"reset_settle_delay"`
}

// RampConfig represents motion ramp parameters
type RampConfig struct {
	MaxLevel  int           `mapstructure:"max_level"`
	StepDelay time.Duration `mapstructure:"step_delay"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// Load loads configuration from an optional file and environment variables.
// A missing config file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("picolink")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/picolink")
	}

	// Environment variable support
	viper.SetEnvPrefix("PICOLINK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Serial defaults: 115200 8N1 with a short bounded read timeout
	viper.SetDefault("serial.baud_rate", 115200)
	viper.SetDefault("serial.data_bits", 8)
	viper.SetDefault("serial.stop_bits", 1)
	viper.SetDefault("serial.parity", "none")
	viper.SetDefault("serial.read_timeout", "100ms")

	// Link defaults
	viper.SetDefault("link.identity_token", "picoplayground")
	viper.SetDefault("link.reset_settle_delay", "1s")

	// Ramp defaults
	viper.SetDefault("ramp.max_level", 100)
	viper.SetDefault("ramp.step_delay", "50ms")

	// Logging defaults: stderr so device output on stdout stays clean
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("logging.output", "stderr")
	viper.SetDefault("logging.max_size", 10)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
	viper.SetDefault("logging.compress", true)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Serial.BaudRate <= 0 {
		return fmt.Errorf("serial.baud_rate must be positive")
	}
	if config.Serial.ReadTimeout <= 0 {
		return fmt.Errorf("serial.read_timeout must be positive")
	}

	switch config.Serial.Parity {
	case "none", "odd", "even":
	default:
		return fmt.Errorf("serial.parity must be one of: none, odd, even")
	}

	if config.Link.IdentityToken == "" {
		return fmt.Errorf("link.identity_token is required")
	}

	if config.Ramp.MaxLevel < 0 || config.Ramp.MaxLevel > 100 {
		return fmt.Errorf("ramp.max_level must be within 0..100")
	}
	if config.Ramp.StepDelay <= 0 {
		return fmt.Errorf("ramp.step_delay must be positive")
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	isValidLevel := false
	for _, level := range validLevels {
		if config.Logging.Level == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}
