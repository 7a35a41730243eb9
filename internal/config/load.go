package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadConfigWithName loads configuration using the specified name, auto-detecting the file type
// This is useful when the configuration file extension is unknown or variable
func LoadConfigWithName(configName string) (*Config, error) {
	return loadConfig(configName, "")
}

// LoadConfigWithNameAndType loads configuration with explicit name and type specification
func LoadConfigWithNameAndType(configName, configType string) (*Config, error) {
	return loadConfig(configName, configType)
}

// LoadConfig loads configuration from a .env file using the provided base name
// This is the preferred method for loading environment-specific configurations
func LoadConfig(configName string) (*Config, error) {
	configFileName := fmt.Sprintf("%s.env", configName)
	return loadConfig(configFileName, "env")
}

// loadConfig handles configuration loading from files and environment variables.
// It implements a layered approach to configuration:
// 1. Load defaults
// 2. Override with config file values (if found)
// 3. Override with environment variables
// 4. Validate the final configuration
func loadConfig(configName, configType string) (*Config, error) {
	// Initialize viper with default values
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(configName)
	if configType != "" {
		v.SetConfigType(configType)
	}

	// Add config paths in order of priority
	v.AddConfigPath("./configs") // First check in configs directory
	v.AddConfigPath(".")         // Then check in root directory

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Printf("INFO: No config file '%s' found, relying on environment variables and defaults.\n", configName)
		} else {
			fmt.Printf("WARNING: Error reading config file (%s): %v\n", v.ConfigFileUsed(), err)
		}
	} else {
		fmt.Printf("INFO: Config loaded from file: %s\n", v.ConfigFileUsed())
	}

	v.AutomaticEnv() // Automatically read matching environment variables

	// Build the config struct
	config := &Config{
		Application: ApplicationConfig{
			Env:  v.GetString("APP_ENV"),
			Name: v.GetString("APP_NAME"),
		},
		Logging: LoggingConfig{
			Level:   v.GetString("LOG_LEVEL"),
			Enabled: v.GetBool("LOGGING_ENABLED"),
		},
		Server: ServerConfig{
			Port:            v.GetInt("SERVER_PORT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:     v.GetDuration("SERVER_IDLE_TIMEOUT"),
		},
		EventBus: EventBusConfig{
			QueueSize:       v.GetInt("BUS_QUEUE_SIZE"),
			HandlerPoolSize: v.GetInt("BUS_HANDLER_POOL_SIZE"),
			ShutdownGrace:   v.GetDuration("BUS_SHUTDOWN_GRACE"),
			RecordingCap:    v.GetInt("BUS_RECORDING_CAP"),
		},
		Ledger: LedgerConfig{
			Currency:       v.GetString("LEDGER_CURRENCY"),
			InitialCapital: v.GetInt64("LEDGER_INITIAL_CAPITAL"),
		},
	}

	// Validate the configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults establishes default values for all configuration parameters
func setDefaults(v *viper.Viper) {
	// Application defaults
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "finledger")

	// Logging defaults
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOGGING_ENABLED", true)

	// Server defaults
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("SERVER_READ_TIMEOUT", 5*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 10*time.Second)
	v.SetDefault("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Event bus defaults
	v.SetDefault("BUS_QUEUE_SIZE", 1024)
	v.SetDefault("BUS_HANDLER_POOL_SIZE", 32)
	v.SetDefault("BUS_SHUTDOWN_GRACE", 5*time.Second)
	v.SetDefault("BUS_RECORDING_CAP", 5000)

	// Ledger defaults
	v.SetDefault("LEDGER_CURRENCY", "USD")
	v.SetDefault("LEDGER_INITIAL_CAPITAL", int64(0))
}
