package config

import (
	"fmt"

	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

const (
	configName = "formbase"
	configType = "yaml"

	// keyringService is the service name under which the database password is
	// stored in the OS keyring when it is kept out of the config file.
	keyringService = "formbase"
)

// Load reads the configuration from the given directory (or the working
// directory when empty). Missing files yield the defaults. When the database
// password is absent from the file, the OS keyring is consulted with the
// database username as the account key.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("FORMBASE")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("auth.token_ttl", "1h")
	v.SetDefault("logging.level", "info")

	cfg := &Config{}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Database.Password == "" && cfg.Database.Username != "" {
		if secret, err := keyring.Get(keyringService, cfg.Database.Username); err == nil {
			cfg.Database.Password = secret
		}
	}

	return cfg, nil
}
