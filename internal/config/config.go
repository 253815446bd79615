// Package config loads server configuration from a file with environment
// variable overrides. Keys nest with dots in the file and with underscores
// in the environment: redis.chat.prefix is overridden by REDIS_CHAT_PREFIX.
package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads the file at path into target, a pointer to a config struct.
// Values already set on target act as defaults; the environment wins over
// the file.
func Load(path string, target any) error {
	defaults := make(map[string]any)
	if err := mapstructure.Decode(target, &defaults); err != nil {
		return fmt.Errorf("decode defaults: %v", err)
	}

	v := viper.New()
	if err := v.MergeConfigMap(defaults); err != nil {
		return fmt.Errorf("merge defaults: %v", err)
	}

	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %s: %v", path, err)
	}
	if err := v.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshal config: %v", err)
	}

	return nil
}
