// Package config builds the Viper instance shared by the scrapper commands.
// Settings come from a config file, environment variables and command-line
// flags bound by the caller.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. SCRAPPER_HTTP_RETRIES=5.
const EnvPrefix = "SCRAPPER"

// NewViper returns a Viper instance that reads cfgFile when given, or searches
// the standard locations for config.yaml otherwise. A missing config file is
// not an error; defaults and the environment still apply.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/scrapper/")
		v.AddConfigPath("$HOME/.scrapper")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}
