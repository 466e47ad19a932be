package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/spf13/viper"
)

// configEnvVar names the environment variable holding an explicit config file path
const configEnvVar = "GITVER_CONFIG"

// loadConfig reads defaults for CLI flags from .gitver.{yaml,toml,json} in the
// working directory or $HOME, or from the file named by GITVER_CONFIG, with
// GITVER_* environment variables taking precedence over the file.
func loadConfig() (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("prefix", "")
	v.SetDefault("suffix", ".post")
	v.SetDefault("local_id", true)
	v.SetDefault("engine", "exec")
	v.SetDefault("match", "")
	v.SetDefault("timeout", "30s")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")

	v.SetEnvPrefix("gitver")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := os.Getenv(configEnvVar); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		return v, nil
	}

	v.SetConfigName(".gitver")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return v, nil
}

// configVars exposes config values to kong as ${name} interpolations, so
// flags given on the command line still win.
func configVars(v *viper.Viper) kong.Vars {
	return kong.Vars{
		"prefix":     v.GetString("prefix"),
		"suffix":     v.GetString("suffix"),
		"local_id":   strconv.FormatBool(v.GetBool("local_id")),
		"engine":     v.GetString("engine"),
		"match":      v.GetString("match"),
		"timeout":    v.GetDuration("timeout").String(),
		"log_level":  v.GetString("log_level"),
		"log_format": v.GetString("log_format"),
	}
}
