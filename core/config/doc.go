// Package config loads typed configuration from environment variables.
//
// Each configuration type is parsed once with caarlos0/env and cached;
// later Load calls for the same type return the cached value. A .env file
// in the working directory is loaded on first use when present.
//
//	type ServerConfig struct {
//		Addr string `env:"SERVER_ADDR" envDefault:":8080"`
//	}
//
//	var cfg ServerConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
package config
