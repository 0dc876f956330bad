// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the resolver and lookup settings from a YAML file
// and the environment.
package config

import (
	"os"
	"path"
	"time"

	"github.com/caffix/mtacore/resolver"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
)

// ErrNoServers is returned by Validate when no nameservers are configured.
var ErrNoServers = errors.New("no DNS resolvers were configured")

// Resolver holds the settings of the shared DNS client.
type Resolver struct {
	Servers         []string      `yaml:"servers" env:"MTA_RESOLVERS" env-separator:","`
	Timeout         time.Duration `yaml:"timeout" env:"MTA_RESOLVER_TIMEOUT" env-default:"2s"`
	QPS             int           `yaml:"qps" env:"MTA_RESOLVER_QPS" env-default:"0"`
	Attempts        int           `yaml:"attempts" env:"MTA_RESOLVER_ATTEMPTS" env-default:"3"`
	NoServFailRetry bool          `yaml:"no_servfail_retry" env:"MTA_RESOLVER_NO_SERVFAIL_RETRY"`
	BackoffDelay    time.Duration `yaml:"backoff_delay" env:"MTA_RESOLVER_BACKOFF" env-default:"50ms"`
	MaxBackoff      time.Duration `yaml:"max_backoff" env:"MTA_RESOLVER_MAX_BACKOFF" env-default:"1s"`
}

// Lookup holds the settings of the lookups performed during a session.
type Lookup struct {
	Budget time.Duration `yaml:"budget" env:"MTA_LOOKUP_BUDGET" env-default:"5s"`
}

// Config is the complete configuration.
type Config struct {
	LogLevel string   `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Resolver Resolver `yaml:"resolver"`
	Lookup   Lookup   `yaml:"lookup"`
}

// Load reads the configuration file at path, a sibling ".local" file when
// one exists, and then the environment. When path is empty only the
// environment and the defaults are used.
func Load(path string) (*Config, error) {
	cfg := new(Config)

	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, errors.Wrap(err, "config error")
		}
		return cfg, nil
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, errors.Wrap(err, "config error")
	}

	if local := localPath(path); local != "" {
		if _, err := os.Stat(local); err == nil {
			if err := cleanenv.ReadConfig(local, cfg); err != nil {
				return nil, errors.Wrap(err, "config error")
			}
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.Wrap(err, "config error")
	}
	return cfg, nil
}

func localPath(p string) string {
	ext := path.Ext(p)
	return p[:len(p)-len(ext)] + ".local" + ext
}

// Validate reports configuration values that cannot be used.
func (c *Config) Validate() error {
	if len(c.Resolver.Servers) == 0 {
		return ErrNoServers
	}
	if c.Lookup.Budget < 0 {
		return errors.Errorf("the lookup budget cannot be negative: %s", c.Lookup.Budget)
	}
	return nil
}

// ResolverOptions converts the resolver section into client options.
func (c *Config) ResolverOptions() resolver.Options {
	return resolver.Options{
		Servers:       c.Resolver.Servers,
		Timeout:       c.Resolver.Timeout,
		QPS:           c.Resolver.QPS,
		Attempts:      c.Resolver.Attempts,
		RetryServFail: !c.Resolver.NoServFailRetry,
		BackoffDelay:  c.Resolver.BackoffDelay,
		MaxBackoff:    c.Resolver.MaxBackoff,
	}
}
