// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
)

const testYaml = `log_level: debug
resolver:
  servers:
    - 192.0.2.53
    - 198.51.100.53:5353
  timeout: 750ms
  qps: 20
  attempts: 5
  no_servfail_retry: true
  max_backoff: 400ms
lookup:
  budget: 3s
`

type ConfigTestSuite struct {
	suite.Suite
	dir  string
	path string
}

func (s *ConfigTestSuite) SetupTest() {
	for _, k := range []string{"LOG_LEVEL", "MTA_RESOLVERS", "MTA_RESOLVER_TIMEOUT", "MTA_RESOLVER_MAX_BACKOFF", "MTA_LOOKUP_BUDGET"} {
		s.T().Setenv(k, "")
		os.Unsetenv(k)
	}

	s.dir = s.T().TempDir()
	s.path = filepath.Join(s.dir, "config.yaml")
	s.Require().NoError(os.WriteFile(s.path, []byte(testYaml), 0600), "error when write to file config.yaml")
}

func (s *ConfigTestSuite) TestLoadFile() {
	cfg, err := Load(s.path)
	s.Require().NoError(err)

	s.Equal("debug", cfg.LogLevel)
	s.Equal([]string{"192.0.2.53", "198.51.100.53:5353"}, cfg.Resolver.Servers)
	s.Equal(750*time.Millisecond, cfg.Resolver.Timeout)
	s.Equal(20, cfg.Resolver.QPS)
	s.Equal(5, cfg.Resolver.Attempts)
	s.True(cfg.Resolver.NoServFailRetry)
	s.Equal(3*time.Second, cfg.Lookup.Budget)
	s.NoError(cfg.Validate())

	opts := cfg.ResolverOptions()
	s.Equal(cfg.Resolver.Servers, opts.Servers)
	s.Equal(5, opts.Attempts)
	s.False(opts.RetryServFail)
	s.Equal(400*time.Millisecond, opts.MaxBackoff)
}

func (s *ConfigTestSuite) TestLocalFileOverrides() {
	local := filepath.Join(s.dir, "config.local.yaml")
	s.Require().NoError(os.WriteFile(local, []byte("lookup:\n  budget: 1s\n"), 0600))

	cfg, err := Load(s.path)
	s.Require().NoError(err)
	s.Equal(time.Second, cfg.Lookup.Budget)
}

func (s *ConfigTestSuite) TestEnvOverridesFile() {
	s.T().Setenv("MTA_RESOLVERS", "203.0.113.53,203.0.113.54")
	s.T().Setenv("MTA_LOOKUP_BUDGET", "250ms")

	cfg, err := Load(s.path)
	s.Require().NoError(err)
	s.Equal([]string{"203.0.113.53", "203.0.113.54"}, cfg.Resolver.Servers)
	s.Equal(250*time.Millisecond, cfg.Lookup.Budget)
}

func (s *ConfigTestSuite) TestEnvOnlyDefaults() {
	cfg, err := Load("")
	s.Require().NoError(err)

	s.Equal("info", cfg.LogLevel)
	s.Equal(2*time.Second, cfg.Resolver.Timeout)
	s.Equal(3, cfg.Resolver.Attempts)
	s.Equal(time.Second, cfg.Resolver.MaxBackoff)
	s.True(cfg.ResolverOptions().RetryServFail)
	s.Equal(5*time.Second, cfg.Lookup.Budget)
	s.True(errors.Is(cfg.Validate(), ErrNoServers))
}

func (s *ConfigTestSuite) TestMissingFile() {
	_, err := Load(filepath.Join(s.dir, "missing.yaml"))
	s.Error(err)
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
