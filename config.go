// Package gsmsapi holds SMS API clients for german SMS providers: sipgate
// (XML-RPC) and smstrade (HTTP). The clients live in their own packages;
// this package loads their settings from a YAML document.
package gsmsapi

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"gsmsapi/sipgate"
	"gsmsapi/smstrade"
)

// ErrNotConfigured is returned when a client is requested whose section is
// missing from the configuration.
var ErrNotConfigured = errors.New("provider not configured")

// SipgateConfig describes a sipgate account.
type SipgateConfig struct {
	Username string       `yaml:"username"`      // account login
	Password string       `yaml:"password"`      // account password
	API      sipgate.Tier `yaml:"api,omitempty"` // team (default), basic or plus
}

// Config describes the configured SMS providers.
type Config struct {
	Sipgate  *SipgateConfig   `yaml:"sipgate,omitempty"`  // sipgate account
	SMSTrade *smstrade.Config `yaml:"smstrade,omitempty"` // smstrade gateway account
	Logger   *logrus.Entry    `yaml:"-"`                  // log output for the clients
}

// ParseConfig parses the configuration and fills in default values.
func ParseConfig(data []byte) (*Config, error) {
	config := new(Config)
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	if config.Sipgate != nil && config.Sipgate.API == "" {
		config.Sipgate.API = sipgate.TierTeam
	}
	config.Logger = logrus.NewEntry(logrus.StandardLogger())
	return config, nil
}

// LoadConfig loads and parses the configuration from a file.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// SipgateAPI returns a sipgate client for the configured account.
func (c *Config) SipgateAPI() (*sipgate.API, error) {
	if c.Sipgate == nil {
		return nil, fmt.Errorf("sipgate: %w", ErrNotConfigured)
	}
	api, err := sipgate.New(c.Sipgate.Username, c.Sipgate.Password, c.Sipgate.API)
	if err != nil {
		return nil, err
	}
	if c.Logger != nil {
		api.Logger = c.Logger.WithFields(api.Logger.Data)
	}
	return api, nil
}

// SMSTradeAPI returns a smstrade client for the configured account.
func (c *Config) SMSTradeAPI() (*smstrade.API, error) {
	if c.SMSTrade == nil {
		return nil, fmt.Errorf("smstrade: %w", ErrNotConfigured)
	}
	api, err := smstrade.New(*c.SMSTrade)
	if err != nil {
		return nil, err
	}
	if c.Logger != nil {
		api.Logger = c.Logger.WithFields(api.Logger.Data)
	}
	return api, nil
}
