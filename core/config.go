package core

import (
	"fmt"
	"strings"
	"time"
)

type AuthorityConfig struct {
	URL           string `koanf:"url" mapstructure:"url"`
	Kind          string `koanf:"kind" mapstructure:"kind"`
	TenantID      string `koanf:"tenant_id" mapstructure:"tenant_id"`
	TokenEndpoint string `koanf:"token_endpoint" mapstructure:"token_endpoint"`
}

type Config struct {
	ClientID             string          `koanf:"client_id" mapstructure:"client_id"`
	Authority            AuthorityConfig `koanf:"authority" mapstructure:"authority"`
	ExperimentalFeatures bool            `koanf:"experimental_features" mapstructure:"experimental_features"`
	HTTPTimeout          time.Duration   `koanf:"http_timeout" mapstructure:"http_timeout"`
	UserAgent            string          `koanf:"user_agent" mapstructure:"user_agent"`
}

func DefaultConfig() Config {
	return Config{
		Authority: AuthorityConfig{
			Kind: string(AuthorityKindAAD),
		},
		HTTPTimeout: 30 * time.Second,
		UserAgent:   "go-confidential/1.0",
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return fmt.Errorf("core: client_id is required")
	}
	if strings.TrimSpace(c.Authority.URL) == "" {
		return fmt.Errorf("core: authority.url is required")
	}
	switch AuthorityKind(strings.ToLower(strings.TrimSpace(c.Authority.Kind))) {
	case AuthorityKindAAD, AuthorityKindADFS:
	default:
		return fmt.Errorf("core: authority.kind %q is not supported", c.Authority.Kind)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("core: http_timeout must not be negative")
	}
	return nil
}

func (c Config) BuildAuthority() (Authority, error) {
	return NewAuthority(
		c.Authority.URL,
		AuthorityKind(strings.ToLower(strings.TrimSpace(c.Authority.Kind))),
		c.Authority.TenantID,
		c.Authority.TokenEndpoint,
	)
}
