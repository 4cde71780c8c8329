package config

import (
	"fmt"
)

// minSecretLen is the shortest HS256 secret accepted.
const minSecretLen = 32

// JWTConfig holds the shared secret used to verify bearer tokens issued by the auth
// backend. ExpirationHours only applies to tokens minted by the token command.
type JWTConfig struct {
	Secret          string `mapstructure:"secret"`
	ExpirationHours int    `mapstructure:"expiration_hours"`
}

// validate checks the configuration. An empty secret is allowed here and rejected by
// ValidateServe.
func (c *JWTConfig) validate() error {
	if c.Secret != "" && len(c.Secret) < minSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLen)
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
