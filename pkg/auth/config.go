package auth

import (
	"fmt"
	"time"

	"github.com/bookslot/bookslot/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// Config is built once at startup and never mutated afterwards.
type Config struct {
	secret          []byte
	algorithm       string
	adminAllowList  []string
	accessTokenTTL  time.Duration
	oneTimeTokenTTL time.Duration
}

func NewConfig(cfg config.Auth) (Config, error) {
	if cfg.JwtSecret == "" {
		return Config{}, fmt.Errorf("jwt secret is not configured")
	}
	switch jwt.GetSigningMethod(cfg.JwtAlgo).(type) {
	case *jwt.SigningMethodHMAC:
	default:
		return Config{}, fmt.Errorf("unsupported jwt algorithm %q", cfg.JwtAlgo)
	}
	return Config{
		secret:          []byte(cfg.JwtSecret),
		algorithm:       cfg.JwtAlgo,
		adminAllowList:  cfg.AdminEmails(),
		accessTokenTTL:  cfg.AccessTokenTTL,
		oneTimeTokenTTL: cfg.OneTimeTokenTTL,
	}, nil
}

func (c Config) Algorithm() string {
	return c.algorithm
}

// AdminAllowList returns a copy of the configured admin email suffixes.
func (c Config) AdminAllowList() []string {
	out := make([]string, len(c.adminAllowList))
	copy(out, c.adminAllowList)
	return out
}
