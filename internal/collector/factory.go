package collector

import (
	"fmt"

	"github.com/nstop/reddit-topics/internal/domain"
)

// Config selects and parameterizes a collector implementation.
type Config struct {
	Mode         string
	UserAgent    string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// New selects the correct implementation based on the configured mode.
func New(cfg Config) (domain.Collector, error) {
	switch cfg.Mode {
	case "api":
		return NewAPIClient(cfg.ClientID, cfg.ClientSecret, cfg.Username, cfg.Password, cfg.UserAgent)
	case "public":
		return NewPublicClient(cfg.UserAgent)
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown collector mode: %q (use 'api', 'public', or 'mock')", cfg.Mode)
	}
}
