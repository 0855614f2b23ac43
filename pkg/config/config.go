// Package config holds process configuration for the warden CLI and
// service wiring. The decision core itself never reads the environment;
// everything here is resolved once at startup and passed down as plain
// values.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the environment-driven process configuration.
type Config struct {
	// PolicyPackPath points at a YAML policy pack; empty selects the
	// built-in default pack.
	PolicyPackPath string `env:"WARDEN_POLICY_PACK"`
	// LedgerDBPath is the SQLite file backing the provenance ledger.
	LedgerDBPath string `env:"WARDEN_LEDGER_DB" envDefault:"warden-ledger.db"`
	// ApprovalKey signs and verifies CRITICAL-plan approval tokens.
	ApprovalKey string `env:"WARDEN_APPROVAL_KEY"`
	// AgreementQuorum is the source count at which agreement alone
	// earns MEDIUM confidence.
	AgreementQuorum int `env:"WARDEN_AGREEMENT_QUORUM" envDefault:"3"`
	// ReviewTTL bounds how long a human review intent stays open.
	ReviewTTL time.Duration `env:"WARDEN_REVIEW_TTL" envDefault:"5m"`
	// OTLPEndpoint enables trace export when non-empty.
	OTLPEndpoint string `env:"WARDEN_OTLP_ENDPOINT"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.AgreementQuorum < 2 {
		return nil, fmt.Errorf("config: agreement quorum %d below minimum 2", cfg.AgreementQuorum)
	}
	return &cfg, nil
}
