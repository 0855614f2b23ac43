// Package policy implements the capability and risk policy engine: a
// pure table join from action type to base risk and from role to granted
// capabilities, with deny-by-default for anything the table does not
// name. Forbidden actions are hard-denied and can never be escalated to
// human review.
package policy

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/farsight-labs/warden/pkg/contracts"
)

// SupportedPackVersions is the semver range of policy pack schemas this
// engine understands. Packs outside the range are refused at load time.
const SupportedPackVersions = ">=1.0.0 <2.0.0"

// Rule is one row of the risk table.
type Rule struct {
	Action contracts.Capability `yaml:"action" json:"action"`
	Risk   contracts.RiskLevel  `yaml:"risk,omitempty" json:"risk,omitempty"`
	// Forbidden marks the action as never permitted by this layer,
	// regardless of risk or capability grants.
	Forbidden bool `yaml:"forbidden,omitempty" json:"forbidden,omitempty"`
	// Guard is an optional CEL expression over the request context.
	// A guard that evaluates false, errors, or fails to compile denies.
	Guard string `yaml:"guard,omitempty" json:"guard,omitempty"`
}

// Pack is a versioned set of policy rules, typically loaded from YAML.
type Pack struct {
	Version string `yaml:"version" json:"version"`
	Rules   []Rule `yaml:"rules" json:"rules"`
}

// LoadPack parses a YAML policy pack and checks its schema version
// against SupportedPackVersions.
func LoadPack(raw []byte) (*Pack, error) {
	var pack Pack
	if err := yaml.Unmarshal(raw, &pack); err != nil {
		return nil, fmt.Errorf("policy: pack parse failed: %w", err)
	}
	if err := pack.validate(); err != nil {
		return nil, err
	}
	return &pack, nil
}

func (p *Pack) validate() error {
	version, err := semver.NewVersion(p.Version)
	if err != nil {
		return fmt.Errorf("policy: pack version %q is not semver: %w", p.Version, err)
	}
	constraint, err := semver.NewConstraint(SupportedPackVersions)
	if err != nil {
		return fmt.Errorf("policy: bad supported-version constraint: %w", err)
	}
	if !constraint.Check(version) {
		return fmt.Errorf("policy: pack version %s outside supported range %s", version, SupportedPackVersions)
	}
	seen := make(map[contracts.Capability]bool)
	for _, rule := range p.Rules {
		if rule.Action == "" {
			return &contracts.StructuralError{Subject: "policy pack", Detail: "rule with empty action"}
		}
		if seen[rule.Action] {
			return &contracts.StructuralError{Subject: "policy pack", Detail: fmt.Sprintf("duplicate rule for action %s", rule.Action)}
		}
		seen[rule.Action] = true
		if !rule.Forbidden && !rule.Risk.Valid() {
			return &contracts.StructuralError{Subject: "policy pack", Detail: fmt.Sprintf("rule for %s has invalid risk %q", rule.Action, rule.Risk)}
		}
	}
	return nil
}

// DefaultPack returns the built-in risk table for the browser action
// vocabulary. Script execution and unsupervised file upload are
// forbidden outright.
func DefaultPack() *Pack {
	return &Pack{
		Version: "1.0.0",
		Rules: []Rule{
			{Action: contracts.CapNavigate, Risk: contracts.RiskLow},
			{Action: contracts.CapClick, Risk: contracts.RiskLow},
			{Action: contracts.CapReadDOM, Risk: contracts.RiskLow},
			{Action: contracts.CapScreenshot, Risk: contracts.RiskMedium},
			{Action: contracts.CapSubmitForm, Risk: contracts.RiskHigh},
			{Action: contracts.CapFileUpload, Forbidden: true},
			{Action: contracts.CapScriptExecute, Forbidden: true},
		},
	}
}
